package doc

import "fmt"

// Outcome is one reduce annotation produced by validation: the strategy
// annotated by a successfully applied subschema, tagged with the pre-order
// span of the document location it applied to.
type Outcome struct {
	Begin    int
	End      int
	Strategy *Strategy
}

// Validate walks doc against schema in pre-order and returns the reduce
// annotations of every successfully applied subschema, in ascending Begin
// order. Annotations of failed branches (an anyOf alternative that did not
// match, an if that did not hold) are discarded. An invalid document
// returns a ValidationError describing the first failed constraint.
func Validate(doc Node, schema *Schema) ([]Outcome, error) {
	v := &validator{}
	if !v.apply(schema, doc, 0, nil) {
		if v.failure == nil {
			v.failure = &ValidationError{Keyword: "schema"}
		}
		return nil, v.failure
	}
	return v.outcomes, nil
}

type validator struct {
	outcomes []Outcome
	failure  *ValidationError
}

func (v *validator) fail(loc *location, keyword, detail string) bool {
	if v.failure == nil {
		v.failure = &ValidationError{Ptr: loc.pointer(), Keyword: keyword, Detail: detail}
	}
	return false
}

// apply validates n against s, keeping annotation outcomes only if s holds.
func (v *validator) apply(s *Schema, n Node, tape int, loc *location) bool {
	mark := len(v.outcomes)
	if !v.applyKeywords(s, n, tape, loc) {
		v.outcomes = v.outcomes[:mark]
		return false
	}
	return true
}

func (v *validator) applyKeywords(s *Schema, n Node, tape int, loc *location) bool {
	if s.boolean != nil {
		if !*s.boolean {
			return v.fail(loc, "false", "")
		}
		return true
	}
	if s.reduce != nil {
		v.outcomes = append(v.outcomes, Outcome{Begin: tape, End: tape + TapeLength(n), Strategy: s.reduce})
	}
	if s.resolved != nil && !v.apply(s.resolved, n, tape, loc) {
		return false
	}
	if s.hasTypes && !s.types.matches(n) {
		return v.fail(loc, "type", n.Kind().String()+" is not permitted")
	}
	if s.hasConst && Compare(n, AsNode(s.constVal)) != 0 {
		return v.fail(loc, "const", "")
	}
	for _, g := range s.allOf {
		if !v.apply(g, n, tape, loc) {
			return false
		}
	}
	if len(s.anyOf) > 0 {
		var matched bool
		for _, g := range s.anyOf {
			if v.apply(g, n, tape, loc) {
				matched = true
			}
		}
		if !matched {
			return v.fail(loc, "anyOf", "no alternative matched")
		}
	}
	if len(s.oneOf) > 0 {
		var matched int
		for _, g := range s.oneOf {
			if v.apply(g, n, tape, loc) {
				matched++
			}
		}
		if matched != 1 {
			return v.fail(loc, "oneOf", fmt.Sprintf("%d alternatives matched", matched))
		}
	}
	if s.ifSchema != nil {
		if v.apply(s.ifSchema, n, tape, loc) {
			if s.thenSchema != nil && !v.apply(s.thenSchema, n, tape, loc) {
				return false
			}
		} else if s.elseSchema != nil && !v.apply(s.elseSchema, n, tape, loc) {
			return false
		}
	}

	switch n.Kind() {
	case Object:
		ln := n.Len()
		if s.hasMaxProp && ln > s.maxProps {
			return v.fail(loc, "maxProperties", fmt.Sprintf("%d properties exceed the limit of %d", ln, s.maxProps))
		}
		for _, name := range s.required {
			if _, ok := n.Lookup(name); !ok {
				return v.fail(loc, "required", "missing property "+name)
			}
		}
		childTape := tape + 1
		for i := 0; i < ln; i++ {
			name, child := n.Field(i)
			sub := s.properties[name]
			if sub == nil {
				sub = s.additional
			}
			if sub != nil && !v.apply(sub, child, childTape, loc.push(name)) {
				return false
			}
			childTape += TapeLength(child)
		}
	case Array:
		childTape := tape + 1
		for i, ln := 0, n.Len(); i < ln; i++ {
			item := n.Item(i)
			sub := s.items
			if i < len(s.tupleItems) {
				sub = s.tupleItems[i]
			}
			if sub != nil && !v.apply(sub, item, childTape, loc.pushIndex(i)) {
				return false
			}
			childTape += TapeLength(item)
		}
	}
	return true
}
