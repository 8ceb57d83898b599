package doc

import (
	"fmt"
	"reflect"
	"sort"
)

// MergePatchSchema returns a schema implementing RFC 7396 merge-patch
// semantics: object properties merge recursively, null deletes its location,
// and every other value overwrites.
func MergePatchSchema() *Schema {
	return mergePatchSchema
}

var mergePatchSchema = MustBuildSchema(map[string]any{
	"$defs": map[string]any{
		"patch": map[string]any{
			"anyOf": []any{
				map[string]any{
					"type":                 "object",
					"additionalProperties": map[string]any{"$ref": "#/$defs/patch"},
					"reduce":               map[string]any{"strategy": "merge"},
				},
				map[string]any{
					"type":   "null",
					"reduce": map[string]any{"strategy": "lastWriteWins", "delete": true},
				},
				map[string]any{
					"type": []any{"array", "boolean", "number", "string"},
				},
			},
		},
	},
	"$ref": "#/$defs/patch",
})

// schemaMerge reduces operands which are themselves JSON schemas, composing
// them keyword-wise into a schema admitting every document either operand
// admits. Both operands must be well-formed schemas; an absent lhs behaves
// as the empty (false) schema.
func (r *reducer) schemaMerge(lhs, rhs Node, loc *location) (HeapNode, bool, error) {
	r.skip(rhs)

	lv := any(false)
	if lhs != nil {
		if k := lhs.Kind(); k != Object && k != Bool {
			return HeapNode{}, false, reduceErr(loc.pointer(), lhs, rhs, ErrSchemaWrongType)
		}
		lv = Value(lhs)
	}
	if k := rhs.Kind(); k != Object && k != Bool {
		return HeapNode{}, false, reduceErr(loc.pointer(), lhs, rhs, ErrSchemaWrongType)
	}
	rv := Value(rhs)

	if _, err := BuildSchema(lv); err != nil {
		return HeapNode{}, false, reduceErr(loc.pointer(), lhs, rhs, fmt.Errorf("%w: %v", ErrSchemaWrongType, err))
	}
	if _, err := BuildSchema(rv); err != nil {
		return HeapNode{}, false, reduceErr(loc.pointer(), lhs, rhs, fmt.Errorf("%w: %v", ErrSchemaWrongType, err))
	}
	return r.arena.FromNode(AsNode(schemaUnion(lv, rv))), false, nil
}

// schemaUnion composes two schema values into one admitting the union of
// their instances. Keywords which cannot be widened are dropped, never
// tightened; `true` means "no constraint".
func schemaUnion(a, b any) any {
	if ab, ok := a.(bool); ok {
		if ab {
			return true
		}
		return b // false admits nothing
	}
	if bb, ok := b.(bool); ok {
		if bb {
			return true
		}
		return a
	}
	am, aok := a.(map[string]any)
	bm, bok := b.(map[string]any)
	if !aok || !bok {
		if reflect.DeepEqual(a, b) {
			return a
		}
		return true
	}
	return schemaUnionMaps(am, bm)
}

func schemaUnionMaps(a, b map[string]any) map[string]any {
	out := make(map[string]any)
	for _, key := range unionKeys(a, b) {
		av, aok := a[key]
		bv, bok := b[key]
		switch key {
		case "type":
			if aok && bok {
				if t, ok := typeUnion(av, bv); ok {
					out[key] = t
				}
			}
		case "required":
			if aok && bok {
				if req := intersectStrings(av, bv); req != nil {
					out[key] = req
				}
			}
		case "minimum", "exclusiveMinimum", "minLength", "minItems", "minProperties", "minContains":
			if aok && bok {
				if v, ok := pickBound(av, bv, -1); ok {
					out[key] = v
				}
			}
		case "maximum", "exclusiveMaximum", "maxLength", "maxItems", "maxProperties", "maxContains":
			if aok && bok {
				if v, ok := pickBound(av, bv, 1); ok {
					out[key] = v
				}
			}
		case "properties":
			if m := unionProperties(av, bv, a, b); len(m) > 0 {
				out[key] = m
			}
		case "patternProperties":
			if aok && bok {
				if m := unionSchemaMapsBoth(av, bv); len(m) > 0 {
					out[key] = m
				}
			}
		case "$defs", "definitions":
			if m := unionDefinitions(av, bv); len(m) > 0 {
				out[key] = m
			}
		case "additionalProperties", "additionalItems", "contains", "propertyNames":
			if aok && bok {
				if u := schemaUnion(av, bv); !isTrueSchema(u) {
					out[key] = u
				}
			}
		case "items":
			if aok && bok {
				if v, ok := unionItems(av, bv); ok {
					out[key] = v
				}
			}
		case "enum":
			if aok && bok {
				if e := unionEnums(av, bv); e != nil {
					out[key] = e
				}
			}
		default:
			// Annotations and unhandled keywords survive only when both
			// sides agree exactly.
			if aok && bok && reflect.DeepEqual(av, bv) {
				out[key] = av
			}
		}
	}
	return out
}

// unionProperties merges per-property schemas. A property named by only one
// side widens against the other side's additionalProperties, which defaults
// to admit-all and drops the property.
func unionProperties(av, bv any, a, b map[string]any) map[string]any {
	am, _ := av.(map[string]any)
	bm, _ := bv.(map[string]any)
	additional := func(m map[string]any) any {
		if v, ok := m["additionalProperties"]; ok {
			return v
		}
		return true
	}
	out := make(map[string]any)
	for _, key := range unionKeys(am, bm) {
		x, xok := am[key]
		y, yok := bm[key]
		var u any
		switch {
		case xok && yok:
			u = schemaUnion(x, y)
		case xok:
			u = schemaUnion(x, additional(b))
		default:
			u = schemaUnion(additional(a), y)
		}
		if !isTrueSchema(u) {
			out[key] = u
		}
	}
	return out
}

// unionSchemaMapsBoth merges keys present on both sides and drops the rest.
func unionSchemaMapsBoth(av, bv any) map[string]any {
	am, _ := av.(map[string]any)
	bm, _ := bv.(map[string]any)
	out := make(map[string]any)
	for _, key := range unionKeys(am, bm) {
		x, xok := am[key]
		y, yok := bm[key]
		if !xok || !yok {
			continue
		}
		if u := schemaUnion(x, y); !isTrueSchema(u) {
			out[key] = u
		}
	}
	return out
}

// unionDefinitions keeps one-sided definitions verbatim; definitions do not
// constrain the instance on their own.
func unionDefinitions(av, bv any) map[string]any {
	am, _ := av.(map[string]any)
	bm, _ := bv.(map[string]any)
	out := make(map[string]any)
	for _, key := range unionKeys(am, bm) {
		x, xok := am[key]
		y, yok := bm[key]
		switch {
		case xok && yok:
			out[key] = schemaUnion(x, y)
		case xok:
			out[key] = x
		default:
			out[key] = y
		}
	}
	return out
}

func unionItems(av, bv any) (any, bool) {
	as, aIsTuple := av.([]any)
	bs, bIsTuple := bv.([]any)
	if aIsTuple != bIsTuple {
		return nil, false
	}
	if !aIsTuple {
		u := schemaUnion(av, bv)
		if isTrueSchema(u) {
			return nil, false
		}
		return u, true
	}
	n := len(as)
	if len(bs) < n {
		n = len(bs)
	}
	if n == 0 {
		return nil, false
	}
	out := make([]any, n)
	for i := 0; i < n; i++ {
		out[i] = schemaUnion(as[i], bs[i])
	}
	return out, true
}

func typeUnion(av, bv any) (any, bool) {
	set := make(map[string]bool)
	add := func(v any) bool {
		switch v := v.(type) {
		case string:
			set[v] = true
		case []any:
			for _, e := range v {
				s, ok := e.(string)
				if !ok {
					return false
				}
				set[s] = true
			}
		default:
			return false
		}
		return true
	}
	if !add(av) || !add(bv) {
		return nil, false
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) == 1 {
		return names[0], true
	}
	out := make([]any, len(names))
	for i, name := range names {
		out[i] = name
	}
	return out, true
}

// pickBound widens a numeric bound: the smaller of two minimums or the
// larger of two maximums. Equal bounds prefer the decimal rendering, so
// inference over mixed 1 vs 1.0 inputs stays stable.
func pickBound(av, bv any, sign int) (any, bool) {
	if !isNumberValue(av) || !isNumberValue(bv) {
		return nil, false
	}
	c := Compare(AsNode(av), AsNode(bv))
	if c == 0 {
		if _, ok := av.(float64); ok {
			return av, true
		}
		return bv, true
	}
	if (c < 0) == (sign < 0) {
		return av, true
	}
	return bv, true
}

func isNumberValue(v any) bool {
	switch v.(type) {
	case int, int64, uint, uint64, float64:
		return true
	}
	return false
}

func intersectStrings(av, bv any) []any {
	as, aok := av.([]any)
	bs, bok := bv.([]any)
	if !aok || !bok {
		return nil
	}
	in := make(map[string]bool, len(bs))
	for _, v := range bs {
		if s, ok := v.(string); ok {
			in[s] = true
		}
	}
	var keep []string
	for _, v := range as {
		if s, ok := v.(string); ok && in[s] {
			keep = append(keep, s)
		}
	}
	if len(keep) == 0 {
		return nil
	}
	sort.Strings(keep)
	out := make([]any, len(keep))
	for i, s := range keep {
		out[i] = s
	}
	return out
}

func unionEnums(av, bv any) []any {
	as, aok := av.([]any)
	bs, bok := bv.([]any)
	if !aok || !bok {
		return nil
	}
	out := append(append([]any(nil), as...), bs...)
	sort.SliceStable(out, func(i, j int) bool {
		return Compare(AsNode(out[i]), AsNode(out[j])) < 0
	})
	dedup := out[:0]
	for i, v := range out {
		if i == 0 || Compare(AsNode(v), AsNode(dedup[len(dedup)-1])) != 0 {
			dedup = append(dedup, v)
		}
	}
	return dedup
}

func isTrueSchema(v any) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	if m, ok := v.(map[string]any); ok {
		return len(m) == 0
	}
	return false
}

func unionKeys(a, b map[string]any) []string {
	keys := make([]string, 0, len(a)+len(b))
	for k := range a {
		keys = append(keys, k)
	}
	for k := range b {
		if _, ok := a[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
