package doc

import (
	"fmt"
	"strings"
)

// Schema is a parsed JSON schema, restricted to the keywords this package
// validates: type, const, required, maxProperties, properties,
// additionalProperties, items, if/then/else, allOf, anyOf, oneOf, $defs,
// intra-document $ref, and the reduce annotation. Unknown keywords are
// ignored, as JSON Schema requires.
type Schema struct {
	boolean *bool // boolean schema form

	ref      string
	resolved *Schema
	defs     map[string]*Schema

	types    typeSet
	hasTypes bool
	constVal any
	hasConst bool

	properties map[string]*Schema
	additional *Schema
	items      *Schema
	tupleItems []*Schema
	required   []string
	maxProps   int
	hasMaxProp bool

	ifSchema   *Schema
	thenSchema *Schema
	elseSchema *Schema
	allOf      []*Schema
	anyOf      []*Schema
	oneOf      []*Schema

	reduce *Strategy
}

type typeSet uint8

const (
	typeNull typeSet = 1 << iota
	typeBoolean
	typeInteger
	typeNumber
	typeString
	typeArray
	typeObject
)

func parseTypeName(s string) (typeSet, error) {
	switch s {
	case "null":
		return typeNull, nil
	case "boolean":
		return typeBoolean, nil
	case "integer":
		return typeInteger, nil
	case "number":
		return typeNumber, nil
	case "string":
		return typeString, nil
	case "array":
		return typeArray, nil
	case "object":
		return typeObject, nil
	default:
		return 0, fmt.Errorf("invalid type name %q", s)
	}
}

func (ts typeSet) matches(n Node) bool {
	switch n.Kind() {
	case Null:
		return ts&typeNull != 0
	case Bool:
		return ts&typeBoolean != 0
	case Uint, Int:
		return ts&(typeInteger|typeNumber) != 0
	case Float:
		if ts&typeNumber != 0 {
			return true
		}
		f := n.FloatValue()
		return ts&typeInteger != 0 && f == float64(int64(f))
	case String:
		return ts&typeString != 0
	case Array:
		return ts&typeArray != 0
	case Object:
		return ts&typeObject != 0
	default:
		return false
	}
}

// BuildSchema parses a generic value tree as a schema. Every subschema is
// addressable by its canonical "#/..." location and $ref fragments resolve
// against those locations; an unresolvable reference is a build error.
func BuildSchema(v any) (*Schema, error) {
	b := &schemaBuilder{index: make(map[string]*Schema)}
	root, err := b.build(v, "#")
	if err != nil {
		return nil, err
	}
	for _, s := range b.refs {
		target, ok := b.index[s.ref]
		if !ok {
			return nil, fmt.Errorf("unresolved $ref %q", s.ref)
		}
		s.resolved = target
	}
	return root, nil
}

// MustBuildSchema is BuildSchema for programmatically constructed schemas.
func MustBuildSchema(v any) *Schema {
	return must(BuildSchema(v))
}

type schemaBuilder struct {
	index map[string]*Schema
	refs  []*Schema
}

func (b *schemaBuilder) build(v any, loc string) (*Schema, error) {
	if bv, ok := v.(bool); ok {
		s := &Schema{boolean: &bv}
		b.index[loc] = s
		return s, nil
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("schema at %s must be an object or boolean, not %T", loc, v)
	}
	s := &Schema{}
	b.index[loc] = s

	var err error
	for _, name := range sortedKeys(obj) {
		val := obj[name]
		kw := loc + "/" + escapeRefToken(name)
		switch name {
		case "$ref":
			ref, ok := val.(string)
			if !ok {
				return nil, fmt.Errorf("$ref at %s must be a string", loc)
			}
			if !strings.HasPrefix(ref, "#") {
				return nil, fmt.Errorf("$ref %q at %s is not a document-local reference", ref, loc)
			}
			s.ref = ref
			b.refs = append(b.refs, s)
		case "$defs", "definitions":
			defs, ok := val.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%s at %s must be an object", name, loc)
			}
			if s.defs == nil {
				s.defs = make(map[string]*Schema, len(defs))
			}
			for _, dn := range sortedKeys(defs) {
				if s.defs[dn], err = b.build(defs[dn], kw+"/"+escapeRefToken(dn)); err != nil {
					return nil, err
				}
			}
		case "type":
			switch val := val.(type) {
			case string:
				if s.types, err = parseTypeName(val); err != nil {
					return nil, err
				}
			case []any:
				for _, item := range val {
					tn, ok := item.(string)
					if !ok {
						return nil, fmt.Errorf("type at %s must name types", loc)
					}
					ts, err := parseTypeName(tn)
					if err != nil {
						return nil, err
					}
					s.types |= ts
				}
			default:
				return nil, fmt.Errorf("type at %s must be a string or array", loc)
			}
			s.hasTypes = true
		case "const":
			s.constVal = val
			s.hasConst = true
		case "required":
			items, ok := val.([]any)
			if !ok {
				return nil, fmt.Errorf("required at %s must be an array", loc)
			}
			for _, item := range items {
				rn, ok := item.(string)
				if !ok {
					return nil, fmt.Errorf("required at %s must name properties", loc)
				}
				s.required = append(s.required, rn)
			}
		case "maxProperties":
			n, ok := intValue(val)
			if !ok || n < 0 {
				return nil, fmt.Errorf("maxProperties at %s must be a non-negative integer", loc)
			}
			s.maxProps = int(n)
			s.hasMaxProp = true
		case "properties":
			props, ok := val.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("properties at %s must be an object", loc)
			}
			s.properties = make(map[string]*Schema, len(props))
			for _, pn := range sortedKeys(props) {
				if s.properties[pn], err = b.build(props[pn], kw+"/"+escapeRefToken(pn)); err != nil {
					return nil, err
				}
			}
		case "additionalProperties":
			if s.additional, err = b.build(val, kw); err != nil {
				return nil, err
			}
		case "items":
			if items, ok := val.([]any); ok {
				for i, item := range items {
					child, err := b.build(item, fmt.Sprintf("%s/%d", kw, i))
					if err != nil {
						return nil, err
					}
					s.tupleItems = append(s.tupleItems, child)
				}
			} else if s.items, err = b.build(val, kw); err != nil {
				return nil, err
			}
		case "if":
			if s.ifSchema, err = b.build(val, kw); err != nil {
				return nil, err
			}
		case "then":
			if s.thenSchema, err = b.build(val, kw); err != nil {
				return nil, err
			}
		case "else":
			if s.elseSchema, err = b.build(val, kw); err != nil {
				return nil, err
			}
		case "allOf", "anyOf", "oneOf":
			items, ok := val.([]any)
			if !ok {
				return nil, fmt.Errorf("%s at %s must be an array of schemas", name, loc)
			}
			group := make([]*Schema, len(items))
			for i, item := range items {
				if group[i], err = b.build(item, fmt.Sprintf("%s/%d", kw, i)); err != nil {
					return nil, err
				}
			}
			switch name {
			case "allOf":
				s.allOf = group
			case "anyOf":
				s.anyOf = group
			default:
				s.oneOf = group
			}
		case "reduce":
			if s.reduce, err = parseStrategy(val); err != nil {
				return nil, fmt.Errorf("at %s: %w", loc, err)
			}
		}
	}
	return s, nil
}

func intValue(v any) (int64, bool) {
	switch v := v.(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	case uint64:
		return int64(v), true
	case float64:
		if v == float64(int64(v)) {
			return int64(v), true
		}
	}
	return 0, false
}

func escapeRefToken(name string) string {
	name = strings.ReplaceAll(name, "~", "~0")
	return strings.ReplaceAll(name, "/", "~1")
}
