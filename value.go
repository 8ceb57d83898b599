package doc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ParseJSON decodes a JSON document into a generic value tree: nil, bool,
// int64, uint64, float64, string, []any and map[string]any. Integers keep
// their integer kinds; uint64 is only used for values above math.MaxInt64.
func ParseJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("doc: trailing data after JSON document")
	}
	return normalizeNumbers(raw), nil
}

func normalizeNumbers(v any) any {
	switch v := v.(type) {
	case json.Number:
		if i, err := strconv.ParseInt(v.String(), 10, 64); err == nil {
			return i
		}
		if u, err := strconv.ParseUint(v.String(), 10, 64); err == nil {
			return u
		}
		f, _ := v.Float64()
		return f
	case []any:
		for i := range v {
			v[i] = normalizeNumbers(v[i])
		}
		return v
	case map[string]any:
		for k, item := range v {
			v[k] = normalizeNumbers(item)
		}
		return v
	default:
		return v
	}
}

// AsNode adapts a generic value tree to the Node capability. Map fields are
// visited in ascending key order, like every other backing.
func AsNode(v any) Node {
	return valueNode{v}
}

type valueNode struct {
	v any
}

func (n valueNode) Kind() Kind {
	switch n.v.(type) {
	case nil:
		return Null
	case bool:
		return Bool
	case uint64, uint:
		return Uint
	case int64, int:
		return Int
	case float64:
		return Float
	case string:
		return String
	case []byte:
		return BytesKind
	case []any:
		return Array
	case map[string]any:
		return Object
	default:
		panic(fmt.Sprintf("doc: unsupported value type %T", n.v))
	}
}

func (n valueNode) BoolValue() bool { return n.v.(bool) }

func (n valueNode) UintValue() uint64 {
	if u, ok := n.v.(uint64); ok {
		return u
	}
	return uint64(n.v.(uint))
}

func (n valueNode) IntValue() int64 {
	if i, ok := n.v.(int64); ok {
		return i
	}
	return int64(n.v.(int))
}

func (n valueNode) FloatValue() float64 { return n.v.(float64) }
func (n valueNode) StringValue() string { return n.v.(string) }
func (n valueNode) BytesValue() []byte  { return n.v.([]byte) }

func (n valueNode) Len() int {
	switch v := n.v.(type) {
	case []any:
		return len(v)
	case map[string]any:
		return len(v)
	default:
		return 0
	}
}

func (n valueNode) Item(i int) Node {
	return valueNode{n.v.([]any)[i]}
}

func (n valueNode) Field(i int) (string, Node) {
	m := n.v.(map[string]any)
	name := sortedKeys(m)[i]
	return name, valueNode{m[name]}
}

func (n valueNode) Lookup(name string) (Node, bool) {
	v, ok := n.v.(map[string]any)[name]
	if !ok {
		return nil, false
	}
	return valueNode{v}, true
}

// Value converts any Node backing into a generic value tree, the inverse of
// AsNode. Strings and bytes are copied so the result does not alias arena or
// archive storage.
func Value(n Node) any {
	switch n.Kind() {
	case Null:
		return nil
	case Bool:
		return n.BoolValue()
	case Uint:
		return n.UintValue()
	case Int:
		return n.IntValue()
	case Float:
		return n.FloatValue()
	case String:
		return strings.Clone(n.StringValue())
	case BytesKind:
		return append([]byte(nil), n.BytesValue()...)
	case Array:
		items := make([]any, n.Len())
		for i := range items {
			items[i] = Value(n.Item(i))
		}
		return items
	case Object:
		m := make(map[string]any, n.Len())
		for i, ln := 0, n.Len(); i < ln; i++ {
			name, val := n.Field(i)
			m[strings.Clone(name)] = Value(val)
		}
		return m
	default:
		panic("doc: invalid node kind")
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
