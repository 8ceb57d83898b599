package doc

import (
	"math"
	"sort"
)

// HeapNode is the mutable document tree backing. Nodes are built through an
// Arena and share its lifetime. Object fields are kept sorted by name at all
// times; builders and mutators maintain the invariant.
type HeapNode struct {
	kind   Kind
	bits   uint64 // Bool, Uint, Int and Float payloads
	buf    []byte // String and BytesKind payloads, arena-owned
	items  []HeapNode
	fields []Field
}

// Field is a single object property of a HeapNode.
type Field struct {
	Name  string
	Value HeapNode
}

func NullNode() HeapNode          { return HeapNode{kind: Null} }
func BoolNode(v bool) HeapNode    { return HeapNode{kind: Bool, bits: boolBits(v)} }
func UintNode(v uint64) HeapNode  { return HeapNode{kind: Uint, bits: v} }
func IntNode(v int64) HeapNode    { return HeapNode{kind: Int, bits: uint64(v)} }
func FloatNode(v float64) HeapNode {
	return HeapNode{kind: Float, bits: math.Float64bits(v)}
}

func (a *Arena) StringNode(s string) HeapNode {
	return HeapNode{kind: String, buf: a.copyBytes([]byte(s))}
}

func (a *Arena) BytesNode(b []byte) HeapNode {
	return HeapNode{kind: BytesKind, buf: a.copyBytes(b)}
}

func (a *Arena) ArrayNode(capacity int) HeapNode {
	return HeapNode{kind: Array, items: a.newItems(capacity)}
}

func (a *Arena) ObjectNode(capacity int) HeapNode {
	return HeapNode{kind: Object, fields: a.newFields(capacity)}
}

func boolBits(v bool) uint64 {
	if v {
		return 1
	}
	return 0
}

func (n *HeapNode) Kind() Kind { return n.kind }

func (n *HeapNode) BoolValue() bool {
	ensureKind(n.kind, Bool, "BoolValue")
	return n.bits != 0
}
func (n *HeapNode) UintValue() uint64 {
	ensureKind(n.kind, Uint, "UintValue")
	return n.bits
}
func (n *HeapNode) IntValue() int64 {
	ensureKind(n.kind, Int, "IntValue")
	return int64(n.bits)
}
func (n *HeapNode) FloatValue() float64 {
	ensureKind(n.kind, Float, "FloatValue")
	return math.Float64frombits(n.bits)
}
func (n *HeapNode) StringValue() string {
	ensureKind(n.kind, String, "StringValue")
	return string(n.buf)
}
func (n *HeapNode) BytesValue() []byte {
	ensureKind(n.kind, BytesKind, "BytesValue")
	return n.buf
}

func (n *HeapNode) Len() int {
	switch n.kind {
	case Array:
		return len(n.items)
	case Object:
		return len(n.fields)
	default:
		return 0
	}
}

func (n *HeapNode) Item(i int) Node {
	ensureKind(n.kind, Array, "Item")
	return &n.items[i]
}

func (n *HeapNode) Field(i int) (string, Node) {
	ensureKind(n.kind, Object, "Field")
	f := &n.fields[i]
	return f.Name, &f.Value
}

func (n *HeapNode) Lookup(name string) (Node, bool) {
	ensureKind(n.kind, Object, "Lookup")
	if i, ok := n.findField(name); ok {
		return &n.fields[i].Value, true
	}
	return nil, false
}

func (n *HeapNode) findField(name string) (int, bool) {
	i := sort.Search(len(n.fields), func(i int) bool {
		return n.fields[i].Name >= name
	})
	return i, i < len(n.fields) && n.fields[i].Name == name
}

// AppendItem appends v to an array node.
func (n *HeapNode) AppendItem(v HeapNode) {
	ensureKind(n.kind, Array, "AppendItem")
	n.items = append(n.items, v)
}

// SetField sets an object property, inserting it in name order or replacing
// the existing value, and returns a pointer to the stored value.
func (n *HeapNode) SetField(a *Arena, name string, v HeapNode) *HeapNode {
	ensureKind(n.kind, Object, "SetField")
	i, ok := n.findField(name)
	if ok {
		n.fields[i].Value = v
		return &n.fields[i].Value
	}
	n.fields = append(n.fields, Field{})
	copy(n.fields[i+1:], n.fields[i:])
	n.fields[i] = Field{Name: a.internString(name), Value: v}
	return &n.fields[i].Value
}

func ensureKind(actual, expected Kind, op string) {
	if actual != expected {
		panic(badKind(op, actual))
	}
}

// FromNode deep-copies any Node into a heap tree owned by the arena.
func (a *Arena) FromNode(src Node) HeapNode {
	switch src.Kind() {
	case Null:
		return NullNode()
	case Bool:
		return BoolNode(src.BoolValue())
	case Uint:
		return UintNode(src.UintValue())
	case Int:
		return IntNode(src.IntValue())
	case Float:
		return FloatNode(src.FloatValue())
	case String:
		return HeapNode{kind: String, buf: a.copyBytes([]byte(src.StringValue()))}
	case BytesKind:
		return a.BytesNode(src.BytesValue())
	case Array:
		ln := src.Len()
		out := a.ArrayNode(ln)
		for i := 0; i < ln; i++ {
			out.items = append(out.items, a.FromNode(src.Item(i)))
		}
		return out
	case Object:
		ln := src.Len()
		out := a.ObjectNode(ln)
		out.fields = out.fields[:ln]
		for i := 0; i < ln; i++ {
			name, child := src.Field(i)
			out.fields[i] = Field{Name: a.internString(name), Value: a.FromNode(child)}
		}
		return out
	default:
		panic("doc: invalid node kind")
	}
}
