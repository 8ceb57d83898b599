package doc

// Kind enumerates the shapes a document node can take. The ordering of the
// constants matches the cross-kind document ordering used by Compare.
type Kind uint8

const (
	Null Kind = iota
	Bool
	Uint
	Int
	Float
	String
	BytesKind
	Array
	Object
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Uint, Int, Float:
		return "number"
	case String:
		return "string"
	case BytesKind:
		return "bytes"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return "invalid"
	}
}

// Node is a read-only view of a document tree node. It is implemented by
// *HeapNode (mutable arena-backed trees), Archived (zero-copy views over
// serialized archives) and the adaptor returned by AsNode (decoded JSON
// values). Algorithms written against Node accept any mix of backings.
//
// Accessors other than Kind and the container accessors are only valid for
// the matching kind and panic otherwise. Object fields always iterate in
// ascending name order, on every backing.
type Node interface {
	Kind() Kind
	BoolValue() bool
	UintValue() uint64
	IntValue() int64
	FloatValue() float64
	StringValue() string
	BytesValue() []byte

	// Len returns the number of items of an array or fields of an object,
	// and zero for scalar kinds.
	Len() int
	// Item returns the i-th item of an array.
	Item(i int) Node
	// Field returns the i-th field of an object, in ascending name order.
	Field(i int) (string, Node)
	// Lookup finds an object field by name.
	Lookup(name string) (Node, bool)
}

// TapeLength returns the number of pre-order positions the subtree rooted at
// n occupies: one for n itself plus the tape lengths of all children. Every
// backing reports the same value for equal documents.
func TapeLength(n Node) int {
	switch n.Kind() {
	case Array:
		total := 1
		for i, ln := 0, n.Len(); i < ln; i++ {
			total += TapeLength(n.Item(i))
		}
		return total
	case Object:
		total := 1
		for i, ln := 0, n.Len(); i < ln; i++ {
			_, child := n.Field(i)
			total += TapeLength(child)
		}
		return total
	default:
		return 1
	}
}

func badKind(op string, k Kind) string {
	return "doc: " + op + " on " + k.String() + " node"
}
