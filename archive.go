package doc

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"unsafe"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

// Archives are canonical MessagePack: object fields sorted by name, integers
// in their shortest form with non-negative values unsigned, strings UTF-8.
// An Archived value reads the serialized bytes in place, with no
// deserialization step and no allocation.

// ArchiveNode serializes a document tree into its archive form, appending to
// buf. Trees produced by this package always archive cleanly, so encoding
// failures are programming errors and panic.
func ArchiveNode(buf []byte, n Node) []byte {
	bb := bytes.NewBuffer(buf)
	enc := msgpack.GetEncoder()
	enc.ResetDict(bb, nil)
	err := encodeNode(enc, n)
	msgpack.PutEncoder(enc)
	if err != nil {
		panic(fmt.Errorf("doc: failed to archive node: %w", err))
	}
	return bb.Bytes()
}

func encodeNode(enc *msgpack.Encoder, n Node) error {
	switch n.Kind() {
	case Null:
		return enc.EncodeNil()
	case Bool:
		return enc.EncodeBool(n.BoolValue())
	case Uint:
		return enc.EncodeUint(n.UintValue())
	case Int:
		if v := n.IntValue(); v < 0 {
			return enc.EncodeInt(v)
		} else {
			return enc.EncodeUint(uint64(v))
		}
	case Float:
		return enc.EncodeFloat64(n.FloatValue())
	case String:
		return enc.EncodeString(n.StringValue())
	case BytesKind:
		return enc.EncodeBytes(n.BytesValue())
	case Array:
		ln := n.Len()
		if err := enc.EncodeArrayLen(ln); err != nil {
			return err
		}
		for i := 0; i < ln; i++ {
			if err := encodeNode(enc, n.Item(i)); err != nil {
				return err
			}
		}
		return nil
	case Object:
		ln := n.Len()
		if err := enc.EncodeMapLen(ln); err != nil {
			return err
		}
		for i := 0; i < ln; i++ {
			name, child := n.Field(i)
			if err := enc.EncodeString(name); err != nil {
				return err
			}
			if err := encodeNode(enc, child); err != nil {
				return err
			}
		}
		return nil
	default:
		panic("doc: invalid node kind")
	}
}

// Archived is the immutable zero-copy document backing: a view positioned at
// one element of an archive produced by ArchiveNode. The zero value is not
// meaningful; obtain one from LoadArchive.
type Archived struct {
	raw []byte
	off int
}

// LoadArchive validates raw as a single well-formed archive and returns a
// view of its root. Views derived from the returned value stay valid as long
// as raw is unchanged.
func LoadArchive(raw []byte) (Archived, error) {
	end, err := archSkip(raw, 0)
	if err != nil {
		return Archived{}, err
	}
	if end != len(raw) {
		return Archived{}, &ArchiveError{Offset: end, Reason: "trailing bytes after document"}
	}
	return Archived{raw: raw}, nil
}

func (n Archived) Kind() Kind {
	c := n.raw[n.off]
	switch {
	case c <= msgpcode.PosFixedNumHigh:
		return Uint
	case c >= msgpcode.NegFixedNumLow:
		return Int
	case msgpcode.IsFixedString(c), c == msgpcode.Str8, c == msgpcode.Str16, c == msgpcode.Str32:
		return String
	case msgpcode.IsFixedMap(c), c == msgpcode.Map16, c == msgpcode.Map32:
		return Object
	case msgpcode.IsFixedArray(c), c == msgpcode.Array16, c == msgpcode.Array32:
		return Array
	}
	switch c {
	case msgpcode.Nil:
		return Null
	case msgpcode.False, msgpcode.True:
		return Bool
	case msgpcode.Uint8, msgpcode.Uint16, msgpcode.Uint32, msgpcode.Uint64:
		return Uint
	case msgpcode.Int8, msgpcode.Int16, msgpcode.Int32, msgpcode.Int64:
		return Int
	case msgpcode.Float, msgpcode.Double:
		return Float
	case msgpcode.Bin8, msgpcode.Bin16, msgpcode.Bin32:
		return BytesKind
	default:
		panic(fmt.Sprintf("doc: invalid archive header 0x%02x", c))
	}
}

func (n Archived) BoolValue() bool {
	ensureKind(n.Kind(), Bool, "BoolValue")
	return n.raw[n.off] == msgpcode.True
}

func (n Archived) UintValue() uint64 {
	ensureKind(n.Kind(), Uint, "UintValue")
	c, b := n.raw[n.off], n.raw[n.off+1:]
	switch c {
	case msgpcode.Uint8:
		return uint64(b[0])
	case msgpcode.Uint16:
		return uint64(binary.BigEndian.Uint16(b))
	case msgpcode.Uint32:
		return uint64(binary.BigEndian.Uint32(b))
	case msgpcode.Uint64:
		return binary.BigEndian.Uint64(b)
	default:
		return uint64(c)
	}
}

func (n Archived) IntValue() int64 {
	ensureKind(n.Kind(), Int, "IntValue")
	c, b := n.raw[n.off], n.raw[n.off+1:]
	switch c {
	case msgpcode.Int8:
		return int64(int8(b[0]))
	case msgpcode.Int16:
		return int64(int16(binary.BigEndian.Uint16(b)))
	case msgpcode.Int32:
		return int64(int32(binary.BigEndian.Uint32(b)))
	case msgpcode.Int64:
		return int64(binary.BigEndian.Uint64(b))
	default:
		return int64(int8(c))
	}
}

func (n Archived) FloatValue() float64 {
	ensureKind(n.Kind(), Float, "FloatValue")
	b := n.raw[n.off+1:]
	if n.raw[n.off] == msgpcode.Float {
		return float64(math.Float32frombits(binary.BigEndian.Uint32(b)))
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b))
}

func (n Archived) StringValue() string {
	ensureKind(n.Kind(), String, "StringValue")
	body, ln := archPayload(n.raw, n.off)
	if ln == 0 {
		return ""
	}
	return unsafe.String(&n.raw[body], ln)
}

func (n Archived) BytesValue() []byte {
	ensureKind(n.Kind(), BytesKind, "BytesValue")
	body, ln := archPayload(n.raw, n.off)
	return n.raw[body : body+ln : body+ln]
}

func (n Archived) Len() int {
	switch n.Kind() {
	case Array, Object:
		count, _ := archContainer(n.raw, n.off)
		return count
	default:
		return 0
	}
}

func (n Archived) Item(i int) Node {
	ensureKind(n.Kind(), Array, "Item")
	_, off := archContainer(n.raw, n.off)
	for ; i > 0; i-- {
		off = mustSkip(n.raw, off)
	}
	return Archived{raw: n.raw, off: off}
}

func (n Archived) Field(i int) (string, Node) {
	ensureKind(n.Kind(), Object, "Field")
	_, off := archContainer(n.raw, n.off)
	for ; i > 0; i-- {
		off = mustSkip(n.raw, off)
		off = mustSkip(n.raw, off)
	}
	key := Archived{raw: n.raw, off: off}
	return key.StringValue(), Archived{raw: n.raw, off: mustSkip(n.raw, off)}
}

func (n Archived) Lookup(name string) (Node, bool) {
	ensureKind(n.Kind(), Object, "Lookup")
	count, off := archContainer(n.raw, n.off)
	for i := 0; i < count; i++ {
		key := Archived{raw: n.raw, off: off}
		off = mustSkip(n.raw, off)
		k := key.StringValue()
		if k == name {
			return Archived{raw: n.raw, off: off}, true
		}
		if k > name { // fields are sorted
			break
		}
		off = mustSkip(n.raw, off)
	}
	return nil, false
}

// archPayload returns the body offset and length of a string or bin element.
func archPayload(raw []byte, off int) (body, ln int) {
	c := raw[off]
	switch {
	case msgpcode.IsFixedString(c):
		return off + 1, int(c & msgpcode.FixedStrMask)
	case c == msgpcode.Str8, c == msgpcode.Bin8:
		return off + 2, int(raw[off+1])
	case c == msgpcode.Str16, c == msgpcode.Bin16:
		return off + 3, int(binary.BigEndian.Uint16(raw[off+1:]))
	default:
		return off + 5, int(binary.BigEndian.Uint32(raw[off+1:]))
	}
}

// archContainer returns the element count and body offset of an array or map.
func archContainer(raw []byte, off int) (count, body int) {
	c := raw[off]
	switch {
	case msgpcode.IsFixedArray(c):
		return int(c & msgpcode.FixedArrayMask), off + 1
	case msgpcode.IsFixedMap(c):
		return int(c & msgpcode.FixedMapMask), off + 1
	case c == msgpcode.Array16, c == msgpcode.Map16:
		return int(binary.BigEndian.Uint16(raw[off+1:])), off + 3
	default:
		return int(binary.BigEndian.Uint32(raw[off+1:])), off + 5
	}
}

func mustSkip(raw []byte, off int) int {
	next, err := archSkip(raw, off)
	if err != nil {
		panic(err)
	}
	return next
}

// archSkip advances past the element at off, validating structure as it goes.
func archSkip(raw []byte, off int) (int, error) {
	if off >= len(raw) {
		return 0, &ArchiveError{Offset: off, Reason: "truncated document"}
	}
	c := raw[off]
	var need int
	switch {
	case c <= msgpcode.PosFixedNumHigh, c >= msgpcode.NegFixedNumLow:
		return off + 1, nil
	case msgpcode.IsFixedString(c):
		need = 1 + int(c&msgpcode.FixedStrMask)
	case msgpcode.IsFixedArray(c):
		return archSkipContainer(raw, off+1, int(c&msgpcode.FixedArrayMask), false)
	case msgpcode.IsFixedMap(c):
		return archSkipContainer(raw, off+1, int(c&msgpcode.FixedMapMask), true)
	default:
		switch c {
		case msgpcode.Nil, msgpcode.False, msgpcode.True:
			return off + 1, nil
		case msgpcode.Uint8, msgpcode.Int8:
			need = 2
		case msgpcode.Uint16, msgpcode.Int16:
			need = 3
		case msgpcode.Uint32, msgpcode.Int32, msgpcode.Float:
			need = 5
		case msgpcode.Uint64, msgpcode.Int64, msgpcode.Double:
			need = 9
		case msgpcode.Str8, msgpcode.Bin8:
			if off+2 > len(raw) {
				return 0, &ArchiveError{Offset: off, Reason: "truncated document"}
			}
			need = 2 + int(raw[off+1])
		case msgpcode.Str16, msgpcode.Bin16:
			if off+3 > len(raw) {
				return 0, &ArchiveError{Offset: off, Reason: "truncated document"}
			}
			need = 3 + int(binary.BigEndian.Uint16(raw[off+1:]))
		case msgpcode.Str32, msgpcode.Bin32:
			if off+5 > len(raw) {
				return 0, &ArchiveError{Offset: off, Reason: "truncated document"}
			}
			need = 5 + int(binary.BigEndian.Uint32(raw[off+1:]))
		case msgpcode.Array16, msgpcode.Map16:
			if off+3 > len(raw) {
				return 0, &ArchiveError{Offset: off, Reason: "truncated document"}
			}
			return archSkipContainer(raw, off+3, int(binary.BigEndian.Uint16(raw[off+1:])), c == msgpcode.Map16)
		case msgpcode.Array32, msgpcode.Map32:
			if off+5 > len(raw) {
				return 0, &ArchiveError{Offset: off, Reason: "truncated document"}
			}
			return archSkipContainer(raw, off+5, int(binary.BigEndian.Uint32(raw[off+1:])), c == msgpcode.Map32)
		default:
			return 0, &ArchiveError{Offset: off, Reason: fmt.Sprintf("unsupported element 0x%02x", c)}
		}
	}
	if off+need > len(raw) {
		return 0, &ArchiveError{Offset: off, Reason: "truncated document"}
	}
	return off + need, nil
}

func archSkipContainer(raw []byte, off, count int, isMap bool) (int, error) {
	var err error
	var prevKey string
	for i := 0; i < count; i++ {
		if isMap {
			key := Archived{raw: raw, off: off}
			if off >= len(raw) {
				return 0, &ArchiveError{Offset: off, Reason: "truncated document"}
			}
			if off, err = archSkip(raw, off); err != nil {
				return 0, err
			}
			if key.Kind() != String {
				return 0, &ArchiveError{Offset: key.off, Reason: "object key is not a string"}
			}
			if name := key.StringValue(); i > 0 && name <= prevKey {
				return 0, &ArchiveError{Offset: key.off, Reason: "object keys are not sorted"}
			} else {
				prevKey = name
			}
		}
		if off, err = archSkip(raw, off); err != nil {
			return 0, err
		}
	}
	return off, nil
}
