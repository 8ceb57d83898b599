package doc

import (
	"bytes"
	"cmp"
	"strings"
)

// Compare defines a total order over documents regardless of backing:
// null < booleans < numbers < strings < bytes < arrays < objects.
// Numbers compare by numeric value across integer and float kinds. Arrays
// compare item by item, then by length. Objects compare field by field,
// name first and value second, then by length.
func Compare(lhs, rhs Node) int {
	lr, rr := kindRank(lhs.Kind()), kindRank(rhs.Kind())
	if lr != rr {
		return cmp.Compare(lr, rr)
	}
	switch lhs.Kind() {
	case Null:
		return 0
	case Bool:
		return cmp.Compare(boolBits(lhs.BoolValue()), boolBits(rhs.BoolValue()))
	case Uint, Int, Float:
		return compareNumbers(numberOf(lhs), numberOf(rhs))
	case String:
		return strings.Compare(lhs.StringValue(), rhs.StringValue())
	case BytesKind:
		return bytes.Compare(lhs.BytesValue(), rhs.BytesValue())
	case Array:
		ln, rn := lhs.Len(), rhs.Len()
		for i := 0; i < min(ln, rn); i++ {
			if c := Compare(lhs.Item(i), rhs.Item(i)); c != 0 {
				return c
			}
		}
		return cmp.Compare(ln, rn)
	case Object:
		ln, rn := lhs.Len(), rhs.Len()
		for i := 0; i < min(ln, rn); i++ {
			lname, lval := lhs.Field(i)
			rname, rval := rhs.Field(i)
			if c := strings.Compare(lname, rname); c != 0 {
				return c
			}
			if c := Compare(lval, rval); c != 0 {
				return c
			}
		}
		return cmp.Compare(ln, rn)
	default:
		panic("doc: invalid node kind")
	}
}

// kindRank collapses the three numeric kinds into one rank.
func kindRank(k Kind) int {
	switch k {
	case Uint, Int, Float:
		return int(Uint)
	default:
		return int(k)
	}
}

// number is a numeric value in one of the three machine representations.
type number struct {
	kind Kind
	u    uint64
	i    int64
	f    float64
}

func numberOf(n Node) number {
	switch n.Kind() {
	case Uint:
		return number{kind: Uint, u: n.UintValue()}
	case Int:
		return number{kind: Int, i: n.IntValue()}
	case Float:
		return number{kind: Float, f: n.FloatValue()}
	default:
		panic(badKind("numberOf", n.Kind()))
	}
}

func (n number) float() float64 {
	switch n.kind {
	case Uint:
		return float64(n.u)
	case Int:
		return float64(n.i)
	default:
		return n.f
	}
}

func compareNumbers(l, r number) int {
	if l.kind == Uint && r.kind == Uint {
		return cmp.Compare(l.u, r.u)
	}
	if l.kind == Int && r.kind == Int {
		return cmp.Compare(l.i, r.i)
	}
	if l.kind == Uint && r.kind == Int {
		if r.i < 0 {
			return 1
		}
		return cmp.Compare(l.u, uint64(r.i))
	}
	if l.kind == Int && r.kind == Uint {
		return -compareNumbers(r, l)
	}
	return cmp.Compare(l.float(), r.float())
}
