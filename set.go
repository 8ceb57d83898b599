package doc

import "strings"

// The set strategy treats a document as a set manipulation: an object with
// an optional "add" term plus either an "intersect" or a "remove" term, all
// of one consistent inner type (every term an array, or every term an
// object). Reductions combine the manipulations so that applying the result
// is equivalent to applying each operand in order.

const (
	maskNone  uint8 = 0
	maskLeft  uint8 = 1
	maskRight uint8 = 2
	maskBoth  uint8 = 4
	maskUnion uint8 = maskLeft | maskRight | maskBoth
)

const (
	setAdd = iota
	setIntersect
	setRemove
)

func (r *reducer) set(s *Strategy, lhs, rhs Node, loc *location) (HeapNode, bool, error) {
	lt, rt, isObject, err := destructureSet(lhs, rhs)
	if err != nil {
		return HeapNode{}, false, reduceErr(loc.pointer(), lhs, rhs, err)
	}
	r.index++ // the object holding the set

	term := r.setVecTerm
	if isObject {
		term = r.setMapTerm
	}
	la, li, lr := lt[setAdd], lt[setIntersect], lt[setRemove]
	ra, ri, rr := rt[setAdd], rt[setIntersect], rt[setRemove]

	out := r.arena.ObjectNode(2)
	push := func(name string, node HeapNode) {
		out.fields = append(out.fields, Field{Name: name, Value: node})
	}

	// The "add" term comes first in both the tape and the output: terms are
	// consumed and emitted in sorted property order.
	switch {
	case li != nil && ri != nil:
		// add = (LA - RI') U RA; intersect = LI & RI.
		add, ok, err := term(s.Key, la, ri, true, maskUnion, ra, loc)
		if err != nil {
			return HeapNode{}, false, err
		}
		if ok {
			push("add", add)
		}
		both := maskBoth
		if r.full {
			both = maskNone
		}
		sect, ok, err := term(s.Key, li, nil, false, both, ri, loc)
		if err != nil {
			return HeapNode{}, false, err
		}
		if ok && !r.full {
			push("intersect", sect)
		}
	case li != nil:
		// add = (LA - RR) U RA; intersect = LI - RR.
		add, ok, err := term(s.Key, la, rr, false, maskUnion, ra, loc)
		if err != nil {
			return HeapNode{}, false, err
		}
		if ok {
			push("add", add)
		}
		left := maskLeft
		if r.full {
			left = maskNone
		}
		sect, ok, err := term(s.Key, li, nil, false, left, rr, loc)
		if err != nil {
			return HeapNode{}, false, err
		}
		if ok && !r.full {
			push("intersect", sect)
		}
	case ri != nil:
		// add = (LA - RI') U RA; intersect = RI - LR.
		add, ok, err := term(s.Key, la, ri, true, maskUnion, ra, loc)
		if err != nil {
			return HeapNode{}, false, err
		}
		if ok {
			push("add", add)
		}
		right := maskRight
		if r.full {
			right = maskNone
		}
		sect, ok, err := term(s.Key, lr, nil, false, right, ri, loc)
		if err != nil {
			return HeapNode{}, false, err
		}
		if ok && !r.full {
			push("intersect", sect)
		}
	default:
		// add = (LA - RR) U RA; remove = LR U RR.
		add, ok, err := term(s.Key, la, rr, false, maskUnion, ra, loc)
		if err != nil {
			return HeapNode{}, false, err
		}
		if ok {
			push("add", add)
		}
		union := maskUnion
		if r.full {
			union = maskNone
		}
		rm, ok, err := term(s.Key, lr, nil, false, union, rr, loc)
		if err != nil {
			return HeapNode{}, false, err
		}
		if ok && !r.full {
			push("remove", rm)
		}
	}
	return out, false, nil
}

// destructureSet unpacks the terms of both operands, enforcing the set shape
// and the consistency of inner types. A nil lhs destructures as empty.
func destructureSet(lhs, rhs Node) (lt, rt [3]Node, isObject bool, err error) {
	var arrays, objects bool
	unpack := func(side Node, slots *[3]Node) error {
		if side == nil {
			return nil
		}
		if side.Kind() != Object {
			return ErrSetWrongType
		}
		for i, ln := 0, side.Len(); i < ln; i++ {
			name, val := side.Field(i)
			var slot int
			switch name {
			case "add":
				slot = setAdd
			case "intersect":
				slot = setIntersect
			case "remove":
				slot = setRemove
				if slots[setIntersect] != nil {
					return ErrSetWrongType
				}
			default:
				return ErrSetWrongType
			}
			switch val.Kind() {
			case Array:
				arrays = true
			case Object:
				objects = true
			default:
				return ErrSetWrongType
			}
			slots[slot] = val
		}
		return nil
	}
	if err = unpack(lhs, &lt); err != nil {
		return
	}
	if err = unpack(rhs, &rt); err != nil {
		return
	}
	if arrays && objects {
		err = ErrSetWrongType
		return
	}
	isObject = objects
	return
}

// setVecTerm builds the array form of one output term as (lhs op1 sub) op2
// rhs, where op1 subtracts items found in sub (or, when naught, items NOT
// found in sub), and op2 is determined by mask: keep left-only, right-only
// and matched items per the mask bits. Right-hand items always consume
// their tape span, kept or not. Returns ok=false when there is no term to
// build.
func (r *reducer) setVecTerm(key []Pointer, lhs, sub Node, naught bool, mask uint8, rhs Node, loc *location) (HeapNode, bool, error) {
	if rhs != nil {
		r.index++ // the rhs term container
	} else if lhs == nil {
		return HeapNode{}, false, nil
	}

	// lhs filtered through sub, a merge-join over the shared key order.
	var left []Node
	llen, slen := nodeLen(lhs), nodeLen(sub)
	for li, si := 0, 0; li < llen; {
		c := -1
		if si < slen {
			c = ComparePointers(key, lhs.Item(li), sub.Item(si))
		}
		switch {
		case c < 0:
			if !naught {
				left = append(left, lhs.Item(li))
			}
			li++
		case c > 0:
			si++
		default:
			if naught {
				left = append(left, lhs.Item(li))
			}
			li++
			si++
		}
	}

	rlen := nodeLen(rhs)
	out := r.arena.ArrayNode(len(left) + rlen)
	li, ri := 0, 0
	for li < len(left) || ri < rlen {
		var c int
		switch {
		case li == len(left):
			c = 1
		case ri == rlen:
			c = -1
		default:
			c = ComparePointers(key, left[li], rhs.Item(ri))
		}
		switch {
		case c < 0:
			if mask&maskLeft != 0 {
				out.AppendItem(r.arena.FromNode(left[li]))
			}
			li++
		case c > 0:
			item := rhs.Item(ri)
			if mask&maskRight != 0 {
				out.AppendItem(r.arena.FromNode(item))
			}
			r.skip(item)
			ri++
		default:
			item := rhs.Item(ri)
			if mask&maskBoth != 0 {
				child, _, err := r.reduceNode(left[li], item, loc.pushIndex(ri))
				if err != nil {
					return HeapNode{}, false, err
				}
				out.AppendItem(child)
			} else {
				r.skip(item)
			}
			li++
			ri++
		}
	}
	return out, true, nil
}

// setMapTerm is setVecTerm for the object form: entries join by property
// name and the key pointers are unused.
func (r *reducer) setMapTerm(_ []Pointer, lhs, sub Node, naught bool, mask uint8, rhs Node, loc *location) (HeapNode, bool, error) {
	if rhs != nil {
		r.index++
	} else if lhs == nil {
		return HeapNode{}, false, nil
	}

	type entry struct {
		name string
		val  Node
	}
	var left []entry
	llen, slen := nodeLen(lhs), nodeLen(sub)
	for li, si := 0, 0; li < llen; {
		lname, lval := lhs.Field(li)
		c := -1
		if si < slen {
			sname, _ := sub.Field(si)
			c = strings.Compare(lname, sname)
		}
		switch {
		case c < 0:
			if !naught {
				left = append(left, entry{lname, lval})
			}
			li++
		case c > 0:
			si++
		default:
			if naught {
				left = append(left, entry{lname, lval})
			}
			li++
			si++
		}
	}

	rlen := nodeLen(rhs)
	out := r.arena.ObjectNode(len(left) + rlen)
	li, ri := 0, 0
	for li < len(left) || ri < rlen {
		var c int
		var rname string
		var rval Node
		if ri < rlen {
			rname, rval = rhs.Field(ri)
		}
		switch {
		case li == len(left):
			c = 1
		case ri == rlen:
			c = -1
		default:
			c = strings.Compare(left[li].name, rname)
		}
		switch {
		case c < 0:
			if mask&maskLeft != 0 {
				out.fields = append(out.fields, Field{Name: r.arena.internString(left[li].name), Value: r.arena.FromNode(left[li].val)})
			}
			li++
		case c > 0:
			if mask&maskRight != 0 {
				out.fields = append(out.fields, Field{Name: r.arena.internString(rname), Value: r.arena.FromNode(rval)})
			}
			r.skip(rval)
			ri++
		default:
			if mask&maskBoth != 0 {
				child, _, err := r.reduceNode(left[li].val, rval, loc.push(rname))
				if err != nil {
					return HeapNode{}, false, err
				}
				out.fields = append(out.fields, Field{Name: r.arena.internString(rname), Value: child})
			} else {
				r.skip(rval)
			}
			li++
			ri++
		}
	}
	return out, true, nil
}

func nodeLen(n Node) int {
	if n == nil {
		return 0
	}
	return n.Len()
}
