package doc

import (
	"math"
	"sort"
	"strings"
)

// Reduce combines rhs into lhs under the strategies annotated on rhs by
// validation outcomes, returning the combined tree built in arena. The
// returned flag marks the result as a deletion; it is acted on, and
// intersect/remove set bookkeeping is pruned, only when full is set, which
// is only correct when lhs reflects the complete reduction history of its
// key. An absent lhs (nil) yields rhs converted to a heap tree, unchanged.
//
// Operands are read-only and may be any mix of backings; rhs must not alias
// a tree built in arena.
func Reduce(lhs, rhs Node, outcomes []Outcome, arena *Arena, full bool) (HeapNode, bool, error) {
	if lhs == nil {
		return arena.FromNode(rhs), false, nil
	}
	r := &reducer{tape: makeTape(outcomes), arena: arena, full: full}
	node, del, err := r.reduceNode(lhs, rhs, nil)
	if err != nil {
		return HeapNode{}, false, err
	}
	return node, del && full, nil
}

type tapeEntry struct {
	begin    int
	end      int
	strategy *Strategy
}

// makeTape orders outcomes by span begin, breaking ties by the deterministic
// strategy order so that conflicts surface identically however the schema
// arranged its branches.
func makeTape(outcomes []Outcome) []tapeEntry {
	tape := make([]tapeEntry, 0, len(outcomes))
	for _, o := range outcomes {
		tape = append(tape, tapeEntry{begin: o.Begin, end: o.End, strategy: o.Strategy})
	}
	sort.SliceStable(tape, func(i, j int) bool {
		if tape[i].begin != tape[j].begin {
			return tape[i].begin < tape[j].begin
		}
		return tape[i].strategy.less(tape[j].strategy)
	})
	return tape
}

type reducer struct {
	tape  []tapeEntry
	next  int // first unconsumed tape entry
	index int // current pre-order position in the right-hand document
	arena *Arena
	full  bool
}

// strategyAt consumes tape entries for the current position. Entries left
// behind by a subtree-consuming parent strategy are dropped; distinct
// strategies annotated at the same position are a conflict.
func (r *reducer) strategyAt() (*Strategy, error) {
	for r.next < len(r.tape) && r.tape[r.next].begin < r.index {
		r.next++
	}
	if r.next >= len(r.tape) || r.tape[r.next].begin > r.index {
		return defaultStrategy, nil
	}
	s := r.tape[r.next].strategy
	r.next++
	for r.next < len(r.tape) && r.tape[r.next].begin == r.index {
		if !s.equal(r.tape[r.next].strategy) {
			return nil, &ConflictError{First: s, Second: r.tape[r.next].strategy}
		}
		r.next++
	}
	return s, nil
}

// reduceNode reduces one location. lhs may be nil when the location exists
// only on the right; rhs is always present, with r.index at its position.
func (r *reducer) reduceNode(lhs, rhs Node, loc *location) (HeapNode, bool, error) {
	s, err := r.strategyAt()
	if err != nil {
		return HeapNode{}, false, reduceErr(loc.pointer(), lhs, rhs, err)
	}
	switch s.Kind {
	case LastWriteWins:
		return r.lastWriteWins(s, lhs, rhs, loc)
	case FirstWriteWins:
		return r.firstWriteWins(lhs, rhs)
	case Sum:
		return r.sum(lhs, rhs, loc)
	case Append:
		return r.append(lhs, rhs, loc)
	case Merge:
		return r.merge(s, lhs, rhs, loc)
	case Maximize:
		return r.extremum(s, lhs, rhs, loc, 1)
	case Minimize:
		return r.extremum(s, lhs, rhs, loc, -1)
	case Set:
		return r.set(s, lhs, rhs, loc)
	case JSONSchemaMerge:
		return r.schemaMerge(lhs, rhs, loc)
	default:
		panic("doc: invalid strategy kind")
	}
}

// skip consumes tape positions for the subtree of n without reducing it.
func (r *reducer) skip(n Node) {
	r.index += TapeLength(n)
}

func (r *reducer) lastWriteWins(s *Strategy, lhs, rhs Node, loc *location) (HeapNode, bool, error) {
	if !s.Associative && !r.full && lhs != nil && Compare(lhs, rhs) != 0 {
		return HeapNode{}, false, reduceErr(loc.pointer(), lhs, rhs, ErrNotAssociative)
	}
	r.skip(rhs)
	return r.arena.FromNode(rhs), s.Delete, nil
}

func (r *reducer) firstWriteWins(lhs, rhs Node) (HeapNode, bool, error) {
	r.skip(rhs)
	if lhs == nil {
		return r.arena.FromNode(rhs), false, nil
	}
	return r.arena.FromNode(lhs), false, nil
}

func (r *reducer) sum(lhs, rhs Node, loc *location) (HeapNode, bool, error) {
	if !isNumberKind(rhs) || (lhs != nil && !isNumberKind(lhs)) {
		return HeapNode{}, false, reduceErr(loc.pointer(), lhs, rhs, ErrSumWrongType)
	}
	l := number{kind: Uint}
	if lhs != nil {
		l = numberOf(lhs)
	}
	out, ok := addNumbers(l, numberOf(rhs))
	if !ok {
		return HeapNode{}, false, reduceErr(loc.pointer(), lhs, rhs, ErrSumOverflow)
	}
	r.skip(rhs)
	switch out.kind {
	case Uint:
		return UintNode(out.u), false, nil
	case Int:
		return IntNode(out.i), false, nil
	default:
		return FloatNode(out.f), false, nil
	}
}

func isNumberKind(n Node) bool {
	switch n.Kind() {
	case Uint, Int, Float:
		return true
	default:
		return false
	}
}

// addNumbers adds two numbers with overflow detection. Integer sums stay
// integers; a float operand makes the sum a float, which overflows when a
// finite pair produces an infinity.
func addNumbers(l, r number) (number, bool) {
	if l.kind == Float || r.kind == Float {
		lf, rf := l.float(), r.float()
		f := lf + rf
		if math.IsInf(f, 0) && !math.IsInf(lf, 0) && !math.IsInf(rf, 0) {
			return number{}, false
		}
		return number{kind: Float, f: f}, true
	}
	lneg, lmag := signMagnitude(l)
	rneg, rmag := signMagnitude(r)
	if lneg == rneg {
		mag := lmag + rmag
		if mag < lmag {
			return number{}, false
		}
		return composeNumber(lneg, mag, l, r)
	}
	if lmag >= rmag {
		return composeNumber(lneg, lmag-rmag, l, r)
	}
	return composeNumber(rneg, rmag-lmag, l, r)
}

func signMagnitude(n number) (bool, uint64) {
	switch {
	case n.kind == Uint:
		return false, n.u
	case n.i < 0:
		return true, uint64(-(n.i + 1)) + 1
	default:
		return false, uint64(n.i)
	}
}

func composeNumber(neg bool, mag uint64, l, r number) (number, bool) {
	if neg && mag > 0 {
		if mag > 1<<63 {
			return number{}, false
		}
		return number{kind: Int, i: -int64(mag-1) - 1}, true
	}
	if mag <= math.MaxInt64 && l.kind == Int && r.kind == Int {
		return number{kind: Int, i: int64(mag)}, true
	}
	return number{kind: Uint, u: mag}, true
}

func (r *reducer) append(lhs, rhs Node, loc *location) (HeapNode, bool, error) {
	if lhs != nil && lhs.Kind() == Null {
		r.skip(rhs)
		return NullNode(), false, nil
	}
	if rhs.Kind() != Array || (lhs != nil && lhs.Kind() != Array) {
		return HeapNode{}, false, reduceErr(loc.pointer(), lhs, rhs, ErrAppendWrongType)
	}
	var llen int
	if lhs != nil {
		llen = lhs.Len()
	}
	out := r.arena.ArrayNode(llen + rhs.Len())
	for i := 0; i < llen; i++ {
		out.AppendItem(r.arena.FromNode(lhs.Item(i)))
	}
	for i, ln := 0, rhs.Len(); i < ln; i++ {
		out.AppendItem(r.arena.FromNode(rhs.Item(i)))
	}
	r.skip(rhs)
	return out, false, nil
}

func (r *reducer) extremum(s *Strategy, lhs, rhs Node, loc *location, sign int) (HeapNode, bool, error) {
	if lhs == nil {
		r.skip(rhs)
		return r.arena.FromNode(rhs), false, nil
	}
	var c int
	if len(s.Key) > 0 {
		c = ComparePointers(s.Key, lhs, rhs)
	} else {
		c = Compare(lhs, rhs)
	}
	switch {
	case c*sign < 0:
		// rhs wins
		r.skip(rhs)
		return r.arena.FromNode(rhs), false, nil
	case c != 0:
		// lhs wins
		r.skip(rhs)
		return r.arena.FromNode(lhs), false, nil
	case len(s.Key) > 0:
		// Keyed ties deep-merge, so additional annotated reductions below
		// this location still apply.
		return r.merge(&Strategy{Kind: Merge, Associative: true}, lhs, rhs, loc)
	default:
		r.skip(rhs)
		return r.arena.FromNode(rhs), false, nil
	}
}

func (r *reducer) merge(s *Strategy, lhs, rhs Node, loc *location) (HeapNode, bool, error) {
	if rhs.Kind() != Array && rhs.Kind() != Object {
		return HeapNode{}, false, reduceErr(loc.pointer(), lhs, rhs, ErrMergeWrongType)
	}
	if lhs != nil && lhs.Kind() != rhs.Kind() {
		// A type switch discards the left side, which only reduces
		// correctly against full history.
		if !r.full {
			return HeapNode{}, false, reduceErr(loc.pointer(), lhs, rhs, ErrNotAssociative)
		}
		lhs = nil
	}
	r.index++ // the container itself
	var out HeapNode
	var err error
	switch {
	case rhs.Kind() == Object:
		out, err = r.mergeObjects(lhs, rhs, loc)
	case len(s.Key) > 0:
		out, err = r.mergeArraysByKey(s.Key, lhs, rhs, loc)
	default:
		out, err = r.mergeArraysByIndex(lhs, rhs, loc)
	}
	if err != nil {
		return HeapNode{}, false, err
	}
	return out, s.Delete, nil
}

func (r *reducer) mergeArraysByIndex(lhs, rhs Node, loc *location) (HeapNode, error) {
	var llen int
	if lhs != nil {
		llen = lhs.Len()
	}
	rlen := rhs.Len()
	out := r.arena.ArrayNode(max(llen, rlen))
	for i := 0; i < max(llen, rlen); i++ {
		switch {
		case i < llen && i < rlen:
			child, del, err := r.reduceNode(lhs.Item(i), rhs.Item(i), loc.pushIndex(i))
			if err != nil {
				return HeapNode{}, err
			}
			if !(del && r.full) {
				out.AppendItem(child)
			}
		case i < rlen:
			child, del, err := r.reduceNode(nil, rhs.Item(i), loc.pushIndex(i))
			if err != nil {
				return HeapNode{}, err
			}
			if !(del && r.full) {
				out.AppendItem(child)
			}
		default:
			out.AppendItem(r.arena.FromNode(lhs.Item(i)))
		}
	}
	return out, nil
}

func (r *reducer) mergeArraysByKey(key []Pointer, lhs, rhs Node, loc *location) (HeapNode, error) {
	var llen int
	if lhs != nil {
		llen = lhs.Len()
	}
	rlen := rhs.Len()
	out := r.arena.ArrayNode(llen + rlen)
	li, ri := 0, 0
	for li < llen || ri < rlen {
		var c int
		switch {
		case li == llen:
			c = 1
		case ri == rlen:
			c = -1
		default:
			c = ComparePointers(key, lhs.Item(li), rhs.Item(ri))
		}
		switch {
		case c < 0:
			out.AppendItem(r.arena.FromNode(lhs.Item(li)))
			li++
		default:
			var left Node
			if c == 0 {
				left = lhs.Item(li)
				li++
			}
			child, del, err := r.reduceNode(left, rhs.Item(ri), loc.pushIndex(ri))
			ri++
			if err != nil {
				return HeapNode{}, err
			}
			if !(del && r.full) {
				out.AppendItem(child)
			}
		}
	}
	return out, nil
}

func (r *reducer) mergeObjects(lhs, rhs Node, loc *location) (HeapNode, error) {
	var llen int
	if lhs != nil {
		llen = lhs.Len()
	}
	rlen := rhs.Len()
	out := r.arena.ObjectNode(llen + rlen)
	li, ri := 0, 0
	for li < llen || ri < rlen {
		var lname, rname string
		var lval, rval Node
		if li < llen {
			lname, lval = lhs.Field(li)
		}
		if ri < rlen {
			rname, rval = rhs.Field(ri)
		}
		var c int
		switch {
		case li == llen:
			c = 1
		case ri == rlen:
			c = -1
		default:
			c = strings.Compare(lname, rname)
		}
		switch {
		case c < 0:
			out.fields = append(out.fields, Field{Name: r.arena.internString(lname), Value: r.arena.FromNode(lval)})
			li++
		default:
			var left Node
			name := rname
			if c == 0 {
				left = lval
				li++
			}
			child, del, err := r.reduceNode(left, rval, loc.push(name))
			ri++
			if err != nil {
				return HeapNode{}, err
			}
			if !(del && r.full) {
				out.fields = append(out.fields, Field{Name: r.arena.internString(name), Value: child})
			}
		}
	}
	return out, nil
}
