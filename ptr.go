package doc

import (
	"strconv"
	"strings"
)

type tokenKind uint8

const (
	tokenProperty tokenKind = iota
	tokenIndex
	tokenNextIndex
	tokenNextProperty
)

// Token is a single step of a Pointer: an object property, an array index, or
// one of the two write-only forms NextIndex ("-", the next unoccupied array
// slot) and NextProperty ("*", a property whose name is not yet known).
type Token struct {
	kind  tokenKind
	index int
	name  string
}

func PropertyToken(name string) Token { return Token{kind: tokenProperty, name: name} }
func IndexToken(i int) Token          { return Token{kind: tokenIndex, index: i} }
func NextIndexToken() Token           { return Token{kind: tokenNextIndex} }
func NextPropertyToken() Token        { return Token{kind: tokenNextProperty} }

func (t Token) String() string {
	switch t.kind {
	case tokenIndex:
		return strconv.Itoa(t.index)
	case tokenNextIndex:
		return "-"
	case tokenNextProperty:
		return "*"
	default:
		return t.name
	}
}

// Pointer is a parsed JSON Pointer: a sequence of tokens addressing a
// location within a document.
type Pointer []Token

// ParsePointer parses s. Parsing cannot fail: any segment is a valid token.
// Pointers missing the leading slash are treated as if rooted. A segment is
// an Index only if it is a plain decimal integer; "-" is NextIndex, "*" is
// NextProperty, and everything else, including zero-padded or "+"-prefixed
// numbers, is a Property.
func ParsePointer(s string) Pointer {
	if s == "" {
		return nil
	}
	s = strings.TrimPrefix(s, "/")
	segments := strings.Split(s, "/")
	ptr := make(Pointer, 0, len(segments))
	for _, seg := range segments {
		seg = strings.ReplaceAll(seg, "~1", "/")
		seg = strings.ReplaceAll(seg, "~0", "~")
		ptr = append(ptr, parseToken(seg))
	}
	return ptr
}

func parseToken(seg string) Token {
	switch seg {
	case "-":
		return NextIndexToken()
	case "*":
		return NextPropertyToken()
	}
	if isDecimalIndex(seg) {
		if i, err := strconv.Atoi(seg); err == nil {
			return IndexToken(i)
		}
	}
	return PropertyToken(seg)
}

// isDecimalIndex reports whether seg is a canonical unsigned decimal:
// no sign, no leading zeros (except "0" itself), digits only.
func isDecimalIndex(seg string) bool {
	if seg == "" || (len(seg) > 1 && seg[0] == '0') {
		return false
	}
	for i := 0; i < len(seg); i++ {
		if seg[i] < '0' || seg[i] > '9' {
			return false
		}
	}
	return true
}

// String renders the pointer back to its canonical form. Parsing the result
// yields an equal Pointer; the textual form may differ from an unrooted or
// escaped original.
func (p Pointer) String() string {
	if len(p) == 0 {
		return ""
	}
	var b strings.Builder
	for _, t := range p {
		b.WriteByte('/')
		switch t.kind {
		case tokenProperty:
			name := strings.ReplaceAll(t.name, "~", "~0")
			name = strings.ReplaceAll(name, "/", "~1")
			b.WriteString(name)
		default:
			b.WriteString(t.String())
		}
	}
	return b.String()
}

// Query resolves the pointer against a document, without modifying it.
// Properties and indices address object fields and array items; an Index
// against an object matches the field named by its decimal form. NextIndex
// and NextProperty never match.
func (p Pointer) Query(doc Node) (Node, bool) {
	cur := doc
	for _, t := range p {
		switch cur.Kind() {
		case Object:
			var name string
			switch t.kind {
			case tokenProperty:
				name = t.name
			case tokenIndex:
				name = strconv.Itoa(t.index)
			default:
				return nil, false
			}
			child, ok := cur.Lookup(name)
			if !ok {
				return nil, false
			}
			cur = child
		case Array:
			if t.kind != tokenIndex || t.index >= cur.Len() {
				return nil, false
			}
			cur = cur.Item(t.index)
		default:
			return nil, false
		}
	}
	return cur, true
}

// CreateValue resolves the pointer within a generic value tree, creating
// missing locations along the way: nulls become objects or arrays as the
// next token requires, and arrays are padded with nulls up to an addressed
// index. fn receives the existing value at the resolved location and its
// result is stored there. Returns false when resolution aborts on an
// incompatible token, in which case fn is not called; locations already
// created are not rolled back.
func (p Pointer) CreateValue(root *any, fn func(prev any) any) bool {
	return createValue(p, *root, func(v any) { *root = v }, fn)
}

func createValue(tokens []Token, cur any, store func(any), fn func(any) any) bool {
	if len(tokens) == 0 {
		store(fn(cur))
		return true
	}
	t := tokens[0]
	if cur == nil {
		switch t.kind {
		case tokenProperty, tokenNextProperty:
			cur = map[string]any{}
		default:
			cur = []any{}
		}
		store(cur)
	}
	switch v := cur.(type) {
	case map[string]any:
		var name string
		switch t.kind {
		case tokenProperty:
			name = t.name
		case tokenIndex:
			name = strconv.Itoa(t.index)
		default:
			return false
		}
		return createValue(tokens[1:], v[name], func(nv any) { v[name] = nv }, fn)
	case []any:
		var idx int
		switch t.kind {
		case tokenIndex:
			idx = t.index
		case tokenNextIndex:
			idx = len(v)
		default:
			return false
		}
		for len(v) <= idx {
			v = append(v, nil)
		}
		store(v)
		return createValue(tokens[1:], v[idx], func(nv any) { v[idx] = nv }, fn)
	default:
		return false
	}
}

// CreateHeapNode is CreateValue for arena trees: it resolves the pointer
// within root, creating missing locations, and returns the resolved node.
// The same pointer creates the same structure in either tree form.
func (p Pointer) CreateHeapNode(root *HeapNode, a *Arena) (*HeapNode, bool) {
	cur := root
	for _, t := range p {
		if cur.kind == Null {
			switch t.kind {
			case tokenProperty, tokenNextProperty:
				*cur = a.ObjectNode(1)
			default:
				*cur = a.ArrayNode(1)
			}
		}
		switch cur.kind {
		case Object:
			var name string
			switch t.kind {
			case tokenProperty:
				name = t.name
			case tokenIndex:
				name = strconv.Itoa(t.index)
			default:
				return nil, false
			}
			cur = cur.getOrInsertField(a, name)
		case Array:
			var idx int
			switch t.kind {
			case tokenIndex:
				idx = t.index
			case tokenNextIndex:
				idx = len(cur.items)
			default:
				return nil, false
			}
			for len(cur.items) <= idx {
				cur.items = append(cur.items, NullNode())
			}
			cur = &cur.items[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

// location is a linked path within a document being walked, rendered to a
// pointer string only when an error or log message needs it.
type location struct {
	parent  *location
	name    string
	index   int
	isIndex bool
}

func (l *location) push(name string) *location {
	return &location{parent: l, name: name}
}

func (l *location) pushIndex(i int) *location {
	return &location{parent: l, index: i, isIndex: true}
}

func (l *location) pointer() string {
	if l == nil {
		return ""
	}
	var p Pointer
	for ; l != nil; l = l.parent {
		if l.isIndex {
			p = append(p, IndexToken(l.index))
		} else {
			p = append(p, PropertyToken(l.name))
		}
	}
	for i, j := 0, len(p)-1; i < j; i, j = i+1, j-1 {
		p[i], p[j] = p[j], p[i]
	}
	return p.String()
}

func (n *HeapNode) getOrInsertField(a *Arena, name string) *HeapNode {
	i, ok := n.findField(name)
	if ok {
		return &n.fields[i].Value
	}
	n.fields = append(n.fields, Field{})
	copy(n.fields[i+1:], n.fields[i:])
	n.fields[i] = Field{Name: a.internString(name)}
	return &n.fields[i].Value
}
