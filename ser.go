package doc

import (
	"encoding/base64"
	"math"
	"strconv"
	"unicode/utf8"
)

// SerPolicy bounds document serialization. A zero or nil policy serializes
// everything in full. Policies record whether they truncated anything since
// the last call to ResetTruncated, so a batch of serializations driven by
// one policy can be tagged as lossy.
type SerPolicy struct {
	// StrTruncateAfter is the maximum byte length of a serialized string
	// value. Longer strings are cut at a character boundary. Zero means
	// unlimited.
	StrTruncateAfter int

	truncated bool
}

func (p *SerPolicy) ResetTruncated() {
	if p != nil {
		p.truncated = false
	}
}

func (p *SerPolicy) Truncated() bool { return p != nil && p.truncated }

// Str applies the policy to one string value.
func (p *SerPolicy) Str(s string) string {
	if p == nil || p.StrTruncateAfter == 0 || len(s) <= p.StrTruncateAfter {
		return s
	}
	cut := p.StrTruncateAfter
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	p.truncated = true
	return s[:cut]
}

// AppendJSON renders a document as JSON under the policy, appending to buf.
// Object fields render in their stored order, which is ascending by name on
// every backing, so equal documents render identically.
func (p *SerPolicy) AppendJSON(buf []byte, n Node) []byte {
	switch n.Kind() {
	case Null:
		return append(buf, "null"...)
	case Bool:
		if n.BoolValue() {
			return append(buf, "true"...)
		}
		return append(buf, "false"...)
	case Uint:
		return strconv.AppendUint(buf, n.UintValue(), 10)
	case Int:
		return strconv.AppendInt(buf, n.IntValue(), 10)
	case Float:
		return appendJSONFloat(buf, n.FloatValue())
	case String:
		return appendJSONString(buf, p.Str(n.StringValue()))
	case BytesKind:
		buf = append(buf, '"')
		buf = append(buf, base64.StdEncoding.EncodeToString(n.BytesValue())...)
		return append(buf, '"')
	case Array:
		buf = append(buf, '[')
		for i, ln := 0, n.Len(); i < ln; i++ {
			if i > 0 {
				buf = append(buf, ',')
			}
			buf = p.AppendJSON(buf, n.Item(i))
		}
		return append(buf, ']')
	case Object:
		buf = append(buf, '{')
		for i, ln := 0, n.Len(); i < ln; i++ {
			if i > 0 {
				buf = append(buf, ',')
			}
			name, child := n.Field(i)
			buf = appendJSONString(buf, name)
			buf = append(buf, ':')
			buf = p.AppendJSON(buf, child)
		}
		return append(buf, '}')
	default:
		panic("doc: invalid node kind")
	}
}

func appendJSONFloat(buf []byte, f float64) []byte {
	// strconv's shortest form is valid JSON for all finite values; JSON has
	// no encoding for NaN or infinities, so those fall back to null.
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return append(buf, "null"...)
	}
	return strconv.AppendFloat(buf, f, 'g', -1, 64)
}

const jsonHex = "0123456789abcdef"

func appendJSONString(buf []byte, s string) []byte {
	buf = append(buf, '"')
	for _, r := range s {
		switch r {
		case '"':
			buf = append(buf, '\\', '"')
		case '\\':
			buf = append(buf, '\\', '\\')
		case '\n':
			buf = append(buf, '\\', 'n')
		case '\r':
			buf = append(buf, '\\', 'r')
		case '\t':
			buf = append(buf, '\\', 't')
		default:
			if r < 0x20 {
				buf = append(buf, '\\', 'u', '0', '0', jsonHex[r>>4], jsonHex[r&0xf])
			} else {
				buf = utf8.AppendRune(buf, r)
			}
		}
	}
	return append(buf, '"')
}
