package doc

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// debugString renders a node for error messages and logs. Long strings are
// cut so a single oversized operand cannot balloon an error chain.
func debugString(n Node) string {
	if n == nil {
		return "<absent>"
	}
	p := SerPolicy{StrTruncateAfter: 512}
	return string(p.AppendJSON(nil, n))
}

// DumpTuple renders a packed tuple for debugging, one element per segment.
func DumpTuple(raw []byte) string {
	elements, err := unpackTuple(raw)
	if err != nil {
		return fmt.Sprintf("<invalid tuple %s: %v>", hex.EncodeToString(raw), err)
	}
	var buf strings.Builder
	for i, el := range elements {
		if i > 0 {
			buf.WriteByte('|')
		}
		switch el := el.(type) {
		case nil:
			buf.WriteString("null")
		case []byte:
			buf.WriteString(hex.EncodeToString(el))
		case string:
			buf.WriteString(fmt.Sprintf("%q", el))
		default:
			fmt.Fprintf(&buf, "%v", el)
		}
	}
	return buf.String()
}
