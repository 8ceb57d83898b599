package doc

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/bits"
)

// Packed tuples concatenate self-delimiting elements whose byte-wise
// lexicographic order matches element-wise value order. Element tags:
//
//	00        null
//	01        byte string (00 escaped as 00 FF, terminated by 00)
//	02        UTF-8 string (same escaping)
//	05        nested tuple (nulls escaped as 00 FF, terminated by 00)
//	0b..1d    signed integers, tag 14+n for n positive bytes, 14-n negative
//	20        float32, 21 float64 (sign-transposed big-endian bits)
//	26 false, 27 true
const (
	tupleNullTag    = 0x00
	tupleBytesTag   = 0x01
	tupleStringTag  = 0x02
	tupleNestedTag  = 0x05
	tupleIntZeroTag = 0x14
	tupleFloat32Tag = 0x20
	tupleFloat64Tag = 0x21
	tupleFalseTag   = 0x26
	tupleTrueTag    = 0x27
)

func appendTupleNull(buf []byte) []byte {
	return append(buf, tupleNullTag)
}

func appendTupleBool(buf []byte, v bool) []byte {
	if v {
		return append(buf, tupleTrueTag)
	}
	return append(buf, tupleFalseTag)
}

func appendTupleString(buf []byte, s string) []byte {
	buf = append(buf, tupleStringTag)
	return appendTupleEscaped(buf, []byte(s))
}

func appendTupleBytes(buf, b []byte) []byte {
	buf = append(buf, tupleBytesTag)
	return appendTupleEscaped(buf, b)
}

func appendTupleEscaped(buf, b []byte) []byte {
	for _, c := range b {
		if c == 0x00 {
			buf = append(buf, 0x00, 0xff)
		} else {
			buf = append(buf, c)
		}
	}
	return append(buf, 0x00)
}

func appendTupleUint(buf []byte, v uint64) []byte {
	if v == 0 {
		return append(buf, tupleIntZeroTag)
	}
	n := (bits.Len64(v) + 7) / 8
	buf = append(buf, byte(tupleIntZeroTag+n))
	for i := n - 1; i >= 0; i-- {
		buf = append(buf, byte(v>>(8*i)))
	}
	return buf
}

func appendTupleInt(buf []byte, v int64) []byte {
	if v >= 0 {
		return appendTupleUint(buf, uint64(v))
	}
	// Negative values store magnitude offset by 2^(8n)-1 so that more
	// negative numbers sort first.
	mag := uint64(-v)
	n := (bits.Len64(mag) + 7) / 8
	biased := uint64(v) + (1<<(8*n) - 1) // wraps; low 8n bits are the encoding
	buf = append(buf, byte(tupleIntZeroTag-n))
	for i := n - 1; i >= 0; i-- {
		buf = append(buf, byte(biased>>(8*i)))
	}
	return buf
}

func appendTupleFloat64(buf []byte, v float64) []byte {
	buf = append(buf, tupleFloat64Tag)
	u := math.Float64bits(v)
	if u&(1<<63) != 0 {
		u = ^u
	} else {
		u ^= 1 << 63
	}
	return binary.BigEndian.AppendUint64(buf, u)
}

// unpackTuple decodes a packed tuple back into generic values: nil, bool,
// int64, uint64, float64, string, []byte and nested []any.
func unpackTuple(raw []byte) ([]any, error) {
	var out []any
	for len(raw) > 0 {
		v, rest, err := decodeTupleElement(raw, false)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		raw = rest
	}
	return out, nil
}

func decodeTupleElement(raw []byte, nested bool) (any, []byte, error) {
	tag := raw[0]
	raw = raw[1:]
	switch {
	case tag == tupleNullTag:
		if nested {
			// Inside a nested tuple a null carries the FF escape byte.
			if len(raw) == 0 || raw[0] != 0xff {
				return nil, nil, fmt.Errorf("doc: truncated nested null element")
			}
			return nil, raw[1:], nil
		}
		return nil, raw, nil
	case tag == tupleFalseTag:
		return false, raw, nil
	case tag == tupleTrueTag:
		return true, raw, nil
	case tag == tupleBytesTag, tag == tupleStringTag:
		body, rest, err := decodeTupleEscaped(raw)
		if err != nil {
			return nil, nil, err
		}
		if tag == tupleStringTag {
			return string(body), rest, nil
		}
		return body, rest, nil
	case tag == tupleNestedTag:
		var items []any
		for {
			if len(raw) == 0 {
				return nil, nil, fmt.Errorf("doc: unterminated nested tuple")
			}
			if raw[0] == 0x00 && (len(raw) == 1 || raw[1] != 0xff) {
				return items, raw[1:], nil
			}
			v, rest, err := decodeTupleElement(raw, true)
			if err != nil {
				return nil, nil, err
			}
			items = append(items, v)
			raw = rest
		}
	case tag >= tupleIntZeroTag && tag <= tupleIntZeroTag+8:
		n := int(tag - tupleIntZeroTag)
		if len(raw) < n {
			return nil, nil, fmt.Errorf("doc: truncated integer element")
		}
		var u uint64
		for i := 0; i < n; i++ {
			u = u<<8 | uint64(raw[i])
		}
		if u > math.MaxInt64 {
			return u, raw[n:], nil
		}
		return int64(u), raw[n:], nil
	case tag >= tupleIntZeroTag-8 && tag < tupleIntZeroTag:
		n := int(tupleIntZeroTag - tag)
		if len(raw) < n {
			return nil, nil, fmt.Errorf("doc: truncated integer element")
		}
		var u uint64
		for i := 0; i < n; i++ {
			u = u<<8 | uint64(raw[i])
		}
		return int64(u - (1<<(8*n) - 1)), raw[n:], nil
	case tag == tupleFloat32Tag:
		if len(raw) < 4 {
			return nil, nil, fmt.Errorf("doc: truncated float element")
		}
		u := binary.BigEndian.Uint32(raw)
		if u&(1<<31) != 0 {
			u ^= 1 << 31
		} else {
			u = ^u
		}
		return float64(math.Float32frombits(u)), raw[4:], nil
	case tag == tupleFloat64Tag:
		if len(raw) < 8 {
			return nil, nil, fmt.Errorf("doc: truncated float element")
		}
		u := binary.BigEndian.Uint64(raw)
		if u&(1<<63) != 0 {
			u ^= 1 << 63
		} else {
			u = ^u
		}
		return math.Float64frombits(u), raw[8:], nil
	default:
		return nil, nil, fmt.Errorf("doc: invalid tuple element tag 0x%02x", tag)
	}
}

func decodeTupleEscaped(raw []byte) (body, rest []byte, err error) {
	for i := 0; i < len(raw); i++ {
		if raw[i] != 0x00 {
			continue
		}
		if i+1 < len(raw) && raw[i+1] == 0xff {
			body = append(body, raw[:i]...)
			body = append(body, 0x00)
			raw = raw[i+2:]
			i = -1
			continue
		}
		body = append(body, raw[:i]...)
		return body, raw[i+1:], nil
	}
	return nil, nil, fmt.Errorf("doc: unterminated tuple element")
}
