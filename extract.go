package doc

import (
	"time"

	"github.com/google/uuid"
)

type extractMode uint8

const (
	extractPlain extractMode = iota
	extractUUIDTimestamp
	extractTruncationIndicator
)

// rfc3339Nano9 has a fixed-width fraction, so rendered timestamps sort
// byte-wise in chronological order.
const rfc3339Nano9 = "2006-01-02T15:04:05.000000000Z07:00"

// Extractor extracts one location of a document into a packed tuple element.
type Extractor struct {
	ptr    Pointer
	policy *SerPolicy
	dflt   any
	mode   extractMode
}

// NewExtractor builds an extractor of the location addressed by ptr.
// Documents where the location is absent extract as null.
func NewExtractor(ptr string, policy *SerPolicy) *Extractor {
	return &Extractor{ptr: ParsePointer(ptr), policy: policy}
}

// WithDefault substitutes dflt, a generic value tree, for absent locations.
func (ex *Extractor) WithDefault(dflt any) *Extractor {
	ex.dflt = dflt
	return ex
}

// ForUUIDTimestamp converts extracted v1 UUID strings into their embedded
// timestamps, rendered as fixed-width RFC 3339. Values that are not v1 UUID
// strings pass through unchanged.
func (ex *Extractor) ForUUIDTimestamp() *Extractor {
	ex.mode = extractUUIDTimestamp
	return ex
}

// NewTruncationIndicator builds an extractor that packs a false boolean,
// rewritten to true after the fact if policy truncated any string while the
// surrounding ExtractAll batch was packed. At most one indicator may appear
// in a batch.
func NewTruncationIndicator(policy *SerPolicy) *Extractor {
	return &Extractor{policy: policy, mode: extractTruncationIndicator}
}

// query resolves the extractor's location, applying its mode and falling
// back to its default. Exactly one of the results is set, with synthesized
// values carried in the generic slot.
func (ex *Extractor) query(doc Node) (Node, any) {
	if ex.mode == extractTruncationIndicator {
		return nil, false
	}
	n, ok := ex.ptr.Query(doc)
	if !ok {
		if s, ok := ex.dflt.(string); ok && ex.mode == extractUUIDTimestamp {
			if ts, ok := uuidV1Timestamp(s); ok {
				return nil, ts
			}
		}
		return nil, ex.dflt
	}
	if ex.mode == extractUUIDTimestamp && n.Kind() == String {
		if ts, ok := uuidV1Timestamp(n.StringValue()); ok {
			return nil, ts
		}
	}
	return n, nil
}

func (ex *Extractor) appendPacked(buf []byte, doc Node) []byte {
	n, dflt := ex.query(doc)
	if n == nil {
		n = AsNode(dflt)
	}
	return appendPackedNode(buf, n, ex.policy)
}

// appendPackedNode packs a single node: scalars in their natural element
// encodings, arrays and objects as byte strings holding their JSON form
// under the policy.
func appendPackedNode(buf []byte, n Node, policy *SerPolicy) []byte {
	switch n.Kind() {
	case Null:
		return appendTupleNull(buf)
	case Bool:
		return appendTupleBool(buf, n.BoolValue())
	case Uint:
		return appendTupleUint(buf, n.UintValue())
	case Int:
		return appendTupleInt(buf, n.IntValue())
	case Float:
		return appendTupleFloat64(buf, n.FloatValue())
	case String:
		return appendTupleString(buf, policy.Str(n.StringValue()))
	case BytesKind:
		return appendTupleBytes(buf, n.BytesValue())
	default:
		return appendTupleBytes(buf, policy.AppendJSON(nil, n))
	}
}

func uuidV1Timestamp(s string) (string, bool) {
	u, err := uuid.Parse(s)
	if err != nil || u.Version() != 1 {
		return "", false
	}
	sec, nsec := u.Time().UnixTime()
	return time.Unix(sec, nsec).UTC().Format(rfc3339Nano9), true
}

// ExtractAll extracts doc under each extractor in order and packs the
// results into a single tuple. scratch is reusable working storage; it is
// left empty and the returned tuple does not alias it.
func ExtractAll(doc Node, extractors []*Extractor, scratch *[]byte) []byte {
	buf := (*scratch)[:0]
	indicator := -1
	for _, ex := range extractors {
		ex.policy.ResetTruncated()
	}
	for _, ex := range extractors {
		if ex.mode == extractTruncationIndicator {
			if indicator >= 0 {
				panic("doc: multiple truncation indicators in one extraction")
			}
			indicator = len(buf)
			buf = appendTupleBool(buf, false)
			continue
		}
		buf = ex.appendPacked(buf, doc)
	}
	if indicator >= 0 {
		for _, ex := range extractors {
			if ex.policy.Truncated() {
				buf[indicator] = tupleTrueTag
				break
			}
		}
	}
	packed := append([]byte(nil), buf...)
	*scratch = buf[:0]
	return packed
}

// CompareKey orders lhs and rhs under a composite key, resolving each
// extractor's location on both sides with its default applied. This is not
// the same order as comparing packed tuples of documents with defaults:
// packing serializes the substituted default, comparing does not.
func CompareKey(key []*Extractor, lhs, rhs Node) int {
	for _, ex := range key {
		ln, ld := ex.query(lhs)
		rn, rd := ex.query(rhs)
		if ln == nil {
			ln = AsNode(ld)
		}
		if rn == nil {
			rn = AsNode(rd)
		}
		if c := Compare(ln, rn); c != 0 {
			return c
		}
	}
	return 0
}

// ComparePointers orders lhs and rhs under key pointers alone: absent
// locations compare as null, and no defaults apply. Use CompareKey wherever
// key extractors carry defaults; the two orders differ on absent locations.
func ComparePointers(ptrs []Pointer, lhs, rhs Node) int {
	for _, p := range ptrs {
		ln, lok := p.Query(lhs)
		rn, rok := p.Query(rhs)
		if !lok {
			ln = AsNode(nil)
		}
		if !rok {
			rn = AsNode(nil)
		}
		if c := Compare(ln, rn); c != 0 {
			return c
		}
	}
	return 0
}
