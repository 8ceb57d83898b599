package doc

import (
	"math"
	"testing"
)

func TestCompareOrdering(t *testing.T) {
	// Strictly ascending under the document total order.
	ordered := []any{
		nil,
		false,
		true,
		int64(math.MinInt64),
		float64(-2.5),
		int64(-1),
		int64(0),
		float64(0.5),
		uint64(1),
		int64(2),
		float64(math.MaxInt64) * 1.5,
		uint64(math.MaxUint64),
		float64(math.MaxUint64) * 4,
		"",
		"a",
		"aa",
		"b",
		[]byte{},
		[]byte{0x00},
		[]any{},
		[]any{int64(1)},
		[]any{int64(1), int64(0)},
		[]any{int64(2)},
		map[string]any{},
		map[string]any{"a": int64(1)},
		map[string]any{"a": int64(2)},
		map[string]any{"a": int64(2), "b": int64(0)},
		map[string]any{"b": int64(0)},
	}
	for i := 1; i < len(ordered); i++ {
		l, r := AsNode(ordered[i-1]), AsNode(ordered[i])
		if c := Compare(l, r); c >= 0 {
			t.Errorf("** Compare(%s, %s) = %d, wanted < 0", debugString(l), debugString(r), c)
		}
		if c := Compare(r, l); c <= 0 {
			t.Errorf("** Compare(%s, %s) = %d, wanted > 0", debugString(r), debugString(l), c)
		}
	}
	for _, v := range ordered {
		n := AsNode(v)
		if c := Compare(n, n); c != 0 {
			t.Errorf("** Compare(%s, itself) = %d", debugString(n), c)
		}
	}
}

func TestCompareNumericKinds(t *testing.T) {
	// Equal numeric values compare equal across machine representations.
	tests := [][2]any{
		{int64(5), uint64(5)},
		{int64(5), float64(5)},
		{uint64(5), float64(5)},
		{int64(0), float64(0)},
		{int64(math.MaxInt64), uint64(math.MaxInt64)},
	}
	for _, tt := range tests {
		if c := Compare(AsNode(tt[0]), AsNode(tt[1])); c != 0 {
			t.Errorf("** Compare(%v, %v) = %d, wanted 0", tt[0], tt[1], c)
		}
	}
	// A uint64 beyond int64 range still orders correctly against negatives.
	if c := Compare(AsNode(uint64(math.MaxUint64)), AsNode(int64(-1))); c <= 0 {
		t.Errorf("** MaxUint64 did not order above -1 (got %d)", c)
	}
}

func TestCompareAcrossBackings(t *testing.T) {
	raw := []byte(`{"a": [1, 2.5, "three"], "b": {"c": null, "d": true}, "e": -7}`)
	value := must(ParseJSON(raw))

	arena := NewArena()
	heap := arena.FromNode(AsNode(value))
	archived := must(LoadArchive(ArchiveNode(nil, AsNode(value))))

	backings := []Node{AsNode(value), &heap, archived}
	for i, l := range backings {
		for j, r := range backings {
			if c := Compare(l, r); c != 0 {
				t.Errorf("** backing %d != backing %d (got %d)", i, j, c)
			}
		}
	}
}
