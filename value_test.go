package doc

import (
	"math"
	"reflect"
	"testing"
)

func TestParseJSONNumbers(t *testing.T) {
	tests := []struct {
		json     string
		expected any
	}{
		{`0`, int64(0)},
		{`-1`, int64(-1)},
		{`9223372036854775807`, int64(math.MaxInt64)},
		{`9223372036854775808`, uint64(math.MaxInt64) + 1},
		{`18446744073709551615`, uint64(math.MaxUint64)},
		{`18446744073709551616`, float64(18446744073709551616)},
		{`1.0`, float64(1)},
		{`-2.5e3`, float64(-2500)},
	}
	for _, tt := range tests {
		got := must(ParseJSON([]byte(tt.json)))
		if !reflect.DeepEqual(got, tt.expected) {
			t.Errorf("** ParseJSON(%s) = %T(%v), wanted %T(%v)", tt.json, got, got, tt.expected, tt.expected)
		}
	}
}

func TestParseJSONErrors(t *testing.T) {
	tests := []string{
		``,
		`{`,
		`[1,]`,
		`{"a": 1} trailing`,
		`{"a": 1}{"b": 2}`,
	}
	for _, tt := range tests {
		if _, err := ParseJSON([]byte(tt)); err == nil {
			t.Errorf("** ParseJSON(%q) did not fail", tt)
		}
	}
}

func TestValueRoundTrip(t *testing.T) {
	src := must(ParseJSON([]byte(`{
		"null": null,
		"bool": true,
		"int": -42,
		"big": 18446744073709551615,
		"float": 0.5,
		"str": "hello",
		"arr": [1, [2], {"three": 3}],
		"obj": {"nested": {"deep": []}}
	}`)))

	arena := NewArena()
	heap := arena.FromNode(AsNode(src))
	for _, n := range []Node{AsNode(src), &heap} {
		got := Value(n)
		if !reflect.DeepEqual(got, src) {
			t.Errorf("** Value round-trip differs: %#v", got)
		}
	}

	// Archives normalize non-negative integers to the unsigned kind, so the
	// archived backing round-trips to an equal document rather than an
	// identical value tree.
	archived := must(LoadArchive(ArchiveNode(nil, AsNode(src))))
	if c := Compare(AsNode(Value(archived)), AsNode(src)); c != 0 {
		t.Errorf("** archived Value round-trip differs (Compare = %d)", c)
	}
}

func TestValueNodeFieldOrder(t *testing.T) {
	n := AsNode(map[string]any{"c": int64(3), "a": int64(1), "b": int64(2)})
	var names []string
	for i := 0; i < n.Len(); i++ {
		name, _ := n.Field(i)
		names = append(names, name)
	}
	if !reflect.DeepEqual(names, []string{"a", "b", "c"}) {
		t.Errorf("** fields iterate as %v, wanted ascending name order", names)
	}
}
