package doc

import (
	"errors"
	"testing"
)

type setStep struct {
	rhs  string
	full bool
	want string
}

// runSetSequence folds each step into the accumulated root and checks the
// intermediate result, so set bookkeeping is verified across the whole
// reduction history rather than only at the end.
func runSetSequence(t *testing.T, schema string, steps []setStep) {
	t.Helper()
	s := buildSchemaJSON(t, schema)
	arena := NewArena()
	var root *HeapNode
	for i, st := range steps {
		rhs := AsNode(must(ParseJSON([]byte(st.rhs))))
		outcomes, err := Validate(rhs, s)
		if err != nil {
			t.Fatalf("** step %d failed validation: %v", i, err)
		}
		var lhs Node
		if root != nil {
			lhs = root
		}
		node, _, err := Reduce(lhs, rhs, outcomes, arena, st.full)
		if err != nil {
			t.Fatalf("** step %d failed to reduce: %v", i, err)
		}
		root = &node
		if want := AsNode(must(ParseJSON([]byte(st.want)))); Compare(root, want) != 0 {
			t.Fatalf("** step %d reduced to %s, wanted %s", i, debugString(root), st.want)
		}
	}
}

func TestSetArraySequence(t *testing.T) {
	runSetSequence(t, `{
		"$defs": {
			"entry": {
				"type": "array",
				"items": [
					{"type": "integer"},
					{"type": "integer", "reduce": {"strategy": "sum"}}
				],
				"reduce": {"strategy": "merge"}
			}
		},
		"properties": {
			"add": {"items": {"$ref": "#/$defs/entry"}}
		},
		"reduce": {"strategy": "set", "key": ["/0"]}
	}`, []setStep{
		{
			rhs:  `{"add": [[55, 1]]}`,
			want: `{"add": [[55, 1]]}`,
		},
		{
			rhs:  `{"add": [[99, 1]]}`,
			want: `{"add": [[55, 1], [99, 1]]}`,
		},
		{
			rhs:  `{"remove": [[99]], "add": [[22, 1], [55, 1]]}`,
			want: `{"remove": [[99]], "add": [[22, 1], [55, 2]]}`,
		},
		{
			rhs:  `{"remove": [[55]], "add": [[22, 3], [55, 1]]}`,
			want: `{"remove": [[55], [99]], "add": [[22, 4], [55, 1]]}`,
		},
		// Full reductions prune "remove".
		{
			rhs:  `{"remove": [[88]], "add": [[11, 1], [22, 2]]}`,
			full: true,
			want: `{"add": [[11, 1], [22, 6], [55, 1]]}`,
		},
		{
			rhs:  `{"remove": [[55]]}`,
			full: true,
			want: `{"add": [[11, 1], [22, 6]]}`,
		},
		{
			rhs:  `{"intersect": [[22], [33]]}`,
			want: `{"intersect": [[22], [33]], "add": [[22, 6]]}`,
		},
		{
			rhs:  `{"add": [[22, 2], [33, 1]]}`,
			want: `{"intersect": [[22], [33]], "add": [[22, 8], [33, 1]]}`,
		},
		{
			rhs:  `{"intersect": [[33], [44]], "add": [[22, 1], [33, 1]]}`,
			want: `{"intersect": [[33]], "add": [[22, 1], [33, 2]]}`,
		},
		{
			rhs:  `{"remove": [[33]], "add": [[22, 1], [33, 1]]}`,
			want: `{"intersect": [], "add": [[22, 2], [33, 1]]}`,
		},
		// Full reductions prune "intersect".
		{
			rhs:  `{"add": [[33, 1]]}`,
			full: true,
			want: `{"add": [[22, 2], [33, 2]]}`,
		},
		{
			rhs:  `{"remove": [[33]]}`,
			want: `{"add": [[22, 2]], "remove": [[33]]}`,
		},
	})
}

func TestSetObjectSequence(t *testing.T) {
	runSetSequence(t, `{
		"properties": {
			"add": {
				"additionalProperties": {
					"type": "integer",
					"reduce": {"strategy": "sum"}
				}
			}
		},
		"reduce": {"strategy": "set"}
	}`, []setStep{
		{
			rhs:  `{"add": {"55": 1}}`,
			want: `{"add": {"55": 1}}`,
		},
		{
			rhs:  `{"add": {"99": 1}}`,
			want: `{"add": {"55": 1, "99": 1}}`,
		},
		{
			rhs:  `{"remove": {"99": 0}, "add": {"22": 1, "55": 1}}`,
			want: `{"remove": {"99": 0}, "add": {"22": 1, "55": 2}}`,
		},
		{
			rhs:  `{"remove": {"55": 0}, "add": {"22": 3, "55": 1}}`,
			want: `{"remove": {"55": 0, "99": 0}, "add": {"22": 4, "55": 1}}`,
		},
		{
			rhs:  `{"remove": {"88": 0}, "add": {"11": 1, "22": 2}}`,
			full: true,
			want: `{"add": {"11": 1, "22": 6, "55": 1}}`,
		},
		{
			rhs:  `{"remove": {"55": 0}}`,
			full: true,
			want: `{"add": {"11": 1, "22": 6}}`,
		},
		{
			rhs:  `{"intersect": {"22": 0, "33": 0}}`,
			want: `{"intersect": {"22": 0, "33": 0}, "add": {"22": 6}}`,
		},
		{
			rhs:  `{"add": {"22": 2, "33": 1}}`,
			want: `{"intersect": {"22": 0, "33": 0}, "add": {"22": 8, "33": 1}}`,
		},
		{
			rhs:  `{"intersect": {"33": 0, "44": 0}, "add": {"22": 1, "33": 1}}`,
			want: `{"intersect": {"33": 0}, "add": {"22": 1, "33": 2}}`,
		},
		{
			rhs:  `{"remove": {"33": 0}, "add": {"22": 1, "33": 1}}`,
			want: `{"intersect": {}, "add": {"22": 2, "33": 1}}`,
		},
		{
			rhs:  `{"add": {"33": 1}}`,
			full: true,
			want: `{"add": {"22": 2, "33": 2}}`,
		},
		{
			rhs:  `{"remove": {"33": 0}}`,
			want: `{"add": {"22": 2}, "remove": {"33": 0}}`,
		},
	})
}

func TestSetDestructureErrors(t *testing.T) {
	tests := []struct {
		name     string
		lhs, rhs string
	}{
		{"mixed types within a side", `{"add": {}, "intersect": []}`, `{}`},
		{"mixed types across sides", `{"add": {}}`, `{"intersect": []}`},
		{"intersect and remove on one side", `{"intersect": [], "remove": []}`, `{}`},
		{"unknown property", `{"add": []}`, `{"add": [], "union": []}`},
		{"scalar term", `{"add": []}`, `{"add": 42}`},
		{"operand is not an object", `{"intersect": []}`, `42`},
	}
	s := buildSchemaJSON(t, `{"reduce": {"strategy": "set"}}`)
	for _, tt := range tests {
		lhs := AsNode(must(ParseJSON([]byte(tt.lhs))))
		rhs := AsNode(must(ParseJSON([]byte(tt.rhs))))
		outcomes, err := Validate(rhs, s)
		if err != nil {
			t.Fatalf("** %s: validation failed: %v", tt.name, err)
		}
		if _, _, err := Reduce(lhs, rhs, outcomes, NewArena(), false); !errors.Is(err, ErrSetWrongType) {
			t.Errorf("** %s: Reduce = %v, wanted %v", tt.name, err, ErrSetWrongType)
		}
	}
}
