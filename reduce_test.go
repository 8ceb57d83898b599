package doc

import (
	"errors"
	"testing"
)

type reduceCase struct {
	name   string
	schema string
	full   bool
	docs   []string
	want   string
	del    bool  // expected deletion flag of the final reduction
	err    error // expected failure of the final reduction
}

func runReduceCases(t *testing.T, cases []reduceCase) {
	t.Helper()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			runReduceCase(t, buildSchemaJSON(t, tc.schema), tc)
		})
	}
}

// runReduceCase folds tc.docs left to right, validating each against the
// schema and reducing it into the accumulated root.
func runReduceCase(t *testing.T, s *Schema, tc reduceCase) {
	t.Helper()
	arena := NewArena()
	var root *HeapNode
	var del bool
	for i, src := range tc.docs {
		rhs := AsNode(must(ParseJSON([]byte(src))))
		outcomes, err := Validate(rhs, s)
		if err != nil {
			t.Fatalf("** document %d failed validation: %v", i, err)
		}
		var lhs Node
		if root != nil {
			lhs = root
		}
		node, d, err := Reduce(lhs, rhs, outcomes, arena, tc.full)
		if err != nil {
			if i == len(tc.docs)-1 && tc.err != nil && errors.Is(err, tc.err) {
				return
			}
			t.Fatalf("** document %d failed to reduce: %v", i, err)
		}
		root, del = &node, d
	}
	if tc.err != nil {
		t.Fatalf("** reduction did not fail with %v", tc.err)
	}
	if want := AsNode(must(ParseJSON([]byte(tc.want)))); Compare(root, want) != 0 {
		t.Errorf("** reduced to %s, wanted %s", debugString(root), tc.want)
	}
	if del != tc.del {
		t.Errorf("** deletion flag = %v, wanted %v", del, tc.del)
	}
}

func TestReduceLastAndFirstWriteWins(t *testing.T) {
	runReduceCases(t, []reduceCase{
		{
			name:   "default is last write wins",
			schema: `true`,
			docs:   []string{`1`, `"two"`, `{"a": 1}`},
			want:   `{"a": 1}`,
		},
		{
			name:   "delete flag surfaces when reducing fully",
			schema: `{"reduce": {"strategy": "lastWriteWins", "delete": true}}`,
			full:   true,
			docs:   []string{`1`, `2`},
			want:   `2`,
			del:    true,
		},
		{
			name:   "delete flag suppressed in associative combines",
			schema: `{"reduce": {"strategy": "lastWriteWins", "delete": true}}`,
			docs:   []string{`1`, `2`},
			want:   `2`,
		},
		{
			name:   "non-associative rejected without full history",
			schema: `{"reduce": {"strategy": "lastWriteWins", "associative": false}}`,
			docs:   []string{`1`, `2`},
			err:    ErrNotAssociative,
		},
		{
			name:   "non-associative allowed against full history",
			schema: `{"reduce": {"strategy": "lastWriteWins", "associative": false}}`,
			full:   true,
			docs:   []string{`1`, `2`},
			want:   `2`,
		},
		{
			name:   "first write wins",
			schema: `{"reduce": {"strategy": "firstWriteWins"}}`,
			docs:   []string{`{"v": 1}`, `{"v": 2}`, `"late"`},
			want:   `{"v": 1}`,
		},
	})
}

func TestReduceSum(t *testing.T) {
	runReduceCases(t, []reduceCase{
		{
			name:   "mixed integers and floats",
			schema: `{"reduce": {"strategy": "sum"}}`,
			docs:   []string{`5`, `-3`, `2.5`},
			want:   `4.5`,
		},
		{
			name:   "integer sums stay integers",
			schema: `{"reduce": {"strategy": "sum"}}`,
			docs:   []string{`5`, `-7`},
			want:   `-2`,
		},
		{
			name:   "unsigned overflow",
			schema: `{"reduce": {"strategy": "sum"}}`,
			docs:   []string{`18446744073709551615`, `1`},
			err:    ErrSumOverflow,
		},
		{
			name:   "float overflow",
			schema: `{"reduce": {"strategy": "sum"}}`,
			docs:   []string{`1.7976931348623157e308`, `1.7976931348623157e308`},
			err:    ErrSumOverflow,
		},
		{
			name:   "non-number operand",
			schema: `{"reduce": {"strategy": "sum"}}`,
			docs:   []string{`1`, `"x"`},
			err:    ErrSumWrongType,
		},
	})
}

func TestReduceAppend(t *testing.T) {
	runReduceCases(t, []reduceCase{
		{
			name:   "arrays concatenate",
			schema: `{"reduce": {"strategy": "append"}}`,
			docs:   []string{`[1]`, `[2, 3]`, `[]`, `[4]`},
			want:   `[1, 2, 3, 4]`,
		},
		{
			name:   "null left side absorbs",
			schema: `{"reduce": {"strategy": "append"}}`,
			docs:   []string{`null`, `[1]`},
			want:   `null`,
		},
		{
			name:   "non-array operand",
			schema: `{"reduce": {"strategy": "append"}}`,
			docs:   []string{`[1]`, `"x"`},
			err:    ErrAppendWrongType,
		},
	})
}

func TestReduceMerge(t *testing.T) {
	runReduceCases(t, []reduceCase{
		{
			name: "objects merge deeply",
			schema: `{
				"reduce": {"strategy": "merge"},
				"properties": {"n": {"reduce": {"strategy": "sum"}}}
			}`,
			docs: []string{`{"n": 1, "s": "a"}`, `{"n": 2, "s": "b"}`, `{"t": true}`},
			want: `{"n": 3, "s": "b", "t": true}`,
		},
		{
			name: "arrays merge by index",
			schema: `{
				"reduce": {"strategy": "merge"},
				"items": {"reduce": {"strategy": "sum"}}
			}`,
			docs: []string{`[1, 2, 3]`, `[10, 20]`},
			want: `[11, 22, 3]`,
		},
		{
			name: "arrays merge by key",
			schema: `{
				"reduce": {"strategy": "merge", "key": ["/k"]},
				"items": {
					"reduce": {"strategy": "merge"},
					"properties": {"v": {"reduce": {"strategy": "sum"}}}
				}
			}`,
			docs: []string{
				`[{"k": "a", "v": 1}, {"k": "c", "v": 1}]`,
				`[{"k": "a", "v": 2}, {"k": "b", "v": 1}]`,
			},
			want: `[{"k": "a", "v": 3}, {"k": "b", "v": 1}, {"k": "c", "v": 1}]`,
		},
		{
			name: "deletions prune fully reduced objects",
			schema: `{
				"reduce": {"strategy": "merge"},
				"properties": {"d": {"reduce": {"strategy": "lastWriteWins", "delete": true}}}
			}`,
			full: true,
			docs: []string{`{"d": 1, "x": 2}`, `{"d": 5}`},
			want: `{"x": 2}`,
		},
		{
			name: "deletions held back in associative combines",
			schema: `{
				"reduce": {"strategy": "merge"},
				"properties": {"d": {"reduce": {"strategy": "lastWriteWins", "delete": true}}}
			}`,
			docs: []string{`{"d": 1, "x": 2}`, `{"d": 5}`},
			want: `{"d": 5, "x": 2}`,
		},
		{
			name: "nested merge deletions prune fully reduced objects",
			schema: `{
				"reduce": {"strategy": "merge"},
				"properties": {"m": {"reduce": {"strategy": "merge", "delete": true}}}
			}`,
			full: true,
			docs: []string{`{"m": {"a": 1}, "x": 2}`, `{"m": {"b": 2}}`},
			want: `{"x": 2}`,
		},
		{
			name: "nested merge deletions held back in associative combines",
			schema: `{
				"reduce": {"strategy": "merge"},
				"properties": {"m": {"reduce": {"strategy": "merge", "delete": true}}}
			}`,
			docs: []string{`{"m": {"a": 1}, "x": 2}`, `{"m": {"b": 2}}`},
			want: `{"m": {"a": 1, "b": 2}, "x": 2}`,
		},
		{
			name:   "root merge deletion surfaces through the reduction",
			schema: `{"reduce": {"strategy": "merge", "delete": true}}`,
			full:   true,
			docs:   []string{`{"a": 1}`, `{"b": 2}`},
			want:   `{"a": 1, "b": 2}`,
			del:    true,
		},
		{
			name:   "type switch requires full history",
			schema: `{"reduce": {"strategy": "merge"}}`,
			docs:   []string{`[1]`, `{"a": 1}`},
			err:    ErrNotAssociative,
		},
		{
			name:   "type switch resets against full history",
			schema: `{"reduce": {"strategy": "merge"}}`,
			full:   true,
			docs:   []string{`[1, 2]`, `{"a": 1}`},
			want:   `{"a": 1}`,
		},
		{
			name:   "scalar operand",
			schema: `{"reduce": {"strategy": "merge"}}`,
			docs:   []string{`{"a": 1}`, `4`},
			err:    ErrMergeWrongType,
		},
	})
}

func TestReduceExtrema(t *testing.T) {
	runReduceCases(t, []reduceCase{
		{
			name:   "maximize",
			schema: `{"reduce": {"strategy": "maximize"}}`,
			docs:   []string{`1`, `3`, `2`},
			want:   `3`,
		},
		{
			name:   "minimize",
			schema: `{"reduce": {"strategy": "minimize"}}`,
			docs:   []string{`3`, `1`, `2`},
			want:   `1`,
		},
		{
			name: "keyed ties merge deeply",
			schema: `{
				"reduce": {"strategy": "maximize", "key": ["/k"]},
				"properties": {"c": {"reduce": {"strategy": "sum"}}}
			}`,
			docs: []string{`{"k": 1, "c": 1}`, `{"k": 1, "c": 2}`, `{"k": 0, "c": 9}`},
			want: `{"k": 1, "c": 3}`,
		},
		{
			name: "greater key replaces wholesale",
			schema: `{
				"reduce": {"strategy": "maximize", "key": ["/k"]},
				"properties": {"c": {"reduce": {"strategy": "sum"}}}
			}`,
			docs: []string{`{"k": 1, "c": 1}`, `{"k": 2, "c": 2}`},
			want: `{"k": 2, "c": 2}`,
		},
	})
}

func TestReduceMergePatch(t *testing.T) {
	runReduceCase(t, MergePatchSchema(), reduceCase{
		full: true,
		docs: []string{
			`{"a": {"b": 1}, "c": 1}`,
			`{"a": {"b": null, "d": 2}, "c": null, "e": 3}`,
		},
		want: `{"a": {"d": 2}, "e": 3}`,
	})

	// Without full history deletions are retained as null markers.
	runReduceCase(t, MergePatchSchema(), reduceCase{
		docs: []string{
			`{"a": 1}`,
			`{"a": null, "b": 2}`,
		},
		want: `{"a": null, "b": 2}`,
	})
}

func TestReduceStrategyConflict(t *testing.T) {
	s := buildSchemaJSON(t, `{"anyOf": [
		{"reduce": {"strategy": "sum"}},
		{"reduce": {"strategy": "jsonSchemaMerge"}}
	]}`)
	rhs := AsNode(must(ParseJSON([]byte(`1`))))
	outcomes := must(Validate(rhs, s))

	lhs := IntNode(1)
	_, _, err := Reduce(&lhs, rhs, outcomes, NewArena(), false)
	var ce *ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("** Reduce = %v, wanted a strategy conflict", err)
	}
	// Conflicts report strategies in deterministic order, not schema order.
	if ce.First.Kind != JSONSchemaMerge || ce.Second.Kind != Sum {
		t.Errorf("** conflict between %s and %s, wanted jsonSchemaMerge and sum", ce.First, ce.Second)
	}
}

func TestReduceDuplicateStrategyIsNotAConflict(t *testing.T) {
	runReduceCases(t, []reduceCase{{
		name: "matching annotations collapse",
		schema: `{"anyOf": [
			{"reduce": {"strategy": "sum"}},
			{"reduce": {"strategy": "sum"}}
		]}`,
		docs: []string{`1`, `2`},
		want: `3`,
	}})
}

func TestReduceAbsentLeftIsIdentity(t *testing.T) {
	// The first document of a sequence passes through unchanged, whatever
	// strategy is annotated on it.
	for _, strategy := range []string{"sum", "append", "merge", "set", "jsonSchemaMerge"} {
		runReduceCase(t, buildSchemaJSON(t, `{"reduce": {"strategy": "`+strategy+`"}}`), reduceCase{
			docs: []string{`"untouched"`},
			want: `"untouched"`,
		})
	}
}
