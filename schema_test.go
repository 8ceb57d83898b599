package doc

import (
	"strings"
	"testing"
)

func buildSchemaJSON(t *testing.T, src string) *Schema {
	t.Helper()
	v := must(ParseJSON([]byte(src)))
	s, err := BuildSchema(v)
	if err != nil {
		t.Fatalf("** BuildSchema(%s) failed: %v", src, err)
	}
	return s
}

func TestBuildSchemaErrors(t *testing.T) {
	tests := []struct {
		schema string
		detail string
	}{
		{`"oops!"`, "must be an object or boolean"},
		{`{"type": "foo"}`, "invalid type name"},
		{`{"type": ["string", 42]}`, "type"},
		{`{"reduce": {"strategy": "frobnicate"}}`, "invalid reduce strategy"},
		{`{"reduce": {"strategy": "sum", "frob": 1}}`, "unknown reduce annotation property"},
		{`{"reduce": {"key": ["/a"]}}`, "missing a strategy"},
		{`{"reduce": "sum"}`, "reduce annotation must be an object"},
		{`{"$ref": "#/$defs/missing"}`, "unresolved $ref"},
		{`{"$ref": "http://example/schema"}`, "not a document-local reference"},
		{`{"properties": {"a": 42}}`, "object or boolean"},
		{`{"maxProperties": "three"}`, "maxProperties"},
	}
	for _, tt := range tests {
		v := must(ParseJSON([]byte(tt.schema)))
		_, err := BuildSchema(v)
		if err == nil {
			t.Errorf("** BuildSchema(%s) did not fail", tt.schema)
			continue
		}
		if !strings.Contains(err.Error(), tt.detail) {
			t.Errorf("** BuildSchema(%s) error %q does not mention %q", tt.schema, err, tt.detail)
		}
	}
}

func TestBooleanSchemas(t *testing.T) {
	doc := AsNode(must(ParseJSON([]byte(`{"anything": [1, 2]}`))))

	if _, err := Validate(doc, buildSchemaJSON(t, `true`)); err != nil {
		t.Errorf("** true schema rejected a document: %v", err)
	}
	if _, err := Validate(doc, buildSchemaJSON(t, `false`)); err == nil {
		t.Errorf("** false schema accepted a document")
	}
}

func TestSchemaRefResolution(t *testing.T) {
	s := buildSchemaJSON(t, `{
		"$defs": {
			"positive": {"type": "integer", "reduce": {"strategy": "sum"}}
		},
		"properties": {
			"a": {"$ref": "#/$defs/positive"},
			"b": {"$ref": "#/properties/a"}
		}
	}`)

	doc := AsNode(must(ParseJSON([]byte(`{"a": 1, "b": 2}`))))
	outcomes, err := Validate(doc, s)
	if err != nil {
		t.Fatalf("** Validate failed: %v", err)
	}
	// Both properties annotate sum through their references.
	if len(outcomes) != 2 {
		t.Fatalf("** %d outcomes, wanted 2", len(outcomes))
	}
	for _, o := range outcomes {
		if o.Strategy.Kind != Sum {
			t.Errorf("** outcome strategy = %s, wanted sum", o.Strategy)
		}
	}

	doc = AsNode(must(ParseJSON([]byte(`{"a": "one"}`))))
	if _, err := Validate(doc, s); err == nil {
		t.Errorf("** referenced type constraint not enforced")
	}
}

func TestSchemaUnknownKeywordsIgnored(t *testing.T) {
	s := buildSchemaJSON(t, `{
		"title": "ignored",
		"x-custom-annotation": {"arbitrary": true},
		"minimumWidgets": 3,
		"type": "object"
	}`)
	if _, err := Validate(AsNode(must(ParseJSON([]byte(`{}`)))), s); err != nil {
		t.Errorf("** unknown keywords affected validation: %v", err)
	}
}
