package doc

import (
	"encoding/hex"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

func TestArchiveRoundTrip(t *testing.T) {
	tests := []string{
		`null`,
		`true`,
		`0`,
		`-1`,
		`18446744073709551615`,
		`2.5`,
		`""`,
		`"hello, world"`,
		`[]`,
		`[1, "two", [3.5], null]`,
		`{}`,
		`{"a": 1, "b": {"c": [true, false]}, "d": "x"}`,
	}
	arena := NewArena()
	for _, tt := range tests {
		v := must(ParseJSON([]byte(tt)))
		raw := ArchiveNode(nil, AsNode(v))
		archived := must(LoadArchive(raw))

		if c := Compare(archived, AsNode(v)); c != 0 {
			t.Errorf("** archive of %s does not compare equal (got %d)", tt, c)
		}
		heap := arena.FromNode(archived)
		if c := Compare(&heap, AsNode(v)); c != 0 {
			t.Errorf("** heap copy of archived %s differs (got %d)", tt, c)
		}
	}
}

func TestArchiveIsCanonicalMessagePack(t *testing.T) {
	v := must(ParseJSON([]byte(`{"zeta": 1, "alpha": [true, "x"], "mid": null}`)))
	raw := ArchiveNode(nil, AsNode(v))

	// Archives are plain MessagePack with fields in ascending name order.
	var decoded map[string]any
	if err := msgpack.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("** msgpack.Unmarshal failed: %v", err)
	}
	if len(decoded) != 3 || decoded["zeta"] == nil || decoded["mid"] != nil {
		t.Errorf("** unexpected decoded archive: %#v", decoded)
	}

	// Equal documents archive to identical bytes regardless of the order
	// their source happened to hold fields in.
	again := ArchiveNode(nil, AsNode(map[string]any{
		"mid":   nil,
		"alpha": []any{true, "x"},
		"zeta":  int64(1),
	}))
	if hex.EncodeToString(raw) != hex.EncodeToString(again) {
		t.Errorf("** equal documents archived differently:\n%x\n%x", raw, again)
	}
}

func TestLoadArchiveRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"truncated array", "91"},
		{"truncated string", "a548656c"},
		{"trailing bytes", "c0c0"},
		{"unsorted keys", "82a162c0a161c0"},
		{"duplicate keys", "82a161c0a161c0"},
		{"non-string key", "8101c0"},
		{"ext type", "d4010a"},
	}
	for _, tt := range tests {
		raw := must(hex.DecodeString(tt.raw))
		if _, err := LoadArchive(raw); err == nil {
			t.Errorf("** LoadArchive(%s) did not fail", tt.name)
		}
	}
}

func TestArchiveAppendsToBuffer(t *testing.T) {
	prefix := []byte{0xde, 0xad}
	raw := ArchiveNode(prefix, AsNode(int64(7)))
	if len(raw) <= len(prefix) || raw[0] != 0xde || raw[1] != 0xad {
		t.Fatalf("** ArchiveNode did not append to the given buffer: %x", raw)
	}
	if _, err := LoadArchive(raw[2:]); err != nil {
		t.Errorf("** appended archive does not load: %v", err)
	}
}
