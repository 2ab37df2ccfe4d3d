package sanitize

import (
	"encoding/json"
	"testing"
)

func TestString(t *testing.T) {
	t.Parallel()

	nul := string([]byte{0})
	backslash := string(rune(0x5C))
	escLower := backslash + "u0000"
	escUpper := backslash + "U0000"
	invalidUTF8 := string([]byte{'a', 0xff, 'b'})

	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "no change", in: "abc", want: "abc"},
		{name: "raw null byte", in: "ab" + nul + "cd", want: "abcd"},
		{name: "escaped lower", in: "a" + escLower + "b", want: "ab"},
		{name: "escaped upper", in: "a" + escUpper + "b", want: "ab"},
		{name: "mixed", in: "x" + nul + "y" + escLower + "z", want: "xyz"},
		{name: "invalid utf8", in: invalidUTF8, want: "a�b"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := String(tc.in)
			if got != tc.want {
				t.Fatalf("String(%q)=%q want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestDocument(t *testing.T) {
	t.Parallel()

	nul := string([]byte{0})
	in, err := json.Marshal(map[string]string{"signature": "ab" + nul + "cd"})
	if err != nil {
		t.Fatalf("failed to build fixture: %v", err)
	}
	out, err := Document(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var decoded map[string]string
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("Document produced invalid JSON: %v", err)
	}
	if decoded["signature"] != "abcd" {
		t.Fatalf("expected NUL stripped from signature, got %q", decoded["signature"])
	}
}

func TestDocumentSanitizesNestedValues(t *testing.T) {
	t.Parallel()

	nul := string([]byte{0})
	fixture := map[string]any{
		"accounts": []string{"alice" + nul, "bob"},
		"meta":     map[string]string{"note": "x" + nul + "y"},
	}
	in, err := json.Marshal(fixture)
	if err != nil {
		t.Fatalf("failed to build fixture: %v", err)
	}
	out, err := Document(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("Document produced invalid JSON: %v", err)
	}
	accounts := decoded["accounts"].([]any)
	if accounts[0] != "alice" {
		t.Fatalf("expected NUL stripped from array element, got %q", accounts[0])
	}
	meta := decoded["meta"].(map[string]any)
	if meta["note"] != "xy" {
		t.Fatalf("expected NUL stripped from nested object, got %q", meta["note"])
	}
}

func TestDocumentRejectsInvalidJSON(t *testing.T) {
	t.Parallel()

	if _, err := Document([]byte("not json")); err == nil {
		t.Fatalf("expected an error for a malformed document")
	}
}
