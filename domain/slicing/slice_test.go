package slicing

import (
	"testing"
)

// TestSliceKeyString tests key rendering
func TestSliceKeyString(t *testing.T) {
	tests := []struct {
		name     string
		key      SliceKey
		expected string
	}{
		{"overall", Overall(), "Overall"},
		{"single", SingleKey("sex", "male"), "sex:male"},
		{"cross ordered", Cross(Pair{"race", "A"}, Pair{"sex", "female"}), "race:A, sex:female"},
		{"cross reorders by feature", Cross(Pair{"sex", "female"}, Pair{"race", "A"}), "race:A, sex:female"},
	}

	for _, test := range tests {
		if got := test.key.String(); got != test.expected {
			t.Errorf("%s: expected %q, got %q", test.name, test.expected, got)
		}
	}
}

// TestParseKeyRoundTrip tests that ParseKey inverts String
func TestParseKeyRoundTrip(t *testing.T) {
	keys := []SliceKey{
		Overall(),
		SingleKey("sex", "male"),
		Cross(Pair{"race", "A"}, Pair{"sex", "female"}),
	}

	for _, key := range keys {
		parsed, err := ParseKey(key.String())
		if err != nil {
			t.Fatalf("ParseKey(%q) failed: %v", key.String(), err)
		}
		if !parsed.Equal(key) {
			t.Errorf("Round trip changed key: %q -> %q", key.String(), parsed.String())
		}
	}
}

// TestParseKeyErrors tests malformed key rejection
func TestParseKeyErrors(t *testing.T) {
	inputs := []string{"", "  ", "noseparator", ":value", "feature:", "a:b, malformed"}

	for _, input := range inputs {
		if _, err := ParseKey(input); err == nil {
			t.Errorf("Expected error for input %q, got none", input)
		}
	}
}

// TestSortOverallFirst tests slice ordering for table rows
func TestSortOverallFirst(t *testing.T) {
	keys := []SliceKey{
		SingleKey("sex", "male"),
		SingleKey("race", "B"),
		Overall(),
		SingleKey("race", "A"),
	}

	Sort(keys)

	expected := []string{"Overall", "race:A", "race:B", "sex:male"}
	for i, want := range expected {
		if keys[i].String() != want {
			t.Errorf("Expected keys[%d]=%s, got %s", i, want, keys[i].String())
		}
	}
}

// TestSpecKeyFor tests slice key derivation from feature rows
func TestSpecKeyFor(t *testing.T) {
	spec, err := NewSpec("sex", "race")
	if err != nil {
		t.Fatalf("NewSpec failed: %v", err)
	}

	key, ok := spec.KeyFor(map[string]string{"sex": "male", "race": "A", "age": "34"})
	if !ok {
		t.Fatal("Expected key for complete row")
	}
	if key.String() != "race:A, sex:male" {
		t.Errorf("Expected 'race:A, sex:male', got %q", key.String())
	}

	if _, ok := spec.KeyFor(map[string]string{"sex": "male"}); ok {
		t.Error("Expected no key when a spec column is missing")
	}
}

// TestKeysForAlwaysIncludesOverall tests row-to-slices assignment
func TestKeysForAlwaysIncludesOverall(t *testing.T) {
	sexSpec, _ := NewSpec("sex")
	raceSpec, _ := NewSpec("race")

	keys := KeysFor([]Spec{sexSpec, raceSpec}, map[string]string{"sex": "female"})

	if len(keys) != 2 {
		t.Fatalf("Expected 2 keys (Overall + sex), got %d: %v", len(keys), keys)
	}
	if !keys[0].IsOverall() {
		t.Error("Expected Overall first")
	}
	if keys[1].String() != "sex:female" {
		t.Errorf("Expected 'sex:female', got %q", keys[1].String())
	}
}

// TestNewSpecValidation tests spec construction rules
func TestNewSpecValidation(t *testing.T) {
	if _, err := NewSpec(); err == nil {
		t.Error("Expected error for empty spec")
	}
	if _, err := NewSpec(""); err == nil {
		t.Error("Expected error for empty column name")
	}
	if _, err := NewSpec("sex", "sex"); err == nil {
		t.Error("Expected error for duplicate column")
	}
}
