package filter

import (
	"testing"
)

func TestStringEquality(t *testing.T) {
	f, err := Compile(`kind == "text"`)
	if err != nil {
		t.Fatal(err)
	}

	if !f.Match(map[string]any{"adapter": "bot", "kind": "text"}) {
		t.Error("expected match")
	}
	if f.Match(map[string]any{"adapter": "bot", "kind": "voice"}) {
		t.Error("expected no match")
	}
}

func TestNumericComparison(t *testing.T) {
	f, err := Compile(`size > 1000`)
	if err != nil {
		t.Fatal(err)
	}

	if !f.Match(map[string]any{"size": int64(5000)}) {
		t.Error("expected match for 5000 > 1000")
	}
	if f.Match(map[string]any{"size": int64(500)}) {
		t.Error("expected no match for 500 > 1000")
	}
}

func TestStringFunctions(t *testing.T) {
	f, err := Compile(`adapter == "mqtt" && topic.startsWith("sensors/")`)
	if err != nil {
		t.Fatal(err)
	}

	if !f.Match(map[string]any{"adapter": "mqtt", "kind": "publish", "topic": "sensors/t1"}) {
		t.Error("expected match")
	}
	if f.Match(map[string]any{"adapter": "mqtt", "kind": "publish", "topic": "lights/1"}) {
		t.Error("expected no match")
	}
}

func TestMissingKeyReturnsFalse(t *testing.T) {
	f, err := Compile(`kind == "found" && port == 9000`)
	if err != nil {
		t.Fatal(err)
	}

	// no port on a found event
	if f.Match(map[string]any{"kind": "found"}) {
		t.Error("expected false for missing key")
	}
}

func TestCompileErrors(t *testing.T) {
	for _, expr := range []string{
		`invalid syntax !!!`,
		`unknown_key == 1`,
		`"not a bool"`,
	} {
		if _, err := Compile(expr); err == nil {
			t.Errorf("Compile(%q): expected error", expr)
		}
	}
}

func TestNilFilterMatchesEverything(t *testing.T) {
	f, err := Compile("")
	if err != nil {
		t.Fatal(err)
	}
	if f != nil {
		t.Fatal("expected nil filter for empty expression")
	}
	if !f.Match(map[string]any{}) {
		t.Error("nil filter should match")
	}
	if f.String() != "" {
		t.Error("nil filter should print empty")
	}
}
