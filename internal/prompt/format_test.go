package prompt

import (
	"reflect"
	"testing"
)

func TestSafeFormatFillsKnownVars(t *testing.T) {
	out, missing := SafeFormat("Case: {case_summary}\nRound: {round}", map[string]string{
		"case_summary": "65M with dyspnea",
		"round":        "2",
	})

	want := "Case: 65M with dyspnea\nRound: 2"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
	if len(missing) != 0 {
		t.Errorf("expected no missing vars, got %v", missing)
	}
}

func TestSafeFormatPreservesMissingPlaceholders(t *testing.T) {
	out, missing := SafeFormat("{known} and {unknown} and {also_unknown}", map[string]string{
		"known": "value",
	})

	want := "value and {unknown} and {also_unknown}"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
	if !reflect.DeepEqual(missing, []string{"also_unknown", "unknown"}) {
		t.Errorf("missing = %v, want [also_unknown unknown]", missing)
	}
}

func TestSafeFormatRepeatedPlaceholder(t *testing.T) {
	out, missing := SafeFormat("{x} {x} {y}", map[string]string{"x": "a"})
	if out != "a a {y}" {
		t.Errorf("got %q", out)
	}
	if len(missing) != 1 || missing[0] != "y" {
		t.Errorf("missing = %v", missing)
	}
}

func TestSafeFormatNoPlaceholders(t *testing.T) {
	out, missing := SafeFormat("plain text", nil)
	if out != "plain text" {
		t.Errorf("got %q", out)
	}
	if len(missing) != 0 {
		t.Errorf("missing = %v", missing)
	}
}

func TestPlaceholders(t *testing.T) {
	got := Placeholders("{b} then {a} then {b}")
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("got %v, want [a b]", got)
	}
}

func TestJoinSectionsSkipsEmpty(t *testing.T) {
	got := JoinSections("first", "", "  ", "second")
	if got != "first\n\nsecond" {
		t.Errorf("got %q", got)
	}
}
