package effect

import (
	"testing"

	"github.com/modl-lang/modl/internal/eval"
)

func TestCoerceNumber(t *testing.T) {
	cases := []struct {
		text string
		want eval.Value
	}{
		{"42", eval.Number(42)},
		{"  -3.5\n", eval.Number(-3.5)},
		{"The answer is 42.", eval.Number(42)},
		{"roughly -7 degrees", eval.Number(-7)},
		{"no digits here", eval.String("no digits here")},
	}
	for _, tc := range cases {
		if got := Coerce(tc.text, "number"); !eval.Equal(got, tc.want) {
			t.Errorf("Coerce(%q, number) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestCoerceBoolean(t *testing.T) {
	cases := []struct {
		text string
		want eval.Value
	}{
		{"true", eval.Bool(true)},
		{"Yes", eval.Bool(true)},
		{"FALSE", eval.Bool(false)},
		{"no", eval.Bool(false)},
		{"maybe", eval.String("maybe")},
		// Only exact matches coerce. Text that merely starts with a
		// boolean word comes back unchanged.
		{"not sure", eval.String("not sure")},
		{"Yes, that is correct.", eval.String("Yes, that is correct.")},
	}
	for _, tc := range cases {
		if got := Coerce(tc.text, "boolean"); !eval.Equal(got, tc.want) {
			t.Errorf("Coerce(%q, boolean) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestCoerceJSON(t *testing.T) {
	got := Coerce(`{"a": 1, "b": [true, null]}`, "json")
	rec, ok := got.(eval.Record)
	if !ok {
		t.Fatalf("expected record, got %T", got)
	}
	if a, _ := rec.Get("a"); a != eval.Number(1) {
		t.Errorf("a: got %v", a)
	}
	b, _ := rec.Get("b")
	list, ok := b.(eval.List)
	if !ok || len(list.Items) != 2 {
		t.Fatalf("b: got %v", b)
	}
}

func TestCoerceJSONEmbeddedInProse(t *testing.T) {
	text := "Here is the result:\n```json\n{\"a\": 1}\n```\nHope that helps."
	got := Coerce(text, "json")
	rec, ok := got.(eval.Record)
	if !ok {
		t.Fatalf("expected record, got %T: %v", got, got)
	}
	if a, _ := rec.Get("a"); a != eval.Number(1) {
		t.Errorf("a: got %v", a)
	}
}

func TestCoerceJSONArrayAndFallback(t *testing.T) {
	got := Coerce("[1, 2, 3]", "json")
	list, ok := got.(eval.List)
	if !ok || len(list.Items) != 3 {
		t.Fatalf("got %v", got)
	}

	raw := Coerce("not json at all", "json")
	if raw != eval.String("not json at all") {
		t.Errorf("fallback: got %v", raw)
	}
}

func TestCoerceBracesInsideStrings(t *testing.T) {
	got := Coerce(`prefix {"s": "has } brace"} suffix`, "json")
	rec, ok := got.(eval.Record)
	if !ok {
		t.Fatalf("expected record, got %T", got)
	}
	if s, _ := rec.Get("s"); s != eval.String("has } brace") {
		t.Errorf("got %v", s)
	}
}

func TestCoerceDefaultIsTrimmedString(t *testing.T) {
	if got := Coerce("  plain text \n", ""); got != eval.String("plain text") {
		t.Errorf("got %v", got)
	}
	if got := Coerce("text", "string"); got != eval.String("text") {
		t.Errorf("got %v", got)
	}
}
