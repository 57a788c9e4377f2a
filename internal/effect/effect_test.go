package effect

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/modl-lang/modl/internal/eval"
	"github.com/modl-lang/modl/internal/provider"
)

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestUnknownEffect(t *testing.T) {
	d := NewDispatcher(NewSession(), discard())
	_, err := d.Dispatch(context.Background(), "frobnicate", nil)
	if !errors.Is(err, eval.ErrUnknownEffect) {
		t.Fatalf("expected ErrUnknownEffect, got %v", err)
	}
}

func TestRegisterCustomHandler(t *testing.T) {
	d := NewDispatcher(NewSession(), discard())
	d.Register("double", func(_ context.Context, args map[string]eval.Value, _ *Session) (eval.Value, error) {
		n, _ := argNumber(args, "n")
		return eval.Number(n * 2), nil
	})
	v, err := d.Dispatch(context.Background(), "double", map[string]eval.Value{"n": eval.Number(21)})
	if err != nil {
		t.Fatal(err)
	}
	if v != eval.Number(42) {
		t.Fatalf("got %v", v)
	}
}

func TestContextStoreRoundTrip(t *testing.T) {
	d := NewDispatcher(NewSession(), discard())
	ctx := context.Background()

	set, err := d.Dispatch(ctx, "context_set", map[string]eval.Value{
		"name":  eval.String("notes"),
		"value": eval.String("remember this"),
	})
	if err != nil {
		t.Fatal(err)
	}
	rec, ok := set.(eval.Record)
	if !ok {
		t.Fatalf("context_set should return a record, got %T", set)
	}
	if length, _ := rec.Get("length"); length != eval.Number(13) {
		t.Errorf("length: got %v", length)
	}

	got, err := d.Dispatch(ctx, "context_get", map[string]eval.Value{"name": eval.String("notes")})
	if err != nil {
		t.Fatal(err)
	}
	if got != eval.String("remember this") {
		t.Fatalf("context_get: got %v", got)
	}

	listed, err := d.Dispatch(ctx, "context_list", nil)
	if err != nil {
		t.Fatal(err)
	}
	list, ok := listed.(eval.List)
	if !ok || len(list.Items) != 1 {
		t.Fatalf("context_list: got %v", listed)
	}
	entry, ok := list.Items[0].(eval.Record)
	if !ok {
		t.Fatalf("context_list items should be records, got %T", list.Items[0])
	}
	if name, _ := entry.Get("name"); name != eval.String("notes") {
		t.Errorf("name: got %v", name)
	}
	if length, _ := entry.Get("length"); length != eval.Number(13) {
		t.Errorf("length: got %v", length)
	}

	cleared, err := d.Dispatch(ctx, "context_clear", map[string]eval.Value{"name": eval.String("notes")})
	if err != nil {
		t.Fatal(err)
	}
	clearedRec := cleared.(eval.Record)
	if v, _ := clearedRec.Get("cleared"); v != eval.Number(1) {
		t.Errorf("context_clear: got %v", v)
	}
}

func TestContextClearAll(t *testing.T) {
	s := NewSession()
	s.SetContext("a", "one")
	s.SetContext("b", "two")
	d := NewDispatcher(s, discard())

	v, err := d.Dispatch(context.Background(), "context_clear", nil)
	if err != nil {
		t.Fatal(err)
	}
	rec, ok := v.(eval.Record)
	if !ok {
		t.Fatalf("expected record, got %T", v)
	}
	if n, _ := rec.Get("cleared"); n != eval.Number(2) {
		t.Errorf("cleared: got %v, want 2", n)
	}
	if len(s.ContextNames()) != 0 {
		t.Errorf("contexts remain after clear-all: %v", s.ContextNames())
	}

	// Clearing a missing name reports zero removed, not an error.
	v, err = d.Dispatch(context.Background(), "context_clear", map[string]eval.Value{"name": eval.String("gone")})
	if err != nil {
		t.Fatal(err)
	}
	if n, _ := v.(eval.Record).Get("cleared"); n != eval.Number(0) {
		t.Errorf("cleared: got %v, want 0", n)
	}
}

func TestContextGetMissIsValueLevel(t *testing.T) {
	d := NewDispatcher(NewSession(), discard())
	v, err := d.Dispatch(context.Background(), "context_get", map[string]eval.Value{"name": eval.String("absent")})
	if err != nil {
		t.Fatalf("a store miss must not abort evaluation: %v", err)
	}
	rec, ok := v.(eval.Record)
	if !ok {
		t.Fatalf("expected error record, got %T", v)
	}
	if _, found := rec.Get("error"); !found {
		t.Errorf("expected error field: %v", rec)
	}
}

func TestLLMCallDepthCeiling(t *testing.T) {
	mock := provider.NewMock("response")
	s := NewSession(WithProvider(mock), WithMaxDepth(2))
	d := NewDispatcher(s, discard())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		v, err := d.Dispatch(ctx, "llm_call", map[string]eval.Value{"prompt": eval.String("q")})
		if err != nil {
			t.Fatal(err)
		}
		if v != eval.String("response") {
			t.Fatalf("call %d: got %v", i, v)
		}
	}
	if s.Depth() != 2 {
		t.Fatalf("depth should be 2, got %d", s.Depth())
	}

	v, err := d.Dispatch(ctx, "llm_call", map[string]eval.Value{"prompt": eval.String("q")})
	if err != nil {
		t.Fatal(err)
	}
	rec, ok := v.(eval.Record)
	if !ok {
		t.Fatalf("over-ceiling call should yield error record, got %T", v)
	}
	msg, _ := rec.Get("error")
	if msg != eval.String("max depth exceeded") {
		t.Errorf("got %v", msg)
	}
	if mock.Calls() != 2 {
		t.Errorf("provider contacted %d times, expected 2", mock.Calls())
	}
}

func TestLLMCallZeroCeilingNeverContactsProvider(t *testing.T) {
	mock := provider.NewMock("never")
	s := NewSession(WithProvider(mock))
	d := NewDispatcher(s, discard())

	v, err := d.Dispatch(context.Background(), "llm_call", map[string]eval.Value{
		"prompt":    eval.String("q"),
		"max_depth": eval.Number(0),
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := v.(eval.Record); !ok {
		t.Fatalf("expected error record, got %v", v)
	}
	if mock.Calls() != 0 {
		t.Errorf("provider must not be contacted over the ceiling, got %d calls", mock.Calls())
	}
}

func TestLLMCallContextPrepend(t *testing.T) {
	var seenUser string
	mock := provider.NewMockHandler(func(_, user string) string {
		seenUser = user
		return "ok"
	})
	s := NewSession(WithProvider(mock))
	s.SetContext("doc", "the reference text")
	d := NewDispatcher(s, discard())

	_, err := d.Dispatch(context.Background(), "llm_call", map[string]eval.Value{
		"prompt":       eval.String("summarize"),
		"context_name": eval.String("doc"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(seenUser, "the reference text") {
		t.Error("context text missing from prompt")
	}
	if !strings.Contains(seenUser, "summarize") {
		t.Error("task prompt missing")
	}
	if !strings.HasSuffix(seenUser, "summarize") {
		t.Error("context should precede the task prompt")
	}
}

func TestLLMCallMissingContextProceedsBare(t *testing.T) {
	var seenUser string
	mock := provider.NewMockHandler(func(_, user string) string {
		seenUser = user
		return "ok"
	})
	d := NewDispatcher(NewSession(WithProvider(mock)), discard())
	v, err := d.Dispatch(context.Background(), "llm_call", map[string]eval.Value{
		"prompt":       eval.String("q"),
		"context_name": eval.String("absent"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if v != eval.String("ok") {
		t.Fatalf("got %v", v)
	}
	if seenUser != "q" {
		t.Errorf("an absent context should leave the prompt bare, got %q", seenUser)
	}
}

func TestListFilesPattern(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.txt", "b.go", "c.go"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	d := NewDispatcher(NewSession(), discard())

	v, err := d.Dispatch(context.Background(), "list_files", map[string]eval.Value{
		"path":    eval.String(dir),
		"pattern": eval.String("*.go"),
	})
	if err != nil {
		t.Fatal(err)
	}
	rec := v.(eval.Record)
	files, _ := rec.Get("files")
	list := files.(eval.List)
	if len(list.Items) != 2 {
		t.Fatalf("expected 2 matches, got %v", list)
	}
	for _, item := range list.Items {
		if !strings.HasSuffix(string(item.(eval.String)), ".go") {
			t.Errorf("unexpected match %v", item)
		}
	}

	bad, err := d.Dispatch(context.Background(), "list_files", map[string]eval.Value{
		"path":    eval.String(dir),
		"pattern": eval.String("[unclosed"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, found := bad.(eval.Record).Get("error"); !found {
		t.Errorf("bad pattern should yield an error record, got %v", bad)
	}
}

func TestLLMCallExpectCoercion(t *testing.T) {
	mock := provider.NewMock("The answer is 42.")
	d := NewDispatcher(NewSession(WithProvider(mock)), discard())
	v, err := d.Dispatch(context.Background(), "llm_call", map[string]eval.Value{
		"prompt": eval.String("q"),
		"expect": eval.String("number"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if v != eval.Number(42) {
		t.Fatalf("got %v", v)
	}
}
