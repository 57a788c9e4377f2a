package macro

import (
	"context"
	"testing"

	"github.com/modl-lang/modl/internal/provider"
	"github.com/modl-lang/modl/internal/store"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry(store.NewMemory(), &provider.MockEmbedder{Dim: 8})
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestDefineGetRemove(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	err := r.Define(ctx, "double", "doubles a number", "(lambda (n) (* n 2))")
	if err != nil {
		t.Fatalf("Define failed: %v", err)
	}

	p, err := r.Get("double")
	if err != nil {
		t.Fatal(err)
	}
	if p == nil || p.Source != "(lambda (n) (* n 2))" {
		t.Errorf("Get: got %+v", p)
	}

	macros, err := r.List()
	if err != nil || len(macros) != 1 {
		t.Errorf("List: got %v err=%v", macros, err)
	}

	if err := r.Remove("double"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	p, err = r.Get("double")
	if err != nil {
		t.Fatal(err)
	}
	if p != nil {
		t.Errorf("expected nil after remove, got %+v", p)
	}
	if names := r.Names(); len(names) != 0 {
		t.Errorf("index not cleared: %v", names)
	}
}

func TestSearchFindsClosestDescription(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	defs := []struct{ name, desc string }{
		{"double", "doubles a number"},
		{"greet", "builds a greeting string"},
		{"sum", "adds numbers together"},
	}
	for _, d := range defs {
		if err := r.Define(ctx, d.name, d.desc, "(lambda (x) x)"); err != nil {
			t.Fatal(err)
		}
	}

	// The mock embedder is byte-derived, so an identical query maps to
	// an identical vector and must rank its own macro first.
	matches, err := r.Search(ctx, "doubles a number", 2)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(matches) == 0 {
		t.Fatal("no matches")
	}
	if matches[0].Name != "double" {
		t.Errorf("expected double first, got %v", matches[0].Name)
	}
}

func TestRegistryReloadsPersistedEmbeddings(t *testing.T) {
	s := store.NewMemory()
	embedder := &provider.MockEmbedder{Dim: 8}
	ctx := context.Background()

	r1, err := NewRegistry(s, embedder)
	if err != nil {
		t.Fatal(err)
	}
	if err := r1.Define(ctx, "sum", "adds numbers together", "(lambda (a b) (+ a b))"); err != nil {
		t.Fatal(err)
	}

	// A fresh registry over the same store must find the macro without
	// re-embedding.
	r2, err := NewRegistry(s, embedder)
	if err != nil {
		t.Fatal(err)
	}
	matches, err := r2.Search(ctx, "adds numbers together", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 || matches[0].Name != "sum" {
		t.Errorf("got %v", matches)
	}
}

func TestSearchWithoutEmbedder(t *testing.T) {
	r, err := NewRegistry(store.NewMemory(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Search(context.Background(), "anything", 1); err == nil {
		t.Fatal("expected error without embedder")
	}
}
