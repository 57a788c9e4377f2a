// SPDX-License-Identifier: AGPL-3.0-or-later

// Package macro manages a library of named, reusable modl programs with
// semantic search over their descriptions.
package macro

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/coder/hnsw"

	"github.com/modl-lang/modl/internal/provider"
	"github.com/modl-lang/modl/internal/store"
)

// Registry holds named macros backed by a store, with an HNSW index over
// description embeddings for semantic lookup. The embedder is optional:
// without one, macros still work but Search reports an error.
type Registry struct {
	mu         sync.Mutex
	store      store.Store
	embedder   provider.EmbeddingProvider
	graph      *hnsw.Graph[string]
	embeddings map[string][]float32
}

// NewRegistry creates a registry over a store, loading any persisted
// macros and embeddings.
func NewRegistry(s store.Store, embedder provider.EmbeddingProvider) (*Registry, error) {
	r := &Registry{
		store:      s,
		embedder:   embedder,
		graph:      hnsw.NewGraph[string](),
		embeddings: make(map[string][]float32),
	}

	vecs, err := s.GetEmbeddings()
	if err != nil {
		return nil, fmt.Errorf("loading embeddings: %w", err)
	}
	for name, vec := range vecs {
		r.embeddings[name] = vec
		r.graph.Add(hnsw.MakeNode(name, vec))
	}
	return r, nil
}

// Define stores a macro and indexes its description. Redefining a name
// replaces both the program and its embedding.
func (r *Registry) Define(ctx context.Context, name, description, source string) error {
	if err := r.store.PutProgram(store.Program{
		Name:        name,
		Description: description,
		Source:      source,
	}); err != nil {
		return fmt.Errorf("storing macro %s: %w", name, err)
	}

	if r.embedder == nil || description == "" {
		return nil
	}

	vecs, err := r.embedder.Embed(ctx, []string{description})
	if err != nil {
		return fmt.Errorf("embedding macro %s: %w", name, err)
	}
	if len(vecs) == 0 {
		return fmt.Errorf("embedding macro %s: empty result", name)
	}
	if err := r.store.PutEmbedding(name, vecs[0]); err != nil {
		return fmt.Errorf("persisting embedding for %s: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, existed := r.embeddings[name]; existed {
		// The graph has no replace operation; rebuild without the old
		// vector before adding the new one.
		delete(r.embeddings, name)
		r.rebuildLocked()
	}
	r.embeddings[name] = vecs[0]
	r.graph.Add(hnsw.MakeNode(name, vecs[0]))
	return nil
}

// Get retrieves a macro by name. Returns nil if not found.
func (r *Registry) Get(name string) (*store.Program, error) {
	return r.store.GetProgram(name)
}

// List returns all macros ordered by name.
func (r *Registry) List() ([]store.Program, error) {
	return r.store.ListPrograms()
}

// Remove deletes a macro and its embedding.
func (r *Registry) Remove(name string) error {
	if err := r.store.DeleteProgram(name); err != nil {
		return err
	}
	if err := r.store.DeleteEmbedding(name); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.embeddings[name]; ok {
		delete(r.embeddings, name)
		r.rebuildLocked()
	}
	return nil
}

// Match is one semantic search result.
type Match struct {
	Name        string
	Description string
	Source      string
}

// Search finds up to limit macros whose descriptions are semantically
// close to the query.
func (r *Registry) Search(ctx context.Context, query string, limit int) ([]Match, error) {
	if r.embedder == nil {
		return nil, fmt.Errorf("macro search requires an embedding provider")
	}
	if limit <= 0 {
		limit = 5
	}

	vecs, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("embedding query: empty result")
	}

	r.mu.Lock()
	results := r.graph.Search(vecs[0], limit)
	r.mu.Unlock()

	matches := make([]Match, 0, len(results))
	for _, res := range results {
		p, err := r.store.GetProgram(res.Key)
		if err != nil {
			return nil, err
		}
		if p == nil {
			continue
		}
		matches = append(matches, Match{Name: p.Name, Description: p.Description, Source: p.Source})
	}
	return matches, nil
}

// Names lists indexed macro names, sorted. Mostly for tests.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.embeddings))
	for name := range r.embeddings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) rebuildLocked() {
	g := hnsw.NewGraph[string]()
	for name, vec := range r.embeddings {
		g.Add(hnsw.MakeNode(name, vec))
	}
	r.graph = g
}
