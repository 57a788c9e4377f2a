// SPDX-License-Identifier: AGPL-3.0-or-later

// Package effect implements the host side of the effect protocol: the
// dispatcher, the built-in operation handlers, the named context store,
// and recursive model self-invocation.
package effect

import (
	"sort"
	"sync"

	"github.com/modl-lang/modl/internal/provider"
)

// DefaultMaxDepth bounds recursive model self-invocation when the host
// does not configure a ceiling.
const DefaultMaxDepth = 8

// Session is the mutable state shared by all effect handlers of one
// runtime: the model provider, the named context store, and the
// self-invocation depth counter. Methods are safe for concurrent use.
type Session struct {
	mu           sync.Mutex
	provider     provider.Provider
	contexts     map[string]string
	depth        int
	maxDepth     int
	systemPrompt string
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithProvider sets the model provider used by llm_call.
func WithProvider(p provider.Provider) SessionOption {
	return func(s *Session) { s.provider = p }
}

// WithMaxDepth sets the self-invocation depth ceiling.
func WithMaxDepth(n int) SessionOption {
	return func(s *Session) { s.maxDepth = n }
}

// WithSystemPrompt sets the system prompt prepended to llm_call prompts.
func WithSystemPrompt(prompt string) SessionOption {
	return func(s *Session) { s.systemPrompt = prompt }
}

// NewSession creates a session.
func NewSession(opts ...SessionOption) *Session {
	s := &Session{
		contexts: make(map[string]string),
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Provider returns the configured model provider, which may be nil.
func (s *Session) Provider() provider.Provider {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.provider
}

// Depth returns the current self-invocation depth.
func (s *Session) Depth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.depth
}

// MaxDepth returns the configured depth ceiling.
func (s *Session) MaxDepth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxDepth
}

// SetContext stores text under a name, replacing any previous value.
func (s *Session) SetContext(name, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contexts[name] = text
}

// GetContext retrieves stored text by name.
func (s *Session) GetContext(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.contexts[name]
	return text, ok
}

// ContextNames lists stored context names, sorted.
func (s *Session) ContextNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.contexts))
	for name := range s.contexts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ContextEntry describes one stored context.
type ContextEntry struct {
	Name   string
	Length int
}

// ContextEntries lists stored contexts with their text lengths, sorted
// by name.
func (s *Session) ContextEntries() []ContextEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := make([]ContextEntry, 0, len(s.contexts))
	for name, text := range s.contexts {
		entries = append(entries, ContextEntry{Name: name, Length: len(text)})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}

// ClearContext removes one stored context and reports whether it existed.
func (s *Session) ClearContext(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.contexts[name]
	delete(s.contexts, name)
	return ok
}

// ClearAll removes every stored context and returns how many there were.
func (s *Session) ClearAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.contexts)
	s.contexts = make(map[string]string)
	return n
}
