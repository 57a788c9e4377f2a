// SPDX-License-Identifier: AGPL-3.0-or-later

package modl

import (
	"log/slog"

	"github.com/modl-lang/modl/internal/effect"
	"github.com/modl-lang/modl/internal/eval"
	"github.com/modl-lang/modl/internal/provider"
	"github.com/modl-lang/modl/internal/store"
)

// Option configures a Runtime.
type Option func(*Runtime)

// Value is a runtime value. Hosts inspect results through this type.
type Value = eval.Value

// HandlerFunc is a custom effect handler.
type HandlerFunc = effect.HandlerFunc

// Provider is an LLM provider.
type Provider = provider.Provider

// Store is the persistence interface.
type Store = store.Store

// WithSQLiteStore configures SQLite persistence at the given path.
func WithSQLiteStore(path string) Option {
	return func(r *Runtime) {
		s, err := store.NewSQLite(path)
		if err != nil {
			r.initErr = err
			return
		}
		r.store = s
	}
}

// WithMemoryStore configures an in-memory store (for testing).
func WithMemoryStore() Option {
	return func(r *Runtime) {
		r.store = store.NewMemory()
	}
}

// WithStore configures a custom store.
func WithStore(s store.Store) Option {
	return func(r *Runtime) {
		r.store = s
	}
}

// WithProvider configures a custom LLM provider.
func WithProvider(p provider.Provider) Option {
	return func(r *Runtime) {
		r.prov = p
	}
}

// WithEmbedder configures the embedding provider used for macro search.
func WithEmbedder(e provider.EmbeddingProvider) Option {
	return func(r *Runtime) {
		r.embedder = e
	}
}

// WithAnthropic configures the Anthropic Claude LLM provider.
func WithAnthropic(model string) Option {
	return func(r *Runtime) {
		opts := []provider.AnthropicOption{}
		if model != "" {
			opts = append(opts, provider.WithAnthropicModel(model))
		}
		r.prov = provider.NewAnthropic(opts...)
	}
}

// WithOllama configures the Ollama LLM provider.
func WithOllama(url, model string) Option {
	return func(r *Runtime) {
		opts := []provider.OllamaOption{}
		if url != "" {
			opts = append(opts, provider.WithOllamaURL(url))
		}
		if model != "" {
			opts = append(opts, provider.WithOllamaModel(model))
		}
		o := provider.NewOllama(opts...)
		r.prov = o
		if r.embedder == nil {
			r.embedder = o
		}
	}
}

// WithOpenRouter configures the OpenRouter LLM provider.
func WithOpenRouter(model string) Option {
	return func(r *Runtime) {
		opts := []provider.OpenRouterOption{}
		if model != "" {
			opts = append(opts, provider.WithOpenRouterModel(model))
		}
		o := provider.NewOpenRouter(opts...)
		r.prov = o
		if r.embedder == nil {
			r.embedder = o
		}
	}
}

// WithMockProvider configures a mock LLM provider (for testing).
func WithMockProvider(response string) Option {
	return func(r *Runtime) {
		r.prov = provider.NewMock(response)
	}
}

// WithMockProviderFunc configures a mock LLM provider with a custom
// handler (for testing).
func WithMockProviderFunc(handler func(system, user string) string) Option {
	return func(r *Runtime) {
		r.prov = provider.NewMockHandler(handler)
	}
}

// WithMaxDepth sets the self-invocation depth ceiling.
func WithMaxDepth(n int) Option {
	return func(r *Runtime) {
		r.maxDepth = n
	}
}

// WithSystemPrompt sets the system prompt for llm_call.
func WithSystemPrompt(prompt string) Option {
	return func(r *Runtime) {
		r.systemPrompt = prompt
	}
}

// WithHandler registers a custom effect handler.
func WithHandler(op string, h effect.HandlerFunc) Option {
	return func(r *Runtime) {
		r.handlers[op] = h
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runtime) {
		r.logger = logger
	}
}

// WithPrelude sets a custom prelude source to be loaded on startup.
// If not set, DefaultPrelude is used.
func WithPrelude(source string) Option {
	return func(r *Runtime) {
		r.prelude = source
	}
}

// WithNoPrelude disables loading the prelude.
func WithNoPrelude() Option {
	return func(r *Runtime) {
		r.noPrelude = true
	}
}
