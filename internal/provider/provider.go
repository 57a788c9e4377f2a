// SPDX-License-Identifier: AGPL-3.0-or-later

// Package provider defines LLM provider interfaces and implementations.
package provider

import "context"

// Provider is the interface for LLM providers.
type Provider interface {
	// Prompt sends a system and user prompt to the model and returns the
	// response text.
	Prompt(ctx context.Context, system, user string) (string, error)
}

// EmbeddingProvider generates vector embeddings for texts.
type EmbeddingProvider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// StreamCallback is called with each token during streaming.
type StreamCallback func(token string)
