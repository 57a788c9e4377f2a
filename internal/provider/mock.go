// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"sync/atomic"
)

// Mock is a provider for testing. It answers with a fixed response or a
// handler and counts calls.
type Mock struct {
	Response string
	Handler  func(system, user string) string
	calls    atomic.Int64
}

// NewMock creates a mock provider with a fixed response.
func NewMock(response string) *Mock {
	return &Mock{Response: response}
}

// NewMockHandler creates a mock provider with a custom handler.
func NewMockHandler(handler func(system, user string) string) *Mock {
	return &Mock{Handler: handler}
}

// Prompt returns the mock response or calls the handler.
func (m *Mock) Prompt(_ context.Context, system, user string) (string, error) {
	m.calls.Add(1)
	if m.Handler != nil {
		return m.Handler(system, user), nil
	}
	return m.Response, nil
}

// Calls reports how many times Prompt was invoked.
func (m *Mock) Calls() int {
	return int(m.calls.Load())
}

// MockEmbedder produces small deterministic embeddings derived from the
// input bytes. Useful for exercising vector search without a model.
type MockEmbedder struct {
	Dim int
}

// Embed returns one vector per text.
func (m *MockEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	dim := m.Dim
	if dim <= 0 {
		dim = 8
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, dim)
		for j, b := range []byte(text) {
			vec[j%dim] += float32(b) / 255
		}
		out[i] = vec
	}
	return out, nil
}
