// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"sort"
	"sync"
)

// Memory is an in-memory store, used by tests and ephemeral runtimes.
type Memory struct {
	mu           sync.RWMutex
	programs     map[string]Program
	environments map[string][]byte
	embeddings   map[string][]float32
	metadata     map[string]string
}

// NewMemory creates a new in-memory store.
func NewMemory() *Memory {
	return &Memory{
		programs:     make(map[string]Program),
		environments: make(map[string][]byte),
		embeddings:   make(map[string][]float32),
		metadata:     make(map[string]string),
	}
}

// GetProgram retrieves a program by name.
func (m *Memory) GetProgram(name string) (*Program, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.programs[name]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// PutProgram stores a program by name.
func (m *Memory) PutProgram(p Program) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.programs[p.Name] = p
	return nil
}

// DeleteProgram removes a program by name.
func (m *Memory) DeleteProgram(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.programs, name)
	return nil
}

// ListPrograms returns all stored programs ordered by name.
func (m *Memory) ListPrograms() ([]Program, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Program, 0, len(m.programs))
	for _, p := range m.programs {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// GetEnvironment retrieves a serialized environment by name.
func (m *Memory) GetEnvironment(name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.environments[name]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// PutEnvironment stores a serialized environment by name.
func (m *Memory) PutEnvironment(name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]byte, len(data))
	copy(stored, data)
	m.environments[name] = stored
	return nil
}

// PutEmbedding stores an embedding vector keyed by program name.
func (m *Memory) PutEmbedding(name string, vector []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]float32, len(vector))
	copy(stored, vector)
	m.embeddings[name] = stored
	return nil
}

// GetEmbeddings retrieves all stored embeddings.
func (m *Memory) GetEmbeddings() (map[string][]float32, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string][]float32, len(m.embeddings))
	for name, vec := range m.embeddings {
		copied := make([]float32, len(vec))
		copy(copied, vec)
		out[name] = copied
	}
	return out, nil
}

// DeleteEmbedding removes an embedding by name.
func (m *Memory) DeleteEmbedding(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.embeddings, name)
	return nil
}

// GetMetadata retrieves a metadata value by key.
func (m *Memory) GetMetadata(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.metadata[key], nil
}

// SetMetadata stores a metadata value by key.
func (m *Memory) SetMetadata(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metadata[key] = value
	return nil
}

// Close is a no-op for the in-memory store.
func (m *Memory) Close() error { return nil }
