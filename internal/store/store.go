// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store provides persistence for modl programs, serialized
// environments, and macro embeddings.
package store

// Program is a named, persisted modl program. Source holds the program
// in its wire form, JSON or s-expression.
type Program struct {
	Name        string
	Description string
	Source      string
}

// Store is the interface for program persistence.
type Store interface {
	// GetProgram retrieves a program by name. Returns nil if not found.
	GetProgram(name string) (*Program, error)
	// PutProgram stores a program by name, overwriting if it exists.
	PutProgram(p Program) error
	// DeleteProgram removes a program by name.
	DeleteProgram(name string) error
	// ListPrograms returns all stored programs ordered by name.
	ListPrograms() ([]Program, error)

	// GetEnvironment retrieves a serialized environment by name.
	// Returns nil if not found.
	GetEnvironment(name string) ([]byte, error)
	// PutEnvironment stores a serialized environment by name.
	PutEnvironment(name string, data []byte) error

	// PutEmbedding stores an embedding vector keyed by program name.
	PutEmbedding(name string, vector []float32) error
	// GetEmbeddings retrieves all stored embeddings.
	GetEmbeddings() (map[string][]float32, error)
	// DeleteEmbedding removes an embedding by name.
	DeleteEmbedding(name string) error

	// GetMetadata retrieves a metadata value by key. Missing keys
	// return "".
	GetMetadata(key string) (string, error)
	// SetMetadata stores a metadata value by key.
	SetMetadata(key, value string) error

	// Close releases resources.
	Close() error
}
