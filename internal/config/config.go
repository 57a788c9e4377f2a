// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads host configuration from CUE files, validating
// against a schema before decoding.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// Config is the host-side runtime configuration.
type Config struct {
	Provider     string `json:"provider"`
	Model        string `json:"model"`
	DBPath       string `json:"dbPath"`
	SystemPrompt string `json:"systemPrompt"`
	OllamaURL    string `json:"ollamaURL"`
	MaxDepth     int    `json:"maxDepth"`
}

// Default returns the configuration used when no file is found.
func Default() Config {
	return Config{
		Provider: "mock",
		MaxDepth: 8,
	}
}

const schemaSrc = `
provider?:     "anthropic" | "ollama" | "openrouter" | "mock"
model?:        string
dbPath?:       string
systemPrompt?: string
ollamaURL?:    string
maxDepth?:     int & >=0
`

// Load reads and validates a CUE config file, filling unset fields from
// defaults.
func Load(path string) (Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return parse(content, path)
}

func parse(content []byte, filename string) (Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString("close({" + schemaSrc + "})")
	if err := schema.Err(); err != nil {
		return Config{}, fmt.Errorf("config schema: %w", err)
	}

	value := ctx.CompileBytes(content, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return Config{}, fmt.Errorf("parsing %s: %w", filename, err)
	}

	unified := schema.Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return Config{}, fmt.Errorf("validating %s: %w", filename, err)
	}

	cfg := Default()
	if err := unified.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding %s: %w", filename, err)
	}
	return cfg, nil
}

// Discover loads the first config found: modl.cue or .modl.cue in the
// working directory, then modl/config.cue under the user config dir.
// Without one it returns defaults.
func Discover() (Config, error) {
	candidates := []string{"modl.cue", ".modl.cue"}
	if dir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, "modl", "config.cue"))
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return Default(), nil
}
