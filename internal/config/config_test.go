package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "modl.cue")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadValid(t *testing.T) {
	path := writeConfig(t, `
provider: "ollama"
model:    "llama3"
maxDepth: 4
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Provider != "ollama" || cfg.Model != "llama3" || cfg.MaxDepth != 4 {
		t.Errorf("got %+v", cfg)
	}
}

func TestLoadFillsDefaults(t *testing.T) {
	path := writeConfig(t, `provider: "mock"`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MaxDepth != 8 {
		t.Errorf("default maxDepth lost: %+v", cfg)
	}
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	path := writeConfig(t, `provider: "carrier-pigeon"`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadRejectsUnknownField(t *testing.T) {
	path := writeConfig(t, `temperture: 0.5`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestLoadRejectsNegativeDepth(t *testing.T) {
	path := writeConfig(t, `maxDepth: -1`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for negative maxDepth")
	}
}
