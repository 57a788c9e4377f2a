// SPDX-License-Identifier: AGPL-3.0-or-later

// Command modl is the modl interpreter CLI.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/modl-lang/modl/internal/config"
	"github.com/modl-lang/modl/internal/eval"
	"github.com/modl-lang/modl/pkg/modl"
)

func main() {
	var (
		evalStr    = flag.String("e", "", "Evaluate a modl string")
		file       = flag.String("f", "", "Execute a modl file")
		jsonMode   = flag.Bool("json", false, "Treat input as a JSON program instead of s-expressions")
		configPath = flag.String("config", "", "CUE config file (default: discover modl.cue)")
		dbPath     = flag.String("db", "", "SQLite database path")
		providerF  = flag.String("provider", "", "LLM provider: anthropic, ollama, openrouter, or mock")
		model      = flag.String("model", "", "LLM model name")
		ollamaURL  = flag.String("ollama", "", "Ollama API URL")
		maxDepth   = flag.Int("max-depth", -1, "Self-invocation depth ceiling")
		noPrelude  = flag.Bool("no-prelude", false, "Disable the prelude")
		logDebug   = flag.Bool("log-debug", false, "Set log level to debug")
	)

	flag.Parse()

	logger := newLogger(*logDebug)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	// Flags override the config file.
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *providerF != "" {
		cfg.Provider = *providerF
	}
	if *model != "" {
		cfg.Model = *model
	}
	if *ollamaURL != "" {
		cfg.OllamaURL = *ollamaURL
	}
	if *maxDepth >= 0 {
		cfg.MaxDepth = *maxDepth
	}

	opts := []modl.Option{
		modl.WithLogger(logger),
		modl.WithMaxDepth(cfg.MaxDepth),
	}
	if cfg.SystemPrompt != "" {
		opts = append(opts, modl.WithSystemPrompt(cfg.SystemPrompt))
	}
	if cfg.DBPath != "" {
		opts = append(opts, modl.WithSQLiteStore(cfg.DBPath))
	} else {
		opts = append(opts, modl.WithMemoryStore())
	}

	switch cfg.Provider {
	case "anthropic":
		opts = append(opts, modl.WithAnthropic(cfg.Model))
	case "ollama":
		opts = append(opts, modl.WithOllama(cfg.OllamaURL, cfg.Model))
	case "openrouter":
		opts = append(opts, modl.WithOpenRouter(cfg.Model))
	case "mock", "":
		opts = append(opts, modl.WithMockProvider(""))
	default:
		fmt.Fprintf(os.Stderr, "Unknown provider: %s\n", cfg.Provider)
		os.Exit(1)
	}

	if *noPrelude {
		opts = append(opts, modl.WithNoPrelude())
	}

	runtime, err := modl.New(opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer runtime.Close()

	ctx := context.Background()

	switch {
	case *evalStr != "":
		run(ctx, runtime, []byte(*evalStr), *jsonMode)

	case *file != "":
		data, err := os.ReadFile(*file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", *file, err)
			os.Exit(1)
		}
		run(ctx, runtime, data, *jsonMode)

	default:
		runREPL(ctx, runtime)
	}
}

func loadConfig(path string) (config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.Discover()
}

func run(ctx context.Context, runtime *modl.Runtime, input []byte, jsonMode bool) {
	var result eval.Value
	var err error
	if jsonMode {
		result, err = runtime.EvalJSON(ctx, input)
	} else {
		result, err = runtime.EvalString(ctx, string(input))
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if _, isNull := result.(eval.Null); !isNull {
		fmt.Println(eval.Format(result))
	}
}
