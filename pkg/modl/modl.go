// SPDX-License-Identifier: AGPL-3.0-or-later

// Package modl provides the public API for embedding the modl runtime:
// programs as data, evaluated against a persistent environment with
// host-mediated effects.
package modl

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/modl-lang/modl/internal/effect"
	"github.com/modl-lang/modl/internal/eval"
	"github.com/modl-lang/modl/internal/macro"
	"github.com/modl-lang/modl/internal/node"
	"github.com/modl-lang/modl/internal/provider"
	"github.com/modl-lang/modl/internal/sexpr"
	"github.com/modl-lang/modl/internal/store"
)

// Runtime is the modl interpreter runtime. It owns the environment, the
// effect session, and optional persistence. Execute and friends are
// serialized by an internal lock; one Runtime is safe for concurrent use.
type Runtime struct {
	mu         sync.Mutex
	env        *eval.Env
	session    *effect.Session
	dispatcher *effect.Dispatcher
	store      store.Store
	macros     *macro.Registry
	logger     *slog.Logger

	prov         provider.Provider
	embedder     provider.EmbeddingProvider
	maxDepth     int
	systemPrompt string
	prelude      string
	noPrelude    bool
	handlers     map[string]effect.HandlerFunc
	initErr      error
}

// New creates a runtime with the given options.
func New(opts ...Option) (*Runtime, error) {
	r := &Runtime{
		env:      eval.NewEnv(),
		maxDepth: effect.DefaultMaxDepth,
		handlers: make(map[string]effect.HandlerFunc),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.initErr != nil {
		return nil, r.initErr
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}

	r.session = effect.NewSession(
		effect.WithProvider(r.prov),
		effect.WithMaxDepth(r.maxDepth),
		effect.WithSystemPrompt(r.systemPrompt),
	)
	r.dispatcher = effect.NewDispatcher(r.session, r.logger)
	for op, h := range r.handlers {
		r.dispatcher.Register(op, h)
	}

	if r.store != nil {
		macros, err := macro.NewRegistry(r.store, r.embedder)
		if err != nil {
			return nil, err
		}
		r.macros = macros
	}

	if !r.noPrelude {
		src := r.prelude
		if src == "" {
			src = DefaultPrelude
		}
		if src != "" {
			if _, err := r.EvalString(context.Background(), src); err != nil {
				return nil, fmt.Errorf("loading prelude: %w", err)
			}
		}
	}

	return r, nil
}

// Execute evaluates one node against the runtime environment. A
// definition or an effect binding updates the environment; on error the
// environment keeps its last good state.
func (r *Runtime) Execute(ctx context.Context, n *node.Node) (eval.Value, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, env, err := eval.Evaluate(ctx, n, r.env, r.dispatcher)
	if err != nil {
		return nil, err
	}
	r.env = env
	return v, nil
}

// ExecuteSequence evaluates nodes in order, threading the environment.
// It returns every result; on error it stops, keeping the environment
// from the last node that succeeded.
func (r *Runtime) ExecuteSequence(ctx context.Context, program []*node.Node) ([]eval.Value, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	results := make([]eval.Value, 0, len(program))
	for _, n := range program {
		v, env, err := eval.Evaluate(ctx, n, r.env, r.dispatcher)
		if err != nil {
			return results, err
		}
		r.env = env
		results = append(results, v)
	}
	return results, nil
}

// EvalString parses s-expression source and evaluates the forms,
// returning the last result.
func (r *Runtime) EvalString(ctx context.Context, source string) (eval.Value, error) {
	program, err := sexpr.Parse(source)
	if err != nil {
		return nil, err
	}
	if len(program) == 0 {
		return eval.Null{}, nil
	}
	results, err := r.ExecuteSequence(ctx, program)
	if err != nil {
		return nil, err
	}
	return results[len(results)-1], nil
}

// EvalJSON decodes a JSON program, a single node or an array, and
// evaluates it, returning the last result.
func (r *Runtime) EvalJSON(ctx context.Context, data []byte) (eval.Value, error) {
	program, err := node.UnmarshalProgram(data)
	if err != nil {
		return nil, err
	}
	if len(program) == 0 {
		return eval.Null{}, nil
	}
	results, err := r.ExecuteSequence(ctx, program)
	if err != nil {
		return nil, err
	}
	return results[len(results)-1], nil
}

// Lookup resolves a name in the runtime environment.
func (r *Runtime) Lookup(name string) (eval.Value, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.env.Lookup(name)
}

// Session returns the effect session, exposing the context store and
// recursion depth.
func (r *Runtime) Session() *effect.Session { return r.session }

// Macros returns the macro registry, or nil when no store is configured.
func (r *Runtime) Macros() *macro.Registry { return r.macros }

// RegisterHandler installs a custom effect handler.
func (r *Runtime) RegisterHandler(op string, h effect.HandlerFunc) {
	r.dispatcher.Register(op, h)
}

// persistedBinding is the JSON shape of one saved environment entry.
type persistedBinding struct {
	Kind   string          `json:"kind"`
	Value  json.RawMessage `json:"value,omitempty"`
	Params []string        `json:"params,omitempty"`
	Body   json.RawMessage `json:"body,omitempty"`
}

// SaveEnvironment serializes the environment to the store under a name.
// Closures persist as their procedure node and parameters.
func (r *Runtime) SaveEnvironment(name string) error {
	if r.store == nil {
		return fmt.Errorf("no store configured")
	}
	r.mu.Lock()
	bindings := r.env.Bindings()
	r.mu.Unlock()

	out := make(map[string]persistedBinding, len(bindings))
	for key, v := range bindings {
		if c, ok := v.(*eval.Closure); ok {
			body, err := json.Marshal(c.Body)
			if err != nil {
				return fmt.Errorf("serializing %s: %w", key, err)
			}
			out[key] = persistedBinding{Kind: "procedure", Params: c.Params, Body: body}
			continue
		}
		raw, err := json.Marshal(eval.ToAny(v))
		if err != nil {
			return fmt.Errorf("serializing %s: %w", key, err)
		}
		out[key] = persistedBinding{Kind: "value", Value: raw}
	}

	data, err := json.Marshal(out)
	if err != nil {
		return err
	}
	return r.store.PutEnvironment(name, data)
}

// LoadEnvironment replaces the runtime environment with a saved one.
// Restored closures are rebound to the loaded environment so they can
// see each other and themselves.
func (r *Runtime) LoadEnvironment(name string) error {
	if r.store == nil {
		return fmt.Errorf("no store configured")
	}
	data, err := r.store.GetEnvironment(name)
	if err != nil {
		return err
	}
	if data == nil {
		return fmt.Errorf("no environment named %s", name)
	}

	var bindings map[string]persistedBinding
	if err := json.Unmarshal(data, &bindings); err != nil {
		return fmt.Errorf("decoding environment %s: %w", name, err)
	}

	keys := make([]string, 0, len(bindings))
	for key := range bindings {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	env := eval.NewEnv()
	var closures []*eval.Closure
	for _, key := range keys {
		b := bindings[key]
		switch b.Kind {
		case "procedure":
			body, err := node.Unmarshal(b.Body)
			if err != nil {
				return fmt.Errorf("decoding %s: %w", key, err)
			}
			c := eval.NewClosure(b.Params, body, nil)
			closures = append(closures, c)
			env = env.Extend(key, c)
		case "value":
			var decoded any
			if err := json.Unmarshal(b.Value, &decoded); err != nil {
				return fmt.Errorf("decoding %s: %w", key, err)
			}
			env = env.Extend(key, eval.FromAny(decoded))
		default:
			return fmt.Errorf("decoding %s: unknown binding kind %q", key, b.Kind)
		}
	}
	for _, c := range closures {
		c.Rebind(env)
	}

	r.mu.Lock()
	r.env = env
	r.mu.Unlock()
	return nil
}

// Close releases resources.
func (r *Runtime) Close() error {
	if r.store != nil {
		return r.store.Close()
	}
	return nil
}
