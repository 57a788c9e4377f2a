// SPDX-License-Identifier: AGPL-3.0-or-later

package effect

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/modl-lang/modl/internal/eval"
)

// HandlerFunc is one effect operation. It receives the evaluated
// arguments and the shared session. Recoverable failures should be
// returned as value-level error records; a Go error aborts evaluation.
type HandlerFunc func(ctx context.Context, args map[string]eval.Value, s *Session) (eval.Value, error)

// Dispatcher routes effect operations to registered handlers. It
// implements eval.Dispatcher.
type Dispatcher struct {
	session  *Session
	handlers map[string]HandlerFunc
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher with all built-in operations
// registered: tool effects, context store operations, and llm_call.
func NewDispatcher(session *Session, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		session:  session,
		handlers: make(map[string]HandlerFunc),
		logger:   logger,
	}
	registerBuiltins(d)
	registerContextOps(d)
	d.Register("llm_call", llmCall)
	return d
}

// NewEmptyDispatcher creates a dispatcher with no handlers registered,
// for hosts that want full control over the operation set.
func NewEmptyDispatcher(session *Session, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		session:  session,
		handlers: make(map[string]HandlerFunc),
		logger:   logger,
	}
}

// Session returns the dispatcher's session.
func (d *Dispatcher) Session() *Session { return d.session }

// Register installs or replaces a handler for an operation name.
func (d *Dispatcher) Register(op string, h HandlerFunc) {
	d.handlers[op] = h
}

// Operations lists registered operation names.
func (d *Dispatcher) Operations() []string {
	ops := make([]string, 0, len(d.handlers))
	for op := range d.handlers {
		ops = append(ops, op)
	}
	return ops
}

// Dispatch routes one effect to its handler.
func (d *Dispatcher) Dispatch(ctx context.Context, op string, args map[string]eval.Value) (eval.Value, error) {
	h, ok := d.handlers[op]
	if !ok {
		return nil, fmt.Errorf("%w: %s", eval.ErrUnknownEffect, op)
	}
	d.logger.Debug("dispatching effect", "op", op, "args", len(args))
	result, err := h(ctx, args, d.session)
	if err != nil {
		d.logger.Debug("effect failed", "op", op, "err", err)
		return nil, fmt.Errorf("effect %s: %w", op, err)
	}
	return result, nil
}

// argString extracts a string argument, tolerating other value kinds by
// formatting them.
func argString(args map[string]eval.Value, key string) (string, bool) {
	v, ok := args[key]
	if !ok {
		return "", false
	}
	if s, ok := v.(eval.String); ok {
		return string(s), true
	}
	if _, isNull := v.(eval.Null); isNull || v == nil {
		return "", false
	}
	return eval.Format(v), true
}

// argNumber extracts a numeric argument.
func argNumber(args map[string]eval.Value, key string) (float64, bool) {
	v, ok := args[key]
	if !ok {
		return 0, false
	}
	n, ok := v.(eval.Number)
	return float64(n), ok
}
