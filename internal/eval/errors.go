// SPDX-License-Identifier: AGPL-3.0-or-later

package eval

import "errors"

// Evaluator failures are terminal for the evaluation that raised them:
// there is no intra-language catch construct, and nothing is retried.
// Recoverable conditions (a context-store miss, a depth ceiling) are
// value-level error records instead, never these.
var (
	// ErrUndefinedVariable reports a name missing from the environment.
	ErrUndefinedVariable = errors.New("undefined variable")

	// ErrNotAProcedure reports a call whose target is not a closure.
	ErrNotAProcedure = errors.New("not a procedure")

	// ErrNoEffectHandler reports an effect node evaluated without a
	// dispatcher supplied.
	ErrNoEffectHandler = errors.New("no effect handler")

	// ErrUnknownEffect reports an operation name the dispatcher has no
	// entry for.
	ErrUnknownEffect = errors.New("unknown effect")

	// ErrMalformedNode reports a tree that violates the node contract.
	// Generators must emit well-formed nodes; this is a caller bug.
	ErrMalformedNode = errors.New("malformed node")
)
