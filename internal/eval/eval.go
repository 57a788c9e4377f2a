// SPDX-License-Identifier: AGPL-3.0-or-later

package eval

import (
	"context"
	"fmt"
	"math"

	"github.com/modl-lang/modl/internal/node"
)

// Dispatcher resolves effect operations for the evaluator. The host
// supplies it; the evaluator hardcodes no operation behavior.
type Dispatcher interface {
	Dispatch(ctx context.Context, op string, args map[string]Value) (Value, error)
}

// Evaluate reduces a node in an environment to a value and a (possibly
// extended) environment. Only a definition or an effect with a binding
// return an environment different from the input.
//
// Evaluation is strictly sequential and left-to-right; the only
// suspension points are effect dispatches, which receive ctx. A nil
// dispatcher makes any effect node fail with ErrNoEffectHandler.
func Evaluate(ctx context.Context, n *node.Node, env *Env, d Dispatcher) (Value, *Env, error) {
	if n == nil {
		return nil, env, fmt.Errorf("%w: nil node", ErrMalformedNode)
	}

	switch n.Type {
	case node.TypeNumber:
		return Number(n.NumberValue), env, nil

	case node.TypeString:
		return String(n.StringValue), env, nil

	case node.TypeBoolean:
		return Bool(n.BoolValue), env, nil

	case node.TypeVariable:
		v, ok := env.Lookup(n.Name)
		if !ok {
			return nil, env, fmt.Errorf("%w: %s", ErrUndefinedVariable, n.Name)
		}
		return v, env, nil

	case node.TypeDefinition:
		return evalDefinition(ctx, n, env, d)

	case node.TypeProcedure:
		// Creating a closure does not touch the environment.
		return &Closure{Params: n.Params, Body: n.Body, env: env}, env, nil

	case node.TypeArithmetic:
		v, err := evalArithmetic(ctx, n, env, d)
		return v, env, err

	case node.TypeComparative:
		v, err := evalComparative(ctx, n, env, d)
		return v, env, err

	case node.TypeConditional:
		return evalConditional(ctx, n, env, d)

	case node.TypeProcedureCall:
		v, err := evalCall(ctx, n, env, d)
		return v, env, err

	case node.TypeEffect:
		return evalEffect(ctx, n, env, d)
	}

	return nil, env, fmt.Errorf("%w: unknown node type %q", ErrMalformedNode, n.Type)
}

func evalDefinition(ctx context.Context, n *node.Node, env *Env, d Dispatcher) (Value, *Env, error) {
	v, _, err := Evaluate(ctx, n.Value, env, d)
	if err != nil {
		return nil, env, err
	}
	extended := env.Extend(n.Name, v)
	// A closure defined by name must see its own binding so it can call
	// itself. Repointing its captured environment at the post-definition
	// chain is the single mutation in the model; the chain itself is
	// untouched.
	if c, ok := v.(*Closure); ok {
		c.env = extended
	}
	return Null{}, extended, nil
}

// operand evaluation threads values only: environment changes made by an
// operand do not leak to its siblings or to the enclosing expression.
func evalOperands(ctx context.Context, n *node.Node, env *Env, d Dispatcher) ([]Value, error) {
	if len(n.Operands) < 2 {
		return nil, fmt.Errorf("%w: %s %q needs at least two operands", ErrMalformedNode, n.Type, n.Operator)
	}
	vals := make([]Value, len(n.Operands))
	for i, operand := range n.Operands {
		v, _, err := Evaluate(ctx, operand, env, d)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}

// asNumber coerces a value for arithmetic. Non-numeric operands become
// NaN and propagate, matching the host numeric semantics the language
// inherits; they are not a distinct error.
func asNumber(v Value) float64 {
	if n, ok := v.(Number); ok {
		return float64(n)
	}
	return math.NaN()
}

func evalArithmetic(ctx context.Context, n *node.Node, env *Env, d Dispatcher) (Value, error) {
	vals, err := evalOperands(ctx, n, env, d)
	if err != nil {
		return nil, err
	}
	acc := asNumber(vals[0])
	for _, v := range vals[1:] {
		operand := asNumber(v)
		switch n.Operator {
		case "+":
			acc += operand
		case "-":
			acc -= operand
		case "*":
			acc *= operand
		case "/":
			// Division by zero follows IEEE: an infinity or NaN.
			acc /= operand
		default:
			return nil, fmt.Errorf("%w: arithmetic operator %q", ErrMalformedNode, n.Operator)
		}
	}
	return Number(acc), nil
}

func evalComparative(ctx context.Context, n *node.Node, env *Env, d Dispatcher) (Value, error) {
	vals, err := evalOperands(ctx, n, env, d)
	if err != nil {
		return nil, err
	}
	// Every adjacent pair must satisfy the operator: equality chains are
	// all-equal, ordering chains are strictly (or weakly) monotonic.
	for i := 0; i+1 < len(vals); i++ {
		a, b := vals[i], vals[i+1]
		var ok bool
		switch n.Operator {
		case "=":
			ok = Equal(a, b)
		case "!=":
			ok = !Equal(a, b)
		case "<":
			ok = asNumber(a) < asNumber(b)
		case ">":
			ok = asNumber(a) > asNumber(b)
		case "<=":
			ok = asNumber(a) <= asNumber(b)
		case ">=":
			ok = asNumber(a) >= asNumber(b)
		default:
			return nil, fmt.Errorf("%w: comparative operator %q", ErrMalformedNode, n.Operator)
		}
		if !ok {
			return Bool(false), nil
		}
	}
	return Bool(true), nil
}

func evalConditional(ctx context.Context, n *node.Node, env *Env, d Dispatcher) (Value, *Env, error) {
	cond, _, err := Evaluate(ctx, n.Condition, env, d)
	if err != nil {
		return nil, env, err
	}
	// Exactly one branch is evaluated, and its environment becomes the
	// conditional's environment: branches may define or bind.
	if Truthy(cond) {
		return Evaluate(ctx, n.TrueReturn, env, d)
	}
	return Evaluate(ctx, n.FalseReturn, env, d)
}

func evalCall(ctx context.Context, n *node.Node, env *Env, d Dispatcher) (Value, error) {
	if n.Callee == nil {
		return nil, fmt.Errorf("%w: procedureCall without a procedure", ErrMalformedNode)
	}
	calleeVal, _, err := Evaluate(ctx, n.Callee, env, d)
	if err != nil {
		return nil, err
	}
	closure, ok := calleeVal.(*Closure)
	if !ok {
		if n.Callee.Type == node.TypeVariable {
			return nil, fmt.Errorf("%w: %s is %s", ErrNotAProcedure, n.Callee.Name, TypeName(calleeVal))
		}
		return nil, fmt.Errorf("%w: call target is %s", ErrNotAProcedure, TypeName(calleeVal))
	}

	// Arguments evaluate left to right against the caller's environment,
	// not the closure's.
	args := make([]Value, len(n.Args))
	for i, argNode := range n.Args {
		v, _, err := Evaluate(ctx, argNode, env, d)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	// Positional binding over the captured environment. Extra arguments
	// are ignored; missing ones bind to null rather than failing, which
	// generated programs rely on.
	local := closure.env
	for i, param := range closure.Params {
		if i < len(args) {
			local = local.Extend(param, args[i])
		} else {
			local = local.Extend(param, Null{})
		}
	}

	result, _, err := Evaluate(ctx, closure.Body, local, d)
	if err != nil {
		return nil, err
	}
	// The caller's environment is returned unchanged by evalCall's
	// caller: a call cannot inject names into the calling scope.
	return result, nil
}

func evalEffect(ctx context.Context, n *node.Node, env *Env, d Dispatcher) (Value, *Env, error) {
	if d == nil {
		return nil, env, fmt.Errorf("%w: effect %q", ErrNoEffectHandler, n.Name)
	}

	args := make(map[string]Value, len(n.EffectParams))
	for _, p := range n.EffectParams {
		if p.Arg.IsExpr() {
			v, _, err := Evaluate(ctx, p.Arg.Expr, env, d)
			if err != nil {
				return nil, env, err
			}
			args[p.Name] = v
		} else {
			args[p.Name] = FromAny(p.Arg.Literal)
		}
	}

	result, err := d.Dispatch(ctx, n.Name, args)
	if err != nil {
		return nil, env, err
	}

	out := env
	if n.Bind != "" {
		out = env.Extend(n.Bind, result)
	}
	if n.Then != nil {
		// The continuation's result replaces the effect's own; what was
		// bound is all that survives of the raw result.
		return Evaluate(ctx, n.Then, out, d)
	}
	return result, out, nil
}
