package modl

import (
	"context"
	"errors"
	"testing"

	"github.com/modl-lang/modl/internal/effect"
	"github.com/modl-lang/modl/internal/eval"
	"github.com/modl-lang/modl/internal/node"
	"github.com/modl-lang/modl/internal/store"
)

func newRuntime(t *testing.T, opts ...Option) *Runtime {
	t.Helper()
	r, err := New(opts...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestEvalStringBasics(t *testing.T) {
	r := newRuntime(t)
	ctx := context.Background()

	v, err := r.EvalString(ctx, "(+ 1 2 3)")
	if err != nil {
		t.Fatal(err)
	}
	if v != eval.Number(6) {
		t.Errorf("got %v", v)
	}

	v, err = r.EvalString(ctx, `(define fact (lambda (n) (if (<= n 1) 1 (* n (fact (- n 1))))))
		(fact 5)`)
	if err != nil {
		t.Fatal(err)
	}
	if v != eval.Number(120) {
		t.Errorf("fact(5): got %v", v)
	}
}

func TestSequenceThreadsEnvironmentThroughEffects(t *testing.T) {
	r := newRuntime(t)
	ctx := context.Background()

	// A definition, an unrelated effect, and a use of the definition: the
	// binding must survive the effect in between.
	program := []*node.Node{
		node.Define("x", node.Num(10)),
		node.Effect("context_set",
			node.Param{Name: "name", Arg: node.LiteralArg("scratch")},
			node.Param{Name: "value", Arg: node.LiteralArg("noise")}),
		node.Arith("+", node.Var("x"), node.Num(5)),
	}
	results, err := r.ExecuteSequence(ctx, program)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[2] != eval.Number(15) {
		t.Errorf("final result: got %v", results[2])
	}
	if v, ok := r.Lookup("x"); !ok || v != eval.Number(10) {
		t.Errorf("x lost: %v %v", v, ok)
	}
}

func TestErrorKeepsLastGoodEnvironment(t *testing.T) {
	r := newRuntime(t)
	ctx := context.Background()

	_, err := r.EvalString(ctx, "(define y 1)")
	if err != nil {
		t.Fatal(err)
	}
	_, err = r.EvalString(ctx, "(define z 2) missing_name")
	if !errors.Is(err, eval.ErrUndefinedVariable) {
		t.Fatalf("expected ErrUndefinedVariable, got %v", err)
	}

	// y survives; z was defined before the failure in the same sequence
	// and also survives, per sequential threading.
	if _, ok := r.Lookup("y"); !ok {
		t.Error("y lost after failed program")
	}
	if _, ok := r.Lookup("z"); !ok {
		t.Error("z lost; definitions before the failing form should persist")
	}
}

func TestEvalJSON(t *testing.T) {
	r := newRuntime(t)
	src := `[
		{"type":"definition","name":"x","value":{"type":"number","value":4}},
		{"type":"arithmeticOperation","operator":"*","operands":[
			{"type":"variable","name":"x"},
			{"type":"variable","name":"x"}]}
	]`
	v, err := r.EvalJSON(context.Background(), []byte(src))
	if err != nil {
		t.Fatal(err)
	}
	if v != eval.Number(16) {
		t.Errorf("got %v", v)
	}
}

func TestPreludeLoaded(t *testing.T) {
	r := newRuntime(t)
	v, err := r.EvalString(context.Background(), "(clamp 99 0 10)")
	if err != nil {
		t.Fatal(err)
	}
	if v != eval.Number(10) {
		t.Errorf("got %v", v)
	}

	bare := newRuntime(t, WithNoPrelude())
	if _, err := bare.EvalString(context.Background(), "(abs -3)"); err == nil {
		t.Error("prelude should not load with WithNoPrelude")
	}
}

func TestLLMCallThroughRuntime(t *testing.T) {
	r := newRuntime(t, WithMockProvider("7"))
	v, err := r.EvalString(context.Background(),
		`(effect llm_call (prompt "pick a number") (expect "number")
			:bind n
			:then (+ n 1))`)
	if err != nil {
		t.Fatal(err)
	}
	if v != eval.Number(8) {
		t.Errorf("got %v", v)
	}
}

func TestCustomHandler(t *testing.T) {
	r := newRuntime(t, WithHandler("shout", func(_ context.Context, args map[string]eval.Value, _ *effect.Session) (eval.Value, error) {
		s, _ := args["text"].(eval.String)
		return eval.String(string(s) + "!"), nil
	}))
	v, err := r.EvalString(context.Background(), `(effect shout (text "hey"))`)
	if err != nil {
		t.Fatal(err)
	}
	if v != eval.String("hey!") {
		t.Errorf("got %v", v)
	}
}

func TestSaveAndLoadEnvironment(t *testing.T) {
	shared := store.NewMemory()
	ctx := context.Background()

	r1 := newRuntime(t, WithStore(shared))
	_, err := r1.EvalString(ctx, `(define base 10)
		(define addbase (lambda (n) (+ n base)))`)
	if err != nil {
		t.Fatal(err)
	}
	if err := r1.SaveEnvironment("session"); err != nil {
		t.Fatal(err)
	}

	// A fresh runtime over the same store must restore both the value and
	// the closure, with the closure able to see its sibling binding.
	r2, err := New(WithStore(shared), WithNoPrelude())
	if err != nil {
		t.Fatal(err)
	}
	if err := r2.LoadEnvironment("session"); err != nil {
		t.Fatal(err)
	}
	v, err := r2.EvalString(ctx, "(addbase 5)")
	if err != nil {
		t.Fatal(err)
	}
	if v != eval.Number(15) {
		t.Errorf("restored closure: got %v", v)
	}
}

func TestLoadEnvironmentMissing(t *testing.T) {
	r := newRuntime(t, WithMemoryStore())
	if err := r.LoadEnvironment("absent"); err == nil {
		t.Fatal("expected error for missing environment")
	}
}
