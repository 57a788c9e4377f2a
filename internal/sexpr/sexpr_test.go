package sexpr

import (
	"testing"

	"github.com/modl-lang/modl/internal/node"
)

func parseOne(t *testing.T, src string) *node.Node {
	t.Helper()
	n, err := ParseOne(src)
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	return n
}

func TestParseAtoms(t *testing.T) {
	if n := parseOne(t, "42"); n.Type != node.TypeNumber || n.NumberValue != 42 {
		t.Errorf("got %+v", n)
	}
	if n := parseOne(t, "-3.5"); n.NumberValue != -3.5 {
		t.Errorf("got %+v", n)
	}
	if n := parseOne(t, `"hi\nthere"`); n.Type != node.TypeString || n.StringValue != "hi\nthere" {
		t.Errorf("got %+v", n)
	}
	if n := parseOne(t, "true"); n.Type != node.TypeBoolean || !n.BoolValue {
		t.Errorf("got %+v", n)
	}
	if n := parseOne(t, "x"); n.Type != node.TypeVariable || n.Name != "x" {
		t.Errorf("got %+v", n)
	}
}

func TestParseDefineAndLambda(t *testing.T) {
	n := parseOne(t, "(define double (lambda (n) (* n 2)))")
	if n.Type != node.TypeDefinition || n.Name != "double" {
		t.Fatalf("got %+v", n)
	}
	proc := n.Value
	if proc.Type != node.TypeProcedure || len(proc.Params) != 1 || proc.Params[0] != "n" {
		t.Fatalf("got %+v", proc)
	}
	if proc.Body.Type != node.TypeArithmetic || proc.Body.Operator != "*" {
		t.Errorf("body: %+v", proc.Body)
	}
}

func TestParseIfAndComparison(t *testing.T) {
	n := parseOne(t, `(if (<= x 1) "small" "big")`)
	if n.Type != node.TypeConditional {
		t.Fatalf("got %+v", n)
	}
	if n.Condition.Type != node.TypeComparative || n.Condition.Operator != "<=" {
		t.Errorf("condition: %+v", n.Condition)
	}
	if n.TrueReturn.StringValue != "small" || n.FalseReturn.StringValue != "big" {
		t.Errorf("branches: %+v %+v", n.TrueReturn, n.FalseReturn)
	}
}

func TestParseCall(t *testing.T) {
	n := parseOne(t, "(fact 5)")
	if n.Type != node.TypeProcedureCall || n.Callee.Name != "fact" {
		t.Fatalf("got %+v", n)
	}
	if len(n.Args) != 1 || n.Args[0].NumberValue != 5 {
		t.Errorf("args: %+v", n.Args)
	}

	// The head may itself be a compound form.
	n = parseOne(t, "((lambda (x) x) 1)")
	if n.Callee.Type != node.TypeProcedure {
		t.Errorf("inline lambda callee: %+v", n.Callee)
	}
}

func TestParseEffect(t *testing.T) {
	src := `(effect llm_call
		(prompt "summarize")
		(context_name doc)
		(max_depth 3)
		:bind r
		:then (effect print (value r)))`
	n := parseOne(t, src)
	if n.Type != node.TypeEffect || n.Name != "llm_call" {
		t.Fatalf("got %+v", n)
	}
	if len(n.EffectParams) != 3 {
		t.Fatalf("params: %+v", n.EffectParams)
	}

	// String and number atoms are literals; a bare symbol is an
	// expression argument.
	if n.EffectParams[0].Arg.IsExpr() {
		t.Error("prompt should be literal")
	}
	if !n.EffectParams[1].Arg.IsExpr() || n.EffectParams[1].Arg.Expr.Name != "doc" {
		t.Errorf("context_name should be a variable expression: %+v", n.EffectParams[1].Arg)
	}
	if v, ok := n.EffectParams[2].Arg.Literal.(float64); !ok || v != 3 {
		t.Errorf("max_depth literal: %+v", n.EffectParams[2].Arg)
	}

	if n.Bind != "r" {
		t.Errorf("bind: %q", n.Bind)
	}
	if n.Then == nil || n.Then.Type != node.TypeEffect || n.Then.Name != "print" {
		t.Errorf("then: %+v", n.Then)
	}
}

func TestParseMultipleFormsAndComments(t *testing.T) {
	src := `
; a counter
(define x 1)
(+ x 1) ; trailing comment
`
	program, err := Parse(src)
	if err != nil {
		t.Fatal(err)
	}
	if len(program) != 2 {
		t.Fatalf("expected 2 forms, got %d", len(program))
	}
	if program[0].Type != node.TypeDefinition || program[1].Type != node.TypeArithmetic {
		t.Errorf("got %v %v", program[0].Type, program[1].Type)
	}
}

func TestParseErrors(t *testing.T) {
	bad := []string{
		"(",
		")",
		"()",
		"(define)",
		`"unterminated`,
		"(+ 1)",
		"(lambda x x)",
	}
	for _, src := range bad {
		if _, err := Parse(src); err == nil {
			t.Errorf("expected error for %q", src)
		}
	}
}

func TestFormatRoundTrip(t *testing.T) {
	sources := []string{
		`(define fact (lambda (n) (if (<= n 1) 1 (* n (fact (- n 1))))))`,
		`(effect context_set (name "notes") (value v) :bind r :then r)`,
		`(greet "world" 2)`,
	}
	for _, src := range sources {
		n := parseOne(t, src)
		printed := Format(n)
		again, err := ParseOne(printed)
		if err != nil {
			t.Fatalf("reparse of %q: %v", printed, err)
		}
		if Format(again) != printed {
			t.Errorf("unstable print: %q vs %q", Format(again), printed)
		}
	}
}
