// SPDX-License-Identifier: AGPL-3.0-or-later

// Package node defines the modl expression tree.
//
// Programs are data: a model (or the s-expression front-end) emits a tree
// of tagged nodes, and the evaluator reduces it. The tree is immutable
// after construction.
package node

// Type is the discriminant tag of a node.
type Type string

const (
	TypeNumber        Type = "number"
	TypeString        Type = "string"
	TypeBoolean       Type = "boolean"
	TypeVariable      Type = "variable"
	TypeArithmetic    Type = "arithmeticOperation"
	TypeComparative   Type = "comparativeOperation"
	TypeConditional   Type = "conditional"
	TypeProcedure     Type = "procedure"
	TypeProcedureCall Type = "procedureCall"
	TypeDefinition    Type = "definition"
	TypeEffect        Type = "effect"
)

// knownTypes is the closed set of node tags. Anything else in a "type"
// field is treated as plain data, not as an expression.
var knownTypes = map[Type]bool{
	TypeNumber:        true,
	TypeString:        true,
	TypeBoolean:       true,
	TypeVariable:      true,
	TypeArithmetic:    true,
	TypeComparative:   true,
	TypeConditional:   true,
	TypeProcedure:     true,
	TypeProcedureCall: true,
	TypeDefinition:    true,
	TypeEffect:        true,
}

// IsKnownType reports whether t names a node variant.
func IsKnownType(t Type) bool { return knownTypes[t] }

// Node is one element of a program tree. Which fields are meaningful
// depends on Type; the rest stay zero.
type Node struct {
	Type Type

	// number / string / boolean
	NumberValue float64
	StringValue string
	BoolValue   bool

	// variable name, definition key, or effect operation name
	Name string

	// arithmeticOperation / comparativeOperation
	Operator string
	Operands []*Node

	// conditional
	Condition   *Node
	TrueReturn  *Node
	FalseReturn *Node

	// procedure
	Params []string
	Body   *Node

	// procedureCall
	Callee *Node
	Args   []*Node

	// definition
	Value *Node

	// effect
	EffectParams []Param
	Bind         string
	Then         *Node
}

// Param is one named effect argument. Order is significant: arguments are
// evaluated in declaration order.
type Param struct {
	Name string
	Arg  Arg
}

// Arg is an effect argument: either a sub-expression to evaluate or a
// literal passed verbatim. The distinction is fixed when the tree is
// built, so the evaluator never sniffs shapes at runtime.
type Arg struct {
	Expr    *Node
	Literal any
}

// IsExpr reports whether the argument is a sub-expression.
func (a Arg) IsExpr() bool { return a.Expr != nil }

// ExprArg wraps a sub-expression as an effect argument.
func ExprArg(n *Node) Arg { return Arg{Expr: n} }

// LiteralArg wraps a verbatim value as an effect argument.
func LiteralArg(v any) Arg { return Arg{Literal: v} }

// Num builds a number literal.
func Num(v float64) *Node { return &Node{Type: TypeNumber, NumberValue: v} }

// Str builds a string literal.
func Str(v string) *Node { return &Node{Type: TypeString, StringValue: v} }

// Boolean builds a boolean literal.
func Boolean(v bool) *Node { return &Node{Type: TypeBoolean, BoolValue: v} }

// Var builds a variable reference.
func Var(name string) *Node { return &Node{Type: TypeVariable, Name: name} }

// Arith builds an arithmetic operation over two or more operands.
func Arith(op string, operands ...*Node) *Node {
	return &Node{Type: TypeArithmetic, Operator: op, Operands: operands}
}

// Compare builds a comparative operation over two or more operands.
func Compare(op string, operands ...*Node) *Node {
	return &Node{Type: TypeComparative, Operator: op, Operands: operands}
}

// If builds a conditional.
func If(cond, trueReturn, falseReturn *Node) *Node {
	return &Node{Type: TypeConditional, Condition: cond, TrueReturn: trueReturn, FalseReturn: falseReturn}
}

// Proc builds a procedure (syntactic lambda).
func Proc(params []string, body *Node) *Node {
	return &Node{Type: TypeProcedure, Params: params, Body: body}
}

// Call builds a procedure call.
func Call(callee *Node, args ...*Node) *Node {
	return &Node{Type: TypeProcedureCall, Callee: callee, Args: args}
}

// CallNamed builds a call to a named procedure.
func CallNamed(name string, args ...*Node) *Node {
	return Call(Var(name), args...)
}

// Define builds a top-level definition.
func Define(name string, value *Node) *Node {
	return &Node{Type: TypeDefinition, Name: name, Value: value}
}

// Effect builds an effect invocation.
func Effect(op string, params ...Param) *Node {
	return &Node{Type: TypeEffect, Name: op, EffectParams: params}
}

// WithBind returns a copy of an effect node with a result binding name.
func (n *Node) WithBind(name string) *Node {
	c := *n
	c.Bind = name
	return &c
}

// WithThen returns a copy of an effect node with a continuation.
func (n *Node) WithThen(then *Node) *Node {
	c := *n
	c.Then = then
	return &c
}
