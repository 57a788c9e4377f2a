// SPDX-License-Identifier: AGPL-3.0-or-later

package sexpr

import (
	"fmt"
	"strconv"

	"github.com/modl-lang/modl/internal/node"
)

var arithmeticOps = map[string]bool{"+": true, "-": true, "*": true, "/": true}

var comparativeOps = map[string]bool{
	"=": true, "!=": true, "<": true, ">": true, "<=": true, ">=": true,
}

// Parse reads all top-level forms from source.
func Parse(source string) ([]*node.Node, error) {
	s := NewFromString(source)
	var program []*node.Node
	for {
		item, err := s.Peek()
		if err != nil {
			return nil, err
		}
		if item.Token == EOF {
			return program, nil
		}
		n, err := parseForm(s)
		if err != nil {
			return nil, err
		}
		program = append(program, n)
	}
}

// ParseOne reads a single form, rejecting trailing input.
func ParseOne(source string) (*node.Node, error) {
	program, err := Parse(source)
	if err != nil {
		return nil, err
	}
	if len(program) != 1 {
		return nil, fmt.Errorf("expected one form, got %d", len(program))
	}
	return program[0], nil
}

func parseForm(s *Scanner) (*node.Node, error) {
	item, err := s.Next()
	if err != nil {
		return nil, err
	}

	switch item.Token {
	case NUMBER:
		f, err := strconv.ParseFloat(item.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad number %q", item.Line, item.Value)
		}
		return node.Num(f), nil
	case STRING:
		return node.Str(item.Value), nil
	case SYMBOL:
		switch item.Value {
		case "true":
			return node.Boolean(true), nil
		case "false":
			return node.Boolean(false), nil
		case "null":
			// null has no literal node; an effect-free way to produce it
			// is a definition, but as an expression we reject it.
			return nil, fmt.Errorf("line %d: null is not an expression", item.Line)
		}
		return node.Var(item.Value), nil
	case LPAREN:
		return parseList(s, item.Line)
	case RPAREN:
		return nil, fmt.Errorf("line %d: unexpected )", item.Line)
	case KEYWORD:
		return nil, fmt.Errorf("line %d: unexpected %s", item.Line, item.Value)
	case EOF:
		return nil, fmt.Errorf("line %d: unexpected end of input", item.Line)
	}
	return nil, fmt.Errorf("line %d: unexpected token", item.Line)
}

// parseList handles a form after its opening paren: special forms,
// operators, or a procedure call.
func parseList(s *Scanner, line int) (*node.Node, error) {
	head, err := s.Peek()
	if err != nil {
		return nil, err
	}
	if head.Token == RPAREN {
		return nil, fmt.Errorf("line %d: empty form", line)
	}

	if head.Token == SYMBOL {
		switch head.Value {
		case "define":
			s.Next()
			return parseDefine(s, line)
		case "lambda":
			s.Next()
			return parseLambda(s, line)
		case "if":
			s.Next()
			return parseIf(s, line)
		case "effect":
			s.Next()
			return parseEffect(s, line)
		}
		if arithmeticOps[head.Value] || comparativeOps[head.Value] {
			s.Next()
			return parseOperation(s, head.Value, line)
		}
	}

	// Anything else is a call: the head is an expression evaluating to a
	// procedure.
	callee, err := parseForm(s)
	if err != nil {
		return nil, err
	}
	args, err := parseUntilClose(s)
	if err != nil {
		return nil, err
	}
	return node.Call(callee, args...), nil
}

func parseDefine(s *Scanner, line int) (*node.Node, error) {
	name, err := expectSymbol(s, "define")
	if err != nil {
		return nil, err
	}
	value, err := parseForm(s)
	if err != nil {
		return nil, err
	}
	if err := expectClose(s, "define", line); err != nil {
		return nil, err
	}
	return node.Define(name, value), nil
}

func parseLambda(s *Scanner, line int) (*node.Node, error) {
	item, err := s.Next()
	if err != nil {
		return nil, err
	}
	if item.Token != LPAREN {
		return nil, fmt.Errorf("line %d: lambda needs a parameter list", item.Line)
	}
	var params []string
	for {
		item, err = s.Next()
		if err != nil {
			return nil, err
		}
		if item.Token == RPAREN {
			break
		}
		if item.Token != SYMBOL {
			return nil, fmt.Errorf("line %d: lambda parameter must be a symbol", item.Line)
		}
		params = append(params, item.Value)
	}
	body, err := parseForm(s)
	if err != nil {
		return nil, err
	}
	if err := expectClose(s, "lambda", line); err != nil {
		return nil, err
	}
	return node.Proc(params, body), nil
}

func parseIf(s *Scanner, line int) (*node.Node, error) {
	cond, err := parseForm(s)
	if err != nil {
		return nil, err
	}
	trueReturn, err := parseForm(s)
	if err != nil {
		return nil, err
	}
	falseReturn, err := parseForm(s)
	if err != nil {
		return nil, err
	}
	if err := expectClose(s, "if", line); err != nil {
		return nil, err
	}
	return node.If(cond, trueReturn, falseReturn), nil
}

func parseOperation(s *Scanner, op string, line int) (*node.Node, error) {
	operands, err := parseUntilClose(s)
	if err != nil {
		return nil, err
	}
	if len(operands) < 2 {
		return nil, fmt.Errorf("line %d: %s needs at least two operands", line, op)
	}
	if arithmeticOps[op] {
		return node.Arith(op, operands...), nil
	}
	return node.Compare(op, operands...), nil
}

// parseEffect reads (effect op (key value)... :bind name :then form).
// Atom values become literal arguments passed verbatim; symbols and
// compound forms become sub-expressions evaluated before dispatch.
func parseEffect(s *Scanner, line int) (*node.Node, error) {
	opName, err := expectSymbol(s, "effect")
	if err != nil {
		return nil, err
	}

	var params []node.Param
	bind := ""
	var then *node.Node

	for {
		item, err := s.Next()
		if err != nil {
			return nil, err
		}
		switch item.Token {
		case RPAREN:
			n := node.Effect(opName, params...)
			if bind != "" {
				n = n.WithBind(bind)
			}
			if then != nil {
				n = n.WithThen(then)
			}
			return n, nil

		case LPAREN:
			key, err := expectSymbol(s, "effect argument")
			if err != nil {
				return nil, err
			}
			arg, err := parseEffectArg(s)
			if err != nil {
				return nil, err
			}
			if err := expectClose(s, "effect argument", item.Line); err != nil {
				return nil, err
			}
			params = append(params, node.Param{Name: key, Arg: arg})

		case KEYWORD:
			switch item.Value {
			case ":bind":
				name, err := expectSymbol(s, ":bind")
				if err != nil {
					return nil, err
				}
				bind = name
			case ":then":
				then, err = parseForm(s)
				if err != nil {
					return nil, err
				}
			default:
				return nil, fmt.Errorf("line %d: unknown keyword %s", item.Line, item.Value)
			}

		case EOF:
			return nil, fmt.Errorf("line %d: unterminated effect form", line)
		default:
			return nil, fmt.Errorf("line %d: unexpected token in effect form", item.Line)
		}
	}
}

func parseEffectArg(s *Scanner) (node.Arg, error) {
	item, err := s.Peek()
	if err != nil {
		return node.Arg{}, err
	}
	switch item.Token {
	case NUMBER:
		s.Next()
		f, err := strconv.ParseFloat(item.Value, 64)
		if err != nil {
			return node.Arg{}, fmt.Errorf("line %d: bad number %q", item.Line, item.Value)
		}
		return node.LiteralArg(f), nil
	case STRING:
		s.Next()
		return node.LiteralArg(item.Value), nil
	case SYMBOL:
		switch item.Value {
		case "true":
			s.Next()
			return node.LiteralArg(true), nil
		case "false":
			s.Next()
			return node.LiteralArg(false), nil
		case "null":
			s.Next()
			return node.LiteralArg(nil), nil
		}
	}
	expr, err := parseForm(s)
	if err != nil {
		return node.Arg{}, err
	}
	return node.ExprArg(expr), nil
}

func parseUntilClose(s *Scanner) ([]*node.Node, error) {
	var forms []*node.Node
	for {
		item, err := s.Peek()
		if err != nil {
			return nil, err
		}
		if item.Token == RPAREN {
			s.Next()
			return forms, nil
		}
		if item.Token == EOF {
			return nil, fmt.Errorf("line %d: unterminated form", item.Line)
		}
		n, err := parseForm(s)
		if err != nil {
			return nil, err
		}
		forms = append(forms, n)
	}
}

func expectSymbol(s *Scanner, where string) (string, error) {
	item, err := s.Next()
	if err != nil {
		return "", err
	}
	if item.Token != SYMBOL {
		return "", fmt.Errorf("line %d: %s needs a name", item.Line, where)
	}
	return item.Value, nil
}

func expectClose(s *Scanner, where string, line int) error {
	item, err := s.Next()
	if err != nil {
		return err
	}
	if item.Token != RPAREN {
		return fmt.Errorf("line %d: %s form not closed", line, where)
	}
	return nil
}
