// SPDX-License-Identifier: AGPL-3.0-or-later

package sexpr

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/modl-lang/modl/internal/node"
)

// Format renders a node tree back to s-expression syntax. Parsing the
// result reproduces an equivalent tree.
func Format(n *node.Node) string {
	var b strings.Builder
	writeNode(&b, n)
	return b.String()
}

func writeNode(b *strings.Builder, n *node.Node) {
	if n == nil {
		b.WriteString("null")
		return
	}

	switch n.Type {
	case node.TypeNumber:
		b.WriteString(formatNumber(n.NumberValue))
	case node.TypeString:
		b.WriteString(strconv.Quote(n.StringValue))
	case node.TypeBoolean:
		b.WriteString(strconv.FormatBool(n.BoolValue))
	case node.TypeVariable:
		b.WriteString(n.Name)

	case node.TypeDefinition:
		b.WriteString("(define ")
		b.WriteString(n.Name)
		b.WriteByte(' ')
		writeNode(b, n.Value)
		b.WriteByte(')')

	case node.TypeProcedure:
		b.WriteString("(lambda (")
		b.WriteString(strings.Join(n.Params, " "))
		b.WriteString(") ")
		writeNode(b, n.Body)
		b.WriteByte(')')

	case node.TypeConditional:
		b.WriteString("(if ")
		writeNode(b, n.Condition)
		b.WriteByte(' ')
		writeNode(b, n.TrueReturn)
		b.WriteByte(' ')
		writeNode(b, n.FalseReturn)
		b.WriteByte(')')

	case node.TypeArithmetic, node.TypeComparative:
		b.WriteByte('(')
		b.WriteString(n.Operator)
		for _, operand := range n.Operands {
			b.WriteByte(' ')
			writeNode(b, operand)
		}
		b.WriteByte(')')

	case node.TypeProcedureCall:
		b.WriteByte('(')
		writeNode(b, n.Callee)
		for _, arg := range n.Args {
			b.WriteByte(' ')
			writeNode(b, arg)
		}
		b.WriteByte(')')

	case node.TypeEffect:
		b.WriteString("(effect ")
		b.WriteString(n.Name)
		for _, p := range n.EffectParams {
			b.WriteString(" (")
			b.WriteString(p.Name)
			b.WriteByte(' ')
			writeArg(b, p.Arg)
			b.WriteByte(')')
		}
		if n.Bind != "" {
			b.WriteString(" :bind ")
			b.WriteString(n.Bind)
		}
		if n.Then != nil {
			b.WriteString(" :then ")
			writeNode(b, n.Then)
		}
		b.WriteByte(')')

	default:
		fmt.Fprintf(b, "#<%s>", n.Type)
	}
}

func writeArg(b *strings.Builder, arg node.Arg) {
	if arg.IsExpr() {
		writeNode(b, arg.Expr)
		return
	}
	switch v := arg.Literal.(type) {
	case nil:
		b.WriteString("null")
	case bool:
		b.WriteString(strconv.FormatBool(v))
	case float64:
		b.WriteString(formatNumber(v))
	case string:
		b.WriteString(strconv.Quote(v))
	default:
		fmt.Fprintf(b, "%v", v)
	}
}

func formatNumber(f float64) string {
	if f == math.Trunc(f) && !math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
