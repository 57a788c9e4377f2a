// SPDX-License-Identifier: AGPL-3.0-or-later

package node

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// The wire form uses a "type" discriminant per node, matching the shape a
// model is asked to generate. Effect parameters are kept in declaration
// order on both directions; a parameter value that is an object carrying a
// known "type" tag is decoded as a sub-expression, anything else as a
// literal. That decision happens here, once, at the codec boundary.

type numberJSON struct {
	Type  Type    `json:"type"`
	Value float64 `json:"value"`
}

type stringJSON struct {
	Type  Type   `json:"type"`
	Value string `json:"value"`
}

type booleanJSON struct {
	Type  Type `json:"type"`
	Value bool `json:"value"`
}

type variableJSON struct {
	Type Type   `json:"type"`
	Name string `json:"name"`
}

type operationJSON struct {
	Type     Type    `json:"type"`
	Operator string  `json:"operator"`
	Operands []*Node `json:"operands"`
}

type conditionalJSON struct {
	Type        Type  `json:"type"`
	Condition   *Node `json:"condition"`
	TrueReturn  *Node `json:"trueReturn"`
	FalseReturn *Node `json:"falseReturn"`
}

type procedureJSON struct {
	Type   Type     `json:"type"`
	Params []string `json:"params"`
	Body   *Node    `json:"body"`
}

type procedureCallJSON struct {
	Type      Type    `json:"type"`
	Procedure *Node   `json:"procedure"`
	Args      []*Node `json:"args"`
}

type definitionJSON struct {
	Type  Type   `json:"type"`
	Name  string `json:"name"`
	Value *Node  `json:"value"`
}

// MarshalJSON encodes the node in its wire form.
func (n *Node) MarshalJSON() ([]byte, error) {
	switch n.Type {
	case TypeNumber:
		return json.Marshal(numberJSON{n.Type, n.NumberValue})
	case TypeString:
		return json.Marshal(stringJSON{n.Type, n.StringValue})
	case TypeBoolean:
		return json.Marshal(booleanJSON{n.Type, n.BoolValue})
	case TypeVariable:
		return json.Marshal(variableJSON{n.Type, n.Name})
	case TypeArithmetic, TypeComparative:
		return json.Marshal(operationJSON{n.Type, n.Operator, n.Operands})
	case TypeConditional:
		return json.Marshal(conditionalJSON{n.Type, n.Condition, n.TrueReturn, n.FalseReturn})
	case TypeProcedure:
		params := n.Params
		if params == nil {
			params = []string{}
		}
		return json.Marshal(procedureJSON{n.Type, params, n.Body})
	case TypeProcedureCall:
		return json.Marshal(procedureCallJSON{n.Type, n.Callee, n.Args})
	case TypeDefinition:
		return json.Marshal(definitionJSON{n.Type, n.Name, n.Value})
	case TypeEffect:
		return n.marshalEffect()
	}
	return nil, fmt.Errorf("node: cannot marshal type %q", n.Type)
}

// marshalEffect writes the effect form by hand so parameter order survives
// the round trip (a Go map would shuffle it).
func (n *Node) marshalEffect() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"type":"effect","operation":`)
	op, err := json.Marshal(n.Name)
	if err != nil {
		return nil, err
	}
	buf.Write(op)
	buf.WriteString(`,"parameters":{`)
	for i, p := range n.EffectParams {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(p.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		var val []byte
		if p.Arg.IsExpr() {
			val, err = json.Marshal(p.Arg.Expr)
		} else {
			val, err = json.Marshal(p.Arg.Literal)
		}
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	if n.Bind != "" {
		buf.WriteString(`,"bind":`)
		b, err := json.Marshal(n.Bind)
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	if n.Then != nil {
		buf.WriteString(`,"then":`)
		t, err := json.Marshal(n.Then)
		if err != nil {
			return nil, err
		}
		buf.Write(t)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a node from its wire form.
func (n *Node) UnmarshalJSON(data []byte) error {
	var probe struct {
		Type Type `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if !IsKnownType(probe.Type) {
		return fmt.Errorf("node: unknown type %q", probe.Type)
	}

	switch probe.Type {
	case TypeNumber:
		var v numberJSON
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*n = Node{Type: v.Type, NumberValue: v.Value}
	case TypeString:
		var v stringJSON
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*n = Node{Type: v.Type, StringValue: v.Value}
	case TypeBoolean:
		var v booleanJSON
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*n = Node{Type: v.Type, BoolValue: v.Value}
	case TypeVariable:
		var v variableJSON
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*n = Node{Type: v.Type, Name: v.Name}
	case TypeArithmetic, TypeComparative:
		var v operationJSON
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*n = Node{Type: v.Type, Operator: v.Operator, Operands: v.Operands}
	case TypeConditional:
		var v conditionalJSON
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*n = Node{Type: v.Type, Condition: v.Condition, TrueReturn: v.TrueReturn, FalseReturn: v.FalseReturn}
	case TypeProcedure:
		var v procedureJSON
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*n = Node{Type: v.Type, Params: v.Params, Body: v.Body}
	case TypeProcedureCall:
		var v procedureCallJSON
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*n = Node{Type: v.Type, Callee: v.Procedure, Args: v.Args}
	case TypeDefinition:
		var v definitionJSON
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*n = Node{Type: v.Type, Name: v.Name, Value: v.Value}
	case TypeEffect:
		return n.unmarshalEffect(data)
	}
	return nil
}

func (n *Node) unmarshalEffect(data []byte) error {
	var v struct {
		Type       Type            `json:"type"`
		Operation  string          `json:"operation"`
		Parameters json.RawMessage `json:"parameters"`
		Bind       string          `json:"bind"`
		Then       *Node           `json:"then"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	params, err := decodeParams(v.Parameters)
	if err != nil {
		return err
	}
	*n = Node{Type: v.Type, Name: v.Operation, EffectParams: params, Bind: v.Bind, Then: v.Then}
	return nil
}

// decodeParams walks the parameters object token by token, preserving key
// order and classifying each value as expression or literal.
func decodeParams(raw json.RawMessage) ([]Param, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("node: effect parameters must be an object")
	}
	var params []Param
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("node: effect parameter key must be a string")
		}
		var val json.RawMessage
		if err := dec.Decode(&val); err != nil {
			return nil, err
		}
		arg, err := decodeArg(val)
		if err != nil {
			return nil, fmt.Errorf("node: effect parameter %q: %w", key, err)
		}
		params = append(params, Param{Name: key, Arg: arg})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return params, nil
}

func decodeArg(raw json.RawMessage) (Arg, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var probe struct {
			Type Type `json:"type"`
		}
		if err := json.Unmarshal(trimmed, &probe); err == nil && IsKnownType(probe.Type) {
			var sub Node
			if err := json.Unmarshal(trimmed, &sub); err != nil {
				return Arg{}, err
			}
			return ExprArg(&sub), nil
		}
	}
	var lit any
	if err := json.Unmarshal(trimmed, &lit); err != nil {
		return Arg{}, err
	}
	return LiteralArg(lit), nil
}

// Unmarshal decodes a single node.
func Unmarshal(data []byte) (*Node, error) {
	var n Node
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// UnmarshalProgram decodes either a single node or an array of top-level
// nodes, the two shapes a generator is allowed to emit.
func UnmarshalProgram(data []byte) ([]*Node, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var nodes []*Node
		if err := json.Unmarshal(trimmed, &nodes); err != nil {
			return nil, err
		}
		return nodes, nil
	}
	n, err := Unmarshal(trimmed)
	if err != nil {
		return nil, err
	}
	return []*Node{n}, nil
}
