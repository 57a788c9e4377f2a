// SPDX-License-Identifier: AGPL-3.0-or-later

package effect

import (
	"context"

	"github.com/modl-lang/modl/internal/eval"
)

// The context store lets a program stash large text out of band and refer
// to it by name, so nested model calls can be pointed at it without the
// text travelling through the expression tree.

func registerContextOps(d *Dispatcher) {
	d.Register("context_set", opContextSet)
	d.Register("context_get", opContextGet)
	d.Register("context_list", opContextList)
	d.Register("context_clear", opContextClear)
}

func opContextSet(_ context.Context, args map[string]eval.Value, s *Session) (eval.Value, error) {
	name, ok := argString(args, "name")
	if !ok {
		return eval.ErrorValue("context_set: name is required"), nil
	}
	text, _ := argString(args, "value")
	s.SetContext(name, text)
	return eval.NewRecord(
		eval.Field{Key: "stored", Value: eval.String(name)},
		eval.Field{Key: "length", Value: eval.Number(float64(len(text)))},
	), nil
}

func opContextGet(_ context.Context, args map[string]eval.Value, s *Session) (eval.Value, error) {
	name, ok := argString(args, "name")
	if !ok {
		return eval.ErrorValue("context_get: name is required"), nil
	}
	// A miss is recoverable: the program can branch on the error record.
	text, found := s.GetContext(name)
	if !found {
		return eval.ErrorValue("context_get: no context named " + name), nil
	}
	return eval.String(text), nil
}

func opContextList(_ context.Context, _ map[string]eval.Value, s *Session) (eval.Value, error) {
	entries := s.ContextEntries()
	items := make([]eval.Value, len(entries))
	for i, entry := range entries {
		items[i] = eval.NewRecord(
			eval.Field{Key: "name", Value: eval.String(entry.Name)},
			eval.Field{Key: "length", Value: eval.Number(float64(entry.Length))},
		)
	}
	return eval.List{Items: items}, nil
}

// Without a name, every stored context is cleared.
func opContextClear(_ context.Context, args map[string]eval.Value, s *Session) (eval.Value, error) {
	name, ok := argString(args, "name")
	if !ok {
		return eval.NewRecord(
			eval.Field{Key: "cleared", Value: eval.Number(float64(s.ClearAll()))},
		), nil
	}
	cleared := 0
	if s.ClearContext(name) {
		cleared = 1
	}
	return eval.NewRecord(
		eval.Field{Key: "cleared", Value: eval.Number(float64(cleared))},
	), nil
}
