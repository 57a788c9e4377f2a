// SPDX-License-Identifier: AGPL-3.0-or-later

package eval

// Env is a lexical environment: an immutable chain of single bindings.
// Extend never copies and never mutates; each extension is a new link
// whose parent is the previous environment, so closures capturing an *Env
// observe a stable snapshot at O(1) extension cost.
type Env struct {
	parent *Env
	name   string
	val    Value
}

// NewEnv returns an empty environment.
func NewEnv() *Env {
	return &Env{}
}

// Lookup resolves a name, innermost binding first.
func (e *Env) Lookup(name string) (Value, bool) {
	for cur := e; cur != nil; cur = cur.parent {
		if cur.name == name && cur.name != "" {
			return cur.val, true
		}
	}
	return nil, false
}

// Extend returns a new environment with one additional binding. The
// receiver is unchanged.
func (e *Env) Extend(name string, v Value) *Env {
	return &Env{parent: e, name: name, val: v}
}

// Bindings flattens the chain into a map, innermost binding winning.
// Used for inspection and persistence, not on the evaluation path.
func (e *Env) Bindings() map[string]Value {
	out := make(map[string]Value)
	var walk func(*Env)
	walk = func(cur *Env) {
		if cur == nil {
			return
		}
		walk(cur.parent)
		if cur.name != "" {
			out[cur.name] = cur.val
		}
	}
	walk(e)
	return out
}

// Len counts distinct bound names.
func (e *Env) Len() int {
	return len(e.Bindings())
}
