// SPDX-License-Identifier: AGPL-3.0-or-later

package effect

import (
	"context"
	"fmt"

	"github.com/modl-lang/modl/internal/eval"
)

// llmCall is the recursive self-invocation effect: a program asks the
// model that is running it to answer a sub-prompt. Depth is bounded so a
// model that keeps delegating to itself cannot recurse forever; hitting
// the ceiling is a value-level error the program can branch on, and the
// provider is never contacted for a call over the ceiling.
func llmCall(ctx context.Context, args map[string]eval.Value, s *Session) (eval.Value, error) {
	prompt, ok := argString(args, "prompt")
	if !ok {
		return eval.ErrorValue("llm_call: prompt is required"), nil
	}

	s.mu.Lock()
	p := s.provider
	ceiling := s.maxDepth
	if n, ok := argNumber(args, "max_depth"); ok {
		ceiling = int(n)
	}
	depth := s.depth
	system := s.systemPrompt
	s.mu.Unlock()

	if p == nil {
		return nil, fmt.Errorf("llm_call: no provider configured")
	}
	if depth >= ceiling {
		return eval.ErrorValue("max depth exceeded"), nil
	}

	// A named context is prepended under a framing header so the model can
	// tell the reference material from the task. An absent context is not
	// an error: the call proceeds on the bare prompt.
	user := prompt
	if ctxName, ok := argString(args, "context_name"); ok && ctxName != "" {
		if text, found := s.GetContext(ctxName); found {
			user = "=== CONTEXT: " + ctxName + " ===\n" + text + "\n=== END CONTEXT ===\n\n" + prompt
		}
	}

	response, err := p.Prompt(ctx, system, user)
	if err != nil {
		return nil, fmt.Errorf("llm_call: %w", err)
	}

	// Depth only advances on a successful round trip.
	s.mu.Lock()
	s.depth++
	s.mu.Unlock()

	expect, _ := argString(args, "expect")
	return Coerce(response, expect), nil
}
