// SPDX-License-Identifier: AGPL-3.0-or-later

package effect

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/modl-lang/modl/internal/eval"
)

var numberPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// Coerce interprets raw model output as the expected value kind. It is
// best effort: when the text cannot be read as the expected kind, the
// trimmed raw text comes back as a string rather than an error, because
// model output is unreliable and programs prefer degraded results over
// aborts.
func Coerce(text, expect string) eval.Value {
	trimmed := strings.TrimSpace(text)

	switch expect {
	case "number":
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return eval.Number(f)
		}
		// Fall back to the first number-looking token anywhere in the
		// response, which survives prose like "The answer is 42."
		if m := numberPattern.FindString(trimmed); m != "" {
			if f, err := strconv.ParseFloat(m, 64); err == nil {
				return eval.Number(f)
			}
		}
		return eval.String(trimmed)

	case "boolean":
		switch strings.ToLower(trimmed) {
		case "true", "yes":
			return eval.Bool(true)
		case "false", "no":
			return eval.Bool(false)
		}
		return eval.String(trimmed)

	case "json":
		if candidate := firstBalanced(trimmed); candidate != "" {
			var decoded any
			if err := json.Unmarshal([]byte(candidate), &decoded); err == nil {
				return eval.FromAny(decoded)
			}
		}
		var decoded any
		if err := json.Unmarshal([]byte(trimmed), &decoded); err == nil {
			return eval.FromAny(decoded)
		}
		return eval.String(trimmed)
	}

	return eval.String(trimmed)
}

// firstBalanced extracts the first balanced {...} or [...] span, so JSON
// embedded in surrounding prose or code fences can still be decoded.
// Braces inside JSON strings are skipped.
func firstBalanced(text string) string {
	start := -1
	var open, close byte
	for i := 0; i < len(text); i++ {
		if text[i] == '{' {
			start, open, close = i, '{', '}'
			break
		}
		if text[i] == '[' {
			start, open, close = i, '[', ']'
			break
		}
	}
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			if c == '\\' {
				i++
			} else if c == '"' {
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}
