// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/modl-lang/modl/internal/eval"
	"github.com/modl-lang/modl/pkg/modl"
)

func runREPL(ctx context.Context, runtime *modl.Runtime) {
	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	if interactive {
		fmt.Println("modl REPL (Ctrl+D to exit)")
	}

	reader := bufio.NewReader(os.Stdin)
	var pending strings.Builder

	for {
		if interactive {
			if pending.Len() > 0 {
				fmt.Print("... ")
			} else {
				fmt.Print(">>> ")
			}
		}

		line, err := reader.ReadString('\n')
		if err != nil {
			if interactive {
				fmt.Println()
			}
			return
		}

		pending.WriteString(line)
		input := pending.String()
		if strings.TrimSpace(input) == "" {
			pending.Reset()
			continue
		}

		// Keep reading while parens are open, so multi-line forms can be
		// typed naturally.
		if parenBalance(input) > 0 {
			continue
		}
		pending.Reset()

		result, err := runtime.EvalString(ctx, input)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			continue
		}
		if _, isNull := result.(eval.Null); !isNull {
			fmt.Println(eval.Format(result))
		}
	}
}

// parenBalance counts unclosed parens outside strings and comments.
func parenBalance(input string) int {
	depth := 0
	inString := false
	inComment := false
	for i := 0; i < len(input); i++ {
		c := input[i]
		if inComment {
			if c == '\n' {
				inComment = false
			}
			continue
		}
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
		case ';':
			inComment = true
		case '(':
			depth++
		case ')':
			depth--
		}
	}
	return depth
}
