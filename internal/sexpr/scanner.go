// SPDX-License-Identifier: AGPL-3.0-or-later

// Package sexpr provides the s-expression front-end: a scanner, a reader
// producing expression trees, and a printer.
package sexpr

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"unicode"
)

// Token classifies a scanned item.
type Token int

const (
	EOF Token = iota
	LPAREN
	RPAREN
	SYMBOL
	NUMBER
	STRING
	KEYWORD // leading colon, :bind and :then
)

// Item represents a scanned token with its value.
type Item struct {
	Token Token
	Value string
	Line  int
}

// Scanner tokenizes s-expression input rune-by-rune.
type Scanner struct {
	reader *bufio.Reader
	peeked *Item
	line   int
}

// New creates a new Scanner from an io.Reader.
func New(r io.Reader) *Scanner {
	return &Scanner{reader: bufio.NewReader(r), line: 1}
}

// NewFromString creates a new Scanner from a string.
func NewFromString(s string) *Scanner {
	return New(strings.NewReader(s))
}

// Peek returns the next item without consuming it.
func (s *Scanner) Peek() (*Item, error) {
	if s.peeked != nil {
		return s.peeked, nil
	}
	item, err := s.Next()
	if err != nil {
		return nil, err
	}
	s.peeked = item
	return item, nil
}

// Next returns the next token from the input.
func (s *Scanner) Next() (*Item, error) {
	if s.peeked != nil {
		item := s.peeked
		s.peeked = nil
		return item, nil
	}

	r, err := s.skipSpace()
	if err == io.EOF {
		return &Item{Token: EOF, Line: s.line}, nil
	}
	if err != nil {
		return nil, err
	}

	switch {
	case r == '(':
		return &Item{Token: LPAREN, Value: "(", Line: s.line}, nil
	case r == ')':
		return &Item{Token: RPAREN, Value: ")", Line: s.line}, nil
	case r == '"':
		return s.scanString()
	case r == ':':
		value, err := s.scanAtomTail(':')
		if err != nil {
			return nil, err
		}
		return &Item{Token: KEYWORD, Value: value, Line: s.line}, nil
	default:
		value, err := s.scanAtomTail(r)
		if err != nil {
			return nil, err
		}
		if isNumeric(value) {
			return &Item{Token: NUMBER, Value: value, Line: s.line}, nil
		}
		return &Item{Token: SYMBOL, Value: value, Line: s.line}, nil
	}
}

// skipSpace consumes whitespace and ; comments, returning the first
// significant rune.
func (s *Scanner) skipSpace() (rune, error) {
	for {
		r, _, err := s.reader.ReadRune()
		if err != nil {
			return 0, err
		}
		if r == '\n' {
			s.line++
			continue
		}
		if unicode.IsSpace(r) {
			continue
		}
		if r == ';' {
			// Comment runs to end of line.
			for {
				r, _, err = s.reader.ReadRune()
				if err != nil {
					return 0, err
				}
				if r == '\n' {
					s.line++
					break
				}
			}
			continue
		}
		return r, nil
	}
}

func (s *Scanner) scanString() (*Item, error) {
	startLine := s.line
	var buf strings.Builder
	for {
		r, _, err := s.reader.ReadRune()
		if err == io.EOF {
			return nil, fmt.Errorf("line %d: unterminated string", startLine)
		}
		if err != nil {
			return nil, err
		}
		switch r {
		case '"':
			return &Item{Token: STRING, Value: buf.String(), Line: startLine}, nil
		case '\\':
			esc, _, err := s.reader.ReadRune()
			if err != nil {
				return nil, fmt.Errorf("line %d: unterminated string", startLine)
			}
			switch esc {
			case 'n':
				buf.WriteRune('\n')
			case 't':
				buf.WriteRune('\t')
			default:
				buf.WriteRune(esc)
			}
		case '\n':
			s.line++
			buf.WriteRune(r)
		default:
			buf.WriteRune(r)
		}
	}
}

// scanAtomTail reads the remainder of an atom whose first rune was
// already consumed.
func (s *Scanner) scanAtomTail(first rune) (string, error) {
	var buf strings.Builder
	buf.WriteRune(first)
	for {
		r, _, err := s.reader.ReadRune()
		if err == io.EOF {
			return buf.String(), nil
		}
		if err != nil {
			return "", err
		}
		if unicode.IsSpace(r) || r == '(' || r == ')' || r == '"' || r == ';' {
			s.reader.UnreadRune()
			return buf.String(), nil
		}
		buf.WriteRune(r)
	}
}

func isNumeric(atom string) bool {
	start := 0
	if atom[0] == '-' || atom[0] == '+' {
		if len(atom) == 1 {
			return false
		}
		start = 1
	}
	seenDigit := false
	seenDot := false
	for _, r := range atom[start:] {
		switch {
		case r >= '0' && r <= '9':
			seenDigit = true
		case r == '.' && !seenDot:
			seenDot = true
		default:
			return false
		}
	}
	return seenDigit
}
