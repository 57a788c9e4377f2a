package main

import "testing"

func TestParenBalance(t *testing.T) {
	cases := []struct {
		input string
		want  int
	}{
		{"(+ 1 2)", 0},
		{"(define f (lambda (x)", 2},
		{`(print ")")`, 0},
		{"(+ 1 ; )\n2)", 0},
		{`"(("`, 0},
		{")", -1},
	}
	for _, tc := range cases {
		if got := parenBalance(tc.input); got != tc.want {
			t.Errorf("parenBalance(%q) = %d, want %d", tc.input, got, tc.want)
		}
	}
}
