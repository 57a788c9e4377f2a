// SPDX-License-Identifier: AGPL-3.0-or-later

package modl

// DefaultPrelude contains helper definitions loaded on startup unless
// disabled. Everything here is expressible in the language itself.
const DefaultPrelude = `
(define identity (lambda (x) x))
(define abs (lambda (n) (if (< n 0) (- 0 n) n)))
(define max2 (lambda (a b) (if (> a b) a b)))
(define min2 (lambda (a b) (if (< a b) a b)))
(define clamp (lambda (n lo hi) (min2 (max2 n lo) hi)))
(define not (lambda (v) (if v false true)))
`
