// Package textutil holds string helpers that respect UTF-8 boundaries.
package textutil

import "unicode/utf8"

// Truncate shortens s to at most n runes. Postgres varchar limits count
// characters, and a cut inside a multi-byte rune is rejected as invalid UTF-8.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
