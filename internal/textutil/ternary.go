package textutil

import "strconv"

// Ternary returns a when cond holds and b otherwise.
func Ternary[T any](cond bool, a, b T) T {
	if cond {
		return a
	}
	return b
}

// Count renders n followed by the singular or plural noun.
func Count(n int, singular, plural string) string {
	return strconv.Itoa(n) + " " + Ternary(n == 1, singular, plural)
}
