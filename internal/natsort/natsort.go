// Package natsort orders strings so that embedded decimal numbers compare
// by magnitude: "layer2" sorts before "layer10".
package natsort

import (
	"slices"
	"strings"
)

// Compare returns -1, 0 or +1. Both strings are split into runs of
// ASCII digits and runs of everything else. Digit runs compare by numeric
// value, of any length; other runs compare bytewise. At the same
// position a text run sorts before a digit run, and a string that runs
// out of runs sorts first.
func Compare(a, b string) int {
	for a != "" && b != "" {
		ta, aNum := nextRun(a)
		tb, bNum := nextRun(b)
		a, b = a[len(ta):], b[len(tb):]

		var c int
		switch {
		case aNum && bNum:
			c = compareDigits(ta, tb)
		case aNum:
			c = 1
		case bNum:
			c = -1
		default:
			c = strings.Compare(ta, tb)
		}
		if c != 0 {
			return c
		}
	}
	switch {
	case a == "" && b == "":
		return 0
	case a == "":
		return -1
	default:
		return 1
	}
}

// Less reports whether a sorts strictly before b.
func Less(a, b string) bool {
	return Compare(a, b) < 0
}

// Strings sorts s in place. Equal keys keep their order.
func Strings(s []string) {
	slices.SortStableFunc(s, Compare)
}

// SortBy sorts s in place by the natural order of key. Equal keys keep
// their order.
func SortBy[T any](s []T, key func(T) string) {
	slices.SortStableFunc(s, func(x, y T) int {
		return Compare(key(x), key(y))
	})
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

// nextRun returns the leading run of s and whether it is numeric.
func nextRun(s string) (string, bool) {
	num := isDigit(s[0])
	i := 1
	for i < len(s) && isDigit(s[i]) == num {
		i++
	}
	return s[:i], num
}

func compareDigits(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}
