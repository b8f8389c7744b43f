// Package normalize converts raw phone, email and name strings into the
// canonical forms used for duplicate comparison. Normalized forms are for
// equality checks only, never for display.
package normalize

import (
	"math"
	"strings"
)

// Phone returns the canonical comparison form of a phone number: all
// non-digit characters stripped, with a leading + preserved when the raw
// input starts with one. Two phones are the same number iff their
// normalized forms are byte-equal, so "+1 555 123 4567" matches
// "+15551234567" but not "15551234567".
func Phone(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	hasPlus := strings.HasPrefix(raw, "+")
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if hasPlus {
		return "+" + b.String()
	}
	return b.String()
}

// SanitizePhone keeps only the characters allowed in a stored phone value:
// digits, plus, spaces, dashes and parentheses. Used for display values;
// Phone produces the comparison form.
func SanitizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9', r == '+', r == '-', r == ' ', r == '(', r == ')':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Name returns the canonical comparison form of a display name: lowercased,
// trimmed, with internal whitespace runs collapsed to single spaces.
// Honorifics and titles are NOT stripped; "mrs jane doe" and "mr jane doe"
// are distinct identities. That is a behavioral contract, not an oversight.
func Name(raw string) string {
	return strings.Join(strings.Fields(strings.ToLower(raw)), " ")
}

// Email returns the canonical comparison form of an email: trimmed and
// lowercased.
func Email(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// SanitizeString strips null bytes and trims surrounding whitespace.
// Applied to all free-text input crossing the API boundary.
func SanitizeString(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\x00", ""))
}

// SimilarText returns the percentage similarity of two strings, 0-100,
// using the classic similar-text algorithm: find the longest common
// substring, recurse on the left and right remainders, and sum the matched
// lengths. The percentage is 2*matched/(len(a)+len(b))*100, rounded.
func SimilarText(a, b string) int {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	matched := similarChars(a, b)
	percent := float64(matched) * 2 * 100 / float64(len(a)+len(b))
	return int(math.Round(percent))
}

// similarChars counts the characters matched by recursive
// longest-common-substring decomposition.
func similarChars(a, b string) int {
	posA, posB, max := longestCommonSubstring(a, b)
	if max == 0 {
		return 0
	}
	sum := max
	sum += similarChars(a[:posA], b[:posB])
	sum += similarChars(a[posA+max:], b[posB+max:])
	return sum
}

// longestCommonSubstring finds the first longest run of bytes common to a
// and b, returning its start in each string and its length.
func longestCommonSubstring(a, b string) (posA, posB, max int) {
	for i := 0; i < len(a); i++ {
		for j := 0; j < len(b); j++ {
			k := 0
			for i+k < len(a) && j+k < len(b) && a[i+k] == b[j+k] {
				k++
			}
			if k > max {
				posA, posB, max = i, j, k
			}
		}
	}
	return posA, posB, max
}
