// Package compare decides whether program output matches the expected answer.
package compare

import "strings"

// Verdict is the outcome of a comparison.
type Verdict int

const (
	Accepted Verdict = iota
	WrongAnswer
)

// Compare trims leading and trailing whitespace of both whole outputs and
// requires the remainder to be byte-identical. Lines are not normalized.
func Compare(actual, expected string) Verdict {
	if strings.TrimSpace(actual) == strings.TrimSpace(expected) {
		return Accepted
	}
	return WrongAnswer
}

// MismatchMessage renders the judge message stored for a wrong answer.
func MismatchMessage(actual, expected string) string {
	return "Expected: " + strings.TrimSpace(expected) + "\nGot: " + strings.TrimSpace(actual)
}
