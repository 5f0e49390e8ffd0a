// Package shortcode generates and validates the short identifiers bound to
// links.
package shortcode

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// Length of generated codes. 62^5 candidate values.
	Length = 5

	// MaxLength bounds caller-supplied custom codes.
	MaxLength = 5
)

var alphabetSize = big.NewInt(int64(len(alphabet)))

// Generate draws a Length-character code, each character uniform and
// independent over the 62-symbol alphabet. crypto/rand keeps codes
// unguessable.
func Generate() (string, error) {
	var code [Length]byte
	for i := range code {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", fmt.Errorf("draw random index: %w", err)
		}
		code[i] = alphabet[n.Int64()]
	}
	return string(code[:]), nil
}

// Valid reports whether code is acceptable as a short code: 1 to MaxLength
// characters, alphanumeric only.
func Valid(code string) bool {
	if len(code) == 0 || len(code) > MaxLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'A' && c <= 'Z':
		case c >= 'a' && c <= 'z':
		default:
			return false
		}
	}
	return true
}
