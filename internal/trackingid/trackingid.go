// Package trackingid generates and normalizes the public tracking codes of reports.
package trackingid

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
)

const (
	Prefix = "TRK"
	digits = 6
)

var (
	ErrMalformed = errors.New("malformed tracking id")

	// 100000..999999, matching the six-digit range citizens already hold.
	lowest = big.NewInt(100000)
	span   = big.NewInt(900000)
)

// Generate returns a new tracking id drawn from r. A nil r uses crypto/rand.
func Generate(r io.Reader) (string, error) {
	if r == nil {
		r = rand.Reader
	}
	n, err := rand.Int(r, span)
	if err != nil {
		return "", fmt.Errorf("failed to draw tracking id: %w", err)
	}
	return fmt.Sprintf("%s%d", Prefix, n.Add(n, lowest)), nil
}

// Normalize trims and upper-cases user input.
func Normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Valid reports whether s, once normalized, has the TRK000000 shape.
func Valid(s string) bool {
	s = Normalize(s)
	if len(s) != len(Prefix)+digits || !strings.HasPrefix(s, Prefix) {
		return false
	}
	for _, c := range s[len(Prefix):] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// Parse normalizes s and rejects anything that is not a tracking id.
func Parse(s string) (string, error) {
	id := Normalize(s)
	if !Valid(id) {
		return "", fmt.Errorf("%w: %q", ErrMalformed, s)
	}
	return id, nil
}
