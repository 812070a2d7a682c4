// Package email normalizes and validates addresses at the trust boundary.
package email

import (
	"strings"

	"github.com/mcnijman/go-emailaddress"
)

// MaxLength is the RFC 5321 path limit.
const MaxLength = 254

// Normalize trims surrounding whitespace and lower-cases the address so
// uniqueness is enforced case-insensitively by every store.
func Normalize(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// Valid reports whether address is a syntactically valid email.
// No DNS or SMTP lookups are performed.
func Valid(address string) bool {
	if address == "" || len(address) > MaxLength {
		return false
	}
	parsed, err := emailaddress.Parse(address)
	if err != nil {
		return false
	}
	return parsed.LocalPart != "" && parsed.Domain != ""
}
