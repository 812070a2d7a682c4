package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "realform/pkg/domain-errors"
)

// RegistrationID identifies a stored registration record.
// It is a distinct type so raw UUIDs from other sources (object keys,
// request IDs) cannot be passed where a record id is expected.
type RegistrationID uuid.UUID

// NewRegistrationID returns a fresh random id.
func NewRegistrationID() RegistrationID {
	return RegistrationID(uuid.New())
}

// ParseRegistrationID validates raw input from a trust boundary (URL path).
// Empty, malformed and nil UUIDs are rejected with CodeInvalidID.
func ParseRegistrationID(s string) (RegistrationID, error) {
	parsed, err := parseUUID(s)
	if err != nil {
		return RegistrationID{}, err
	}
	return RegistrationID(parsed), nil
}

func (id RegistrationID) String() string {
	return uuid.UUID(id).String()
}

func (id RegistrationID) IsNil() bool {
	return uuid.UUID(id) == uuid.Nil
}

func parseUUID(s string) (uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidID, "Invalid registration ID")
	}
	// Only the canonical 36-character form is accepted; uuid.Parse also
	// takes urn: and braced variants which never appear in our URLs.
	if len(s) != 36 {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidID, "Invalid registration ID")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidID, "Invalid registration ID")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidID, "Invalid registration ID")
	}
	return parsed, nil
}
