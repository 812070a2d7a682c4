package models

import (
	"strings"
	"time"

	id "realform/pkg/domain"
	dErrors "realform/pkg/domain-errors"
)

// Registration is a single stored registration submission.
//
// Invariants:
//   - Email is normalized (trimmed, lower-case) and unique across all records;
//     the store enforces uniqueness atomically
//   - ProfilePictureURL references an object that was uploaded before the
//     record was constructed
//   - PasswordDigest is a bcrypt digest, never the plaintext, and is never
//     serialized
//   - CreatedAt is set once by NewRegistration and never mutated
//
// Records are never updated in place; the only lifecycle transitions are
// create and delete.
type Registration struct {
	ID                id.RegistrationID
	FirstName         string
	LastName          string
	PasswordDigest    string `json:"-"`
	Email             string
	DateOfBirth       time.Time
	Gender            string
	Biography         string
	ProfilePictureURL string
	CreatedAt         time.Time
}

// NewRegistration builds a record from already-validated input.
func NewRegistration(
	registrationID id.RegistrationID,
	fields Fields,
	passwordDigest string,
	profilePictureURL string,
	now time.Time,
) (*Registration, error) {
	if registrationID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "registration id is required")
	}
	if strings.TrimSpace(fields.FirstName) == "" || strings.TrimSpace(fields.LastName) == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "first and last name are required")
	}
	if fields.Email == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "email is required")
	}
	if passwordDigest == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "password digest is required")
	}
	if profilePictureURL == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "profile picture url is required")
	}
	if fields.DateOfBirth.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "date of birth is required")
	}
	return &Registration{
		ID:                registrationID,
		FirstName:         fields.FirstName,
		LastName:          fields.LastName,
		PasswordDigest:    passwordDigest,
		Email:             fields.Email,
		DateOfBirth:       fields.DateOfBirth,
		Gender:            fields.Gender,
		Biography:         fields.Biography,
		ProfilePictureURL: profilePictureURL,
		CreatedAt:         now.UTC().Truncate(time.Millisecond),
	}, nil
}

// Fields are the validated, normalized personal fields of a submission.
type Fields struct {
	FirstName   string
	LastName    string
	Email       string
	DateOfBirth time.Time
	Gender      string
	Biography   string
}

// Upload is a binary attached to a submission with its declared content type.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// StoredObject is the result of a successful upload to the object store.
type StoredObject struct {
	Key string
	URL string
}
