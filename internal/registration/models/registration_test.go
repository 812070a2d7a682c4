package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "realform/pkg/domain"
	dErrors "realform/pkg/domain-errors"
)

func validFields() Fields {
	return Fields{
		FirstName:   "Ada",
		LastName:    "Lovelace",
		Email:       "ada@example.com",
		DateOfBirth: time.Date(1990, 12, 10, 0, 0, 0, 0, time.UTC),
		Gender:      "female",
	}
}

func TestNewRegistration(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.FixedZone("CET", 3600))

	t.Run("valid input", func(t *testing.T) {
		regID := id.NewRegistrationID()
		reg, err := NewRegistration(regID, validFields(), "$2a$10$digest", "https://cdn.example.com/a.png", now)
		require.NoError(t, err)

		assert.Equal(t, regID, reg.ID)
		assert.Equal(t, "ada@example.com", reg.Email)
		assert.Equal(t, "$2a$10$digest", reg.PasswordDigest)
		assert.Equal(t, time.UTC, reg.CreatedAt.Location())
		assert.True(t, reg.CreatedAt.Equal(now))
	})

	cases := []struct {
		name   string
		id     id.RegistrationID
		mutate func(*Fields)
		digest string
		url    string
	}{
		{name: "nil id", id: id.RegistrationID{}, digest: "d", url: "u"},
		{name: "missing first name", id: id.NewRegistrationID(), mutate: func(f *Fields) { f.FirstName = " " }, digest: "d", url: "u"},
		{name: "missing email", id: id.NewRegistrationID(), mutate: func(f *Fields) { f.Email = "" }, digest: "d", url: "u"},
		{name: "missing digest", id: id.NewRegistrationID(), url: "u"},
		{name: "missing picture url", id: id.NewRegistrationID(), digest: "d"},
		{name: "missing date of birth", id: id.NewRegistrationID(), mutate: func(f *Fields) { f.DateOfBirth = time.Time{} }, digest: "d", url: "u"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fields := validFields()
			if tc.mutate != nil {
				tc.mutate(&fields)
			}
			_, err := NewRegistration(tc.id, fields, tc.digest, tc.url, now)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
		})
	}
}
