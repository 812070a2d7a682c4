package models

import (
	"reflect"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	dErrors "realform/pkg/domain-errors"
	"realform/pkg/secrets"
)

// SubmitRequestSuite tests SubmitRequest normalization and validation.
type SubmitRequestSuite struct {
	suite.Suite
	now time.Time
}

func TestSubmitRequestSuite(t *testing.T) {
	suite.Run(t, new(SubmitRequestSuite))
}

func (s *SubmitRequestSuite) SetupTest() {
	s.now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
}

func (s *SubmitRequestSuite) validRequest() *SubmitRequest {
	return &SubmitRequest{
		FirstName:   "Ada",
		LastName:    "Lovelace",
		Password:    "analytical-engine",
		Email:       "ada@example.com",
		DateOfBirth: "1990-12-10",
		Gender:      "female",
		Biography:   "Wrote the first program.",
	}
}

func (s *SubmitRequestSuite) TestNormalize() {
	req := &SubmitRequest{
		FirstName:   "  Ada ",
		LastName:    "\tLovelace",
		Email:       "  Ada@Example.COM ",
		DateOfBirth: " 1990-12-10 ",
		Gender:      " female ",
		Biography:   "  hi  ",
		Password:    "  keep spaces  ",
	}
	req.Normalize()

	s.Equal("Ada", req.FirstName)
	s.Equal("Lovelace", req.LastName)
	s.Equal("ada@example.com", req.Email)
	s.Equal("1990-12-10", req.DateOfBirth)
	s.Equal("female", req.Gender)
	s.Equal("hi", req.Biography)
	s.Equal("  keep spaces  ", req.Password)
}

func (s *SubmitRequestSuite) TestValidation() {
	s.Run("valid request passes", func() {
		fields, err := s.validRequest().Validate(s.now)
		s.Require().NoError(err)
		s.Equal("ada@example.com", fields.Email)
		s.Equal(time.Date(1990, 12, 10, 0, 0, 0, 0, time.UTC), fields.DateOfBirth)
	})

	s.Run("biography is optional", func() {
		req := s.validRequest()
		req.Biography = ""
		_, err := req.Validate(s.now)
		s.NoError(err)
	})

	s.Run("nil request rejected", func() {
		var req *SubmitRequest
		_, err := req.Validate(s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("missing fields are reported together", func() {
		req := &SubmitRequest{}
		_, err := req.Validate(s.now)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		for _, field := range []string{FieldFirstName, FieldLastName, FieldGender, FieldEmail, FieldPassword, FieldDateOfBirth} {
			s.Contains(err.Error(), field+" is required")
		}
	})

	s.Run("invalid email rejected", func() {
		req := s.validRequest()
		req.Email = "not-an-email"
		_, err := req.Validate(s.now)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Contains(err.Error(), "email is invalid")
	})

	s.Run("password longer than 72 bytes rejected", func() {
		req := s.validRequest()
		req.Password = strings.Repeat("p", 73)
		_, err := req.Validate(s.now)
		s.Require().Error(err)
		s.Contains(err.Error(), "password must be at most 72 bytes")
	})

	s.Run("password of exactly 72 bytes allowed", func() {
		req := s.validRequest()
		req.Password = strings.Repeat("p", 72)
		_, err := req.Validate(s.now)
		s.NoError(err)
	})

	s.Run("unknown fields rejected", func() {
		req := s.validRequest()
		req.CheckField("isAdmin")
		req.CheckField("email")
		req.CheckField("role")
		_, err := req.Validate(s.now)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Contains(err.Error(), "unknown fields: isAdmin, role")
	})

	s.Run("oversized biography rejected", func() {
		req := s.validRequest()
		req.Biography = strings.Repeat("b", 4097)
		_, err := req.Validate(s.now)
		s.Require().Error(err)
		s.Contains(err.Error(), "biography must be at most 4096 characters")
	})

	s.Run("name length counts characters not bytes", func() {
		req := s.validRequest()
		req.FirstName = strings.Repeat("é", 512)
		_, err := req.Validate(s.now)
		s.NoError(err)

		req.FirstName = strings.Repeat("é", 513)
		_, err = req.Validate(s.now)
		s.Require().Error(err)
		s.Contains(err.Error(), "firstName must be at most 512 characters")
	})

	s.Run("password limit counts bytes", func() {
		req := s.validRequest()
		req.Password = strings.Repeat("€", 25)
		_, err := req.Validate(s.now)
		s.Require().Error(err)
		s.Contains(err.Error(), "password must be at most 72 bytes")
	})

	s.Run("field errors and date errors are combined", func() {
		req := s.validRequest()
		req.LastName = ""
		req.Email = "nope"
		req.DateOfBirth = "2030-01-01"
		_, err := req.Validate(s.now)
		s.Require().Error(err)
		s.Equal("lastName is required; email is invalid; dateOfBirth must not be in the future", dErrors.PublicMessage(err))
	})
}

func (s *SubmitRequestSuite) TestPasswordTagMatchesHasherLimit() {
	field, ok := reflect.TypeOf(SubmitRequest{}).FieldByName("Password")
	s.Require().True(ok)
	s.Contains(field.Tag.Get("validate"), "maxbytes="+strconv.Itoa(secrets.MaxSecretBytes))
}

func (s *SubmitRequestSuite) TestParseDateOfBirth() {
	s.Run("date only", func() {
		dob, err := ParseDateOfBirth("2000-02-29", s.now)
		s.Require().NoError(err)
		s.Equal(time.Date(2000, 2, 29, 0, 0, 0, 0, time.UTC), dob)
	})

	s.Run("rfc3339 timestamp truncated to date", func() {
		dob, err := ParseDateOfBirth("1990-12-10T15:04:05Z", s.now)
		s.Require().NoError(err)
		s.Equal(time.Date(1990, 12, 10, 0, 0, 0, 0, time.UTC), dob)
	})

	s.Run("garbage rejected", func() {
		_, err := ParseDateOfBirth("10/12/1990", s.now)
		s.Require().Error(err)
		s.Contains(err.Error(), "must be a date")
	})

	s.Run("future date rejected", func() {
		_, err := ParseDateOfBirth("2026-03-11", s.now)
		s.Require().Error(err)
		s.Contains(err.Error(), "must not be in the future")
	})

	s.Run("today allowed", func() {
		_, err := ParseDateOfBirth("2026-03-10", s.now)
		s.NoError(err)
	})
}
