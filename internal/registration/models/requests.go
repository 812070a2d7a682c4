package models

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/multierr"

	dErrors "realform/pkg/domain-errors"
	"realform/pkg/email"
)

// Form field names accepted by the submission endpoint.
const (
	FieldFirstName      = "firstName"
	FieldLastName       = "lastName"
	FieldPassword       = "password"
	FieldEmail          = "email"
	FieldDateOfBirth    = "dateOfBirth"
	FieldGender         = "gender"
	FieldBiography      = "biography"
	FieldProfilePicture = "profilePicture"
)

var knownFields = map[string]struct{}{
	FieldFirstName:   {},
	FieldLastName:    {},
	FieldPassword:    {},
	FieldEmail:       {},
	FieldDateOfBirth: {},
	FieldGender:      {},
	FieldBiography:   {},
}

// SubmitRequest is a registration submission built field by field from the
// transport layer. Password is plaintext and must never be logged.
type SubmitRequest struct {
	FirstName   string  `form:"firstName" validate:"required,max=512"`
	LastName    string  `form:"lastName" validate:"required,max=512"`
	Password    string  `form:"password" validate:"required,maxbytes=72"`
	Email       string  `form:"email" validate:"required,emailaddress"`
	DateOfBirth string  `form:"dateOfBirth"`
	Gender      string  `form:"gender" validate:"required,max=512"`
	Biography   string  `form:"biography" validate:"max=4096"`
	Picture     *Upload `form:"-" validate:"-"`

	// UnknownFields lists form keys the client sent that are not part of
	// the submission; any entry fails validation.
	UnknownFields []string
}

// CheckField records name as unknown if it is not an accepted form field.
func (r *SubmitRequest) CheckField(name string) {
	if _, ok := knownFields[name]; ok {
		return
	}
	r.UnknownFields = append(r.UnknownFields, name)
}

// Normalize trims whitespace on text fields and canonicalizes the email.
// Password and biography content are left untouched apart from the
// biography's surrounding whitespace.
func (r *SubmitRequest) Normalize() {
	if r == nil {
		return
	}
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Email = email.Normalize(r.Email)
	r.DateOfBirth = strings.TrimSpace(r.DateOfBirth)
	r.Gender = strings.TrimSpace(r.Gender)
	r.Biography = strings.TrimSpace(r.Biography)
}

// Validate checks every field and returns all problems at once as a
// CodeValidation error. now bounds the date of birth.
func (r *SubmitRequest) Validate(now time.Time) (Fields, error) {
	if r == nil {
		return Fields{}, dErrors.New(dErrors.CodeBadRequest, "request is required")
	}

	var errs error
	if len(r.UnknownFields) > 0 {
		unknown := append([]string(nil), r.UnknownFields...)
		sort.Strings(unknown)
		errs = multierr.Append(errs, fmt.Errorf("unknown fields: %s", strings.Join(unknown, ", ")))
	}
	errs = multierr.Append(errs, validateFields(r))

	dob, err := ParseDateOfBirth(r.DateOfBirth, now)
	errs = multierr.Append(errs, err)

	if errs != nil {
		messages := make([]string, 0, len(multierr.Errors(errs)))
		for _, e := range multierr.Errors(errs) {
			messages = append(messages, e.Error())
		}
		return Fields{}, dErrors.Wrap(errs, dErrors.CodeValidation, strings.Join(messages, "; "))
	}

	return Fields{
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		Email:       r.Email,
		DateOfBirth: dob,
		Gender:      r.Gender,
		Biography:   r.Biography,
	}, nil
}

// ParseDateOfBirth accepts YYYY-MM-DD or an RFC 3339 timestamp and returns
// the calendar date at UTC midnight. Dates after now are rejected.
func ParseDateOfBirth(raw string, now time.Time) (time.Time, error) {
	if raw == "" {
		return time.Time{}, fmt.Errorf("%s is required", FieldDateOfBirth)
	}
	parsed, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		ts, tsErr := time.Parse(time.RFC3339, raw)
		if tsErr != nil {
			return time.Time{}, fmt.Errorf("%s must be a date (YYYY-MM-DD)", FieldDateOfBirth)
		}
		ts = ts.UTC()
		parsed = time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
	}
	if parsed.After(now.UTC()) {
		return time.Time{}, fmt.Errorf("%s must not be in the future", FieldDateOfBirth)
	}
	return parsed, nil
}

var validate = newFieldValidator()

// newFieldValidator reports problems under the form field names and adds
// maxbytes (byte length, for bcrypt input) and emailaddress tags.
func newFieldValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("form"), ",")
		if name == "" {
			return f.Name
		}
		return name
	})
	if err := v.RegisterValidation("maxbytes", maxBytes); err != nil {
		panic(err)
	}
	if err := v.RegisterValidation("emailaddress", func(fl validator.FieldLevel) bool {
		return email.Valid(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

func maxBytes(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= limit
}

// validateFields runs the struct tags and returns one error per failing field.
func validateFields(r *SubmitRequest) error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	var errs error
	for _, fe := range fieldErrs {
		errs = multierr.Append(errs, fieldMessage(fe))
	}
	return errs
}

func fieldMessage(fe validator.FieldError) error {
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", fe.Field())
	case "max":
		return fmt.Errorf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "maxbytes":
		return fmt.Errorf("%s must be at most %s bytes", fe.Field(), fe.Param())
	default:
		return fmt.Errorf("%s is invalid", fe.Field())
	}
}
