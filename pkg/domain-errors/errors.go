// Package domainerrors carries coded errors from services to the transport layer.
//
// Stores return sentinel errors (see pkg/platform/sentinel); services translate
// those into a coded *Error so handlers can pick a status code and a public
// message without inspecting driver details.
package domainerrors

import (
	"errors"
	"net/http"
)

// Code is a machine-readable error category.
type Code string

const (
	CodeBadRequest           Code = "bad_request"
	CodeValidation           Code = "validation_error"
	CodeInvalidInput         Code = "invalid_input"
	CodeInvariantViolation   Code = "invariant_violation"
	CodeMissingAsset         Code = "missing_asset"
	CodeUnsupportedMediaType Code = "unsupported_media_type"
	CodeInvalidID            Code = "invalid_id"
	CodeUnauthorized         Code = "unauthorized"
	CodeForbidden            Code = "forbidden"
	CodeNotFound             Code = "not_found"
	CodeConflict             Code = "conflict"
	CodeUploadFailed         Code = "upload_failed"
	CodeHashing              Code = "hashing_failed"
	CodeInternal             Code = "internal_error"
)

// Error is a coded error. Message is safe to show to clients for 4xx codes.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error without a cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(err error, code Code, message string) error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf returns the code of the outermost *Error in the chain, or CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether the outermost *Error in err's chain carries code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// ToHTTPStatus maps a code to its HTTP status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeValidation, CodeInvalidInput, CodeInvariantViolation,
		CodeMissingAsset, CodeUnsupportedMediaType, CodeInvalidID:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeUploadFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the text that may be sent to a client.
// Server-side failures never expose their message or cause.
func PublicMessage(err error) string {
	var de *Error
	if !errors.As(err, &de) {
		return genericMessages[CodeInternal]
	}
	if ToHTTPStatus(de.Code) >= http.StatusInternalServerError {
		if msg, ok := genericMessages[de.Code]; ok {
			return msg
		}
		return genericMessages[CodeInternal]
	}
	return de.Message
}

var genericMessages = map[Code]string{
	CodeInternal:     "Server error",
	CodeHashing:      "Server error",
	CodeUploadFailed: "Profile picture upload failed",
}
