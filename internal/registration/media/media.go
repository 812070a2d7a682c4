// Package media validates profile picture uploads before they leave the process.
package media

import (
	"mime"
	"strings"

	"realform/internal/registration/models"
	dErrors "realform/pkg/domain-errors"
	pstrings "realform/pkg/platform/strings"
)

// DefaultAllowedTypes are accepted when no allow-list is configured.
var DefaultAllowedTypes = []string{"image/jpeg", "image/png"}

// Validator checks an upload against an allow-list of media types.
// It only inspects the declared content type; it never sniffs bytes.
type Validator struct {
	allowed map[string]struct{}
	types   []string
}

// NewValidator builds a validator. Entries are compared case-insensitively
// and parameters are ignored. An empty list uses DefaultAllowedTypes.
func NewValidator(allowed []string) *Validator {
	v := &Validator{allowed: make(map[string]struct{})}
	for _, t := range pstrings.DedupeAndTrimLower(allowed) {
		v.add(t)
	}
	if len(v.types) == 0 {
		for _, t := range DefaultAllowedTypes {
			v.add(t)
		}
	}
	return v
}

func (v *Validator) add(contentType string) {
	mt := mediaType(contentType)
	if mt == "" {
		return
	}
	if _, ok := v.allowed[mt]; ok {
		return
	}
	v.allowed[mt] = struct{}{}
	v.types = append(v.types, mt)
}

// AllowedTypes lists the accepted media types in configuration order.
func (v *Validator) AllowedTypes() []string {
	return append([]string(nil), v.types...)
}

// Validate returns CodeMissingAsset when no file was supplied and
// CodeUnsupportedMediaType when its declared type is not allowed.
func (v *Validator) Validate(upload *models.Upload) error {
	if upload == nil || len(upload.Data) == 0 {
		return dErrors.New(dErrors.CodeMissingAsset, "Profile picture required")
	}
	if !v.Allows(upload.ContentType) {
		return dErrors.New(dErrors.CodeUnsupportedMediaType, "Only JPEG/PNG allowed")
	}
	return nil
}

// Allows reports whether contentType is on the allow-list.
func (v *Validator) Allows(contentType string) bool {
	mt := mediaType(contentType)
	if mt == "" {
		return false
	}
	_, ok := v.allowed[mt]
	return ok
}

// Extension returns the file extension used for object keys of contentType.
func Extension(contentType string) string {
	switch mediaType(contentType) {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	}
	exts, err := mime.ExtensionsByType(mediaType(contentType))
	if err != nil || len(exts) == 0 {
		return ""
	}
	return exts[0]
}

func mediaType(contentType string) string {
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return strings.ToLower(mt)
}
