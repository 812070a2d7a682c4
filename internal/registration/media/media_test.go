package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realform/internal/registration/models"
	dErrors "realform/pkg/domain-errors"
)

func TestValidatorValidate(t *testing.T) {
	v := NewValidator(nil)
	png := []byte{0x89, 'P', 'N', 'G'}

	tests := []struct {
		name     string
		upload   *models.Upload
		wantCode dErrors.Code
	}{
		{name: "nil upload", upload: nil, wantCode: dErrors.CodeMissingAsset},
		{name: "empty data", upload: &models.Upload{ContentType: "image/png"}, wantCode: dErrors.CodeMissingAsset},
		{name: "text/plain rejected", upload: &models.Upload{ContentType: "text/plain", Data: []byte("hi")}, wantCode: dErrors.CodeUnsupportedMediaType},
		{name: "gif rejected by default", upload: &models.Upload{ContentType: "image/gif", Data: png}, wantCode: dErrors.CodeUnsupportedMediaType},
		{name: "missing content type", upload: &models.Upload{Data: png}, wantCode: dErrors.CodeUnsupportedMediaType},
		{name: "png accepted", upload: &models.Upload{ContentType: "image/png", Data: png}},
		{name: "jpeg accepted", upload: &models.Upload{ContentType: "image/jpeg", Data: png}},
		{name: "parameters ignored", upload: &models.Upload{ContentType: "image/PNG; charset=binary", Data: png}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.upload)
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, tt.wantCode), "got %v", err)
		})
	}
}

func TestNewValidatorCustomList(t *testing.T) {
	v := NewValidator([]string{" image/WEBP ", "", "not a type;;"})
	assert.True(t, v.Allows("image/webp"))
	assert.False(t, v.Allows("image/png"))
	assert.Equal(t, []string{"image/webp"}, v.AllowedTypes())
}

func TestNewValidatorFoldsDuplicates(t *testing.T) {
	v := NewValidator([]string{"image/PNG", "image/png", " IMAGE/JPEG", "image/jpeg; q=1"})

	assert.Equal(t, []string{"image/png", "image/jpeg"}, v.AllowedTypes())
	assert.True(t, v.Allows("Image/Jpeg"))
}

func TestNewValidatorDefaults(t *testing.T) {
	assert.Equal(t, DefaultAllowedTypes, NewValidator([]string{"  ", ""}).AllowedTypes())
}

func TestExtension(t *testing.T) {
	assert.Equal(t, ".jpg", Extension("image/jpeg"))
	assert.Equal(t, ".png", Extension("image/png; q=1"))
	assert.Equal(t, "", Extension(""))
}
