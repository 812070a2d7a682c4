package admin

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	adminUser = "operator"
	adminPass = "s3cret:with:colons"
)

func basic(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

func TestParseBasicAuth(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		wantUser string
		wantPass string
		wantOK   bool
	}{
		{"valid", basic("a", "b"), "a", "b", true},
		{"password keeps colons", basic("a", "b:c"), "a", "b:c", true},
		{"lowercase scheme", "basic " + base64.StdEncoding.EncodeToString([]byte("a:b")), "a", "b", true},
		{"empty header", "", "", "", false},
		{"bearer scheme", "Bearer abc.def", "", "", false},
		{"not base64", "Basic !!!", "", "", false},
		{"no colon", "Basic " + base64.StdEncoding.EncodeToString([]byte("justuser")), "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, pass, ok := ParseBasicAuth(tt.header)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantUser, user)
			assert.Equal(t, tt.wantPass, pass)
		})
	}
}

func TestCheckCredentials(t *testing.T) {
	assert.True(t, CheckCredentials(basic(adminUser, adminPass), adminUser, adminPass))
	assert.False(t, CheckCredentials(basic(adminUser, "wrong"), adminUser, adminPass))
	assert.False(t, CheckCredentials(basic("intruder", adminPass), adminUser, adminPass))
	assert.False(t, CheckCredentials(basic("", ""), "", ""), "unconfigured credentials must never match")
}

func TestRequireBasicAuth(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	called := false
	h := RequireBasicAuth(adminUser, adminPass, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("missing header is challenged", func(t *testing.T) {
		called = false
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/registrations", nil))

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.False(t, called)
		assert.Equal(t, `Basic realm="Admin Access"`, rec.Header().Get("WWW-Authenticate"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, "Authentication required", body["error"])
		assert.Equal(t, "unauthorized", body["code"])
	})

	t.Run("wrong password is challenged and never logged", func(t *testing.T) {
		called = false
		logs.Reset()
		req := httptest.NewRequest(http.MethodDelete, "/api/registration/x", nil)
		req.Header.Set("Authorization", basic(adminUser, "guess-123"))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.False(t, called)
		out, _ := io.ReadAll(&logs)
		assert.NotContains(t, string(out), "guess-123")
	})

	t.Run("correct credentials pass through", func(t *testing.T) {
		called = false
		req := httptest.NewRequest(http.MethodGet, "/api/registrations", nil)
		req.Header.Set("Authorization", basic(adminUser, adminPass))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, called)
	})
}
