// Package admin gates operator-only routes behind a single shared credential
// pair sent with HTTP Basic authentication. There is no session: every request
// is checked on its own.
package admin

import (
	"crypto/subtle"
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"

	dErrors "realform/pkg/domain-errors"
	"realform/pkg/platform/httputil"
	"realform/pkg/requestcontext"
)

// Realm is advertised in the WWW-Authenticate challenge.
const Realm = "Admin Access"

// ParseBasicAuth decodes an Authorization header of the form
// "Basic base64(user:pass)". The scheme is case-insensitive and the password
// may itself contain colons.
func ParseBasicAuth(header string) (username, password string, ok bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Basic") {
		return "", "", false
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(token))
	if err != nil {
		return "", "", false
	}
	username, password, found = strings.Cut(string(decoded), ":")
	if !found {
		return "", "", false
	}
	return username, password, true
}

// CheckCredentials reports whether header carries exactly the configured pair.
// Both halves are always compared so timing does not reveal which one failed.
// An empty configured username or password never matches.
func CheckCredentials(header, expectedUser, expectedPass string) bool {
	if expectedUser == "" || expectedPass == "" {
		return false
	}
	user, pass, ok := ParseBasicAuth(header)
	if !ok {
		return false
	}
	userMatch := subtle.ConstantTimeCompare([]byte(user), []byte(expectedUser))
	passMatch := subtle.ConstantTimeCompare([]byte(pass), []byte(expectedPass))
	return userMatch&passMatch == 1
}

// RequireBasicAuth rejects requests that do not carry the admin credentials.
func RequireBasicAuth(expectedUser, expectedPass string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !CheckCredentials(r.Header.Get("Authorization"), expectedUser, expectedPass) {
				ctx := r.Context()
				logger.WarnContext(ctx, "admin authentication failed",
					"request_id", requestcontext.RequestID(ctx),
					"client_ip", requestcontext.ClientIP(ctx),
					"header_present", r.Header.Get("Authorization") != "",
				)
				w.Header().Set("WWW-Authenticate", `Basic realm="`+Realm+`"`)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Authentication required"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
