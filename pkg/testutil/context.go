package testutil

import (
	"encoding/base64"
	"net/http"
	"time"

	"realform/pkg/requestcontext"
)

// WithRequestID adds a request ID to the request context.
// This simulates what the request middleware would do.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}

// WithRequestTime pins the request-scoped clock.
func WithRequestTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}

// WithBasicAuth sets an Authorization header for user and pass.
func WithBasicAuth(req *http.Request, user, pass string) *http.Request {
	req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(user+":"+pass)))
	return req
}
