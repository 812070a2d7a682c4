// Package cors restricts cross-origin callers to a configured allow-list.
package cors

import (
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"

	dErrors "realform/pkg/domain-errors"
	"realform/pkg/platform/httputil"
	pstrings "realform/pkg/platform/strings"
)

const (
	allowedMethods = "GET, POST, DELETE, OPTIONS"
	allowedHeaders = "Authorization, Content-Type, X-Request-ID"
)

// Policy holds the allow-list. Entries containing glob metacharacters
// (e.g. "https://*.vercel.app") are matched with path.Match; all others
// must match the Origin header exactly.
type Policy struct {
	exact    map[string]struct{}
	patterns []string
}

// NewPolicy validates the allow-list entries.
func NewPolicy(origins []string) (*Policy, error) {
	p := &Policy{exact: make(map[string]struct{})}
	for _, origin := range pstrings.DedupeAndTrim(origins) {
		origin = strings.TrimRight(origin, "/")
		if strings.ContainsAny(origin, "*?[") {
			if _, err := path.Match(origin, ""); err != nil {
				return nil, fmt.Errorf("invalid origin pattern %q: %w", origin, err)
			}
			p.patterns = append(p.patterns, origin)
			continue
		}
		p.exact[origin] = struct{}{}
	}
	return p, nil
}

// Allows reports whether origin is on the allow-list.
func (p *Policy) Allows(origin string) bool {
	if _, ok := p.exact[origin]; ok {
		return true
	}
	for _, pattern := range p.patterns {
		if ok, _ := path.Match(pattern, origin); ok {
			return true
		}
	}
	return false
}

// Middleware applies the policy. Requests without an Origin header and
// same-origin browser requests are not cross-origin and always pass.
// Disallowed origins are rejected with 403 before reaching any handler.
func (p *Policy) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" || sameOrigin(origin, r) {
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Add("Vary", "Origin")
		if !p.Allows(origin) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "Origin not allowed"))
			return
		}

		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
			w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)
			w.Header().Set("Access-Control-Max-Age", "600")
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func sameOrigin(origin string, r *http.Request) bool {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}
