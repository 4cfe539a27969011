package auth

import (
	"net/http"
	"strings"
)

// Policy determines allowed roles by request.
type Policy struct {
	ExemptPaths    map[string]struct{}
	ExemptPrefixes []string
}

// NewDefaultPolicy builds a default policy with exemptions.
func NewDefaultPolicy(exemptPaths []string, exemptPrefixes []string) Policy {
	set := make(map[string]struct{}, len(exemptPaths))
	for _, path := range exemptPaths {
		set[path] = struct{}{}
	}
	return Policy{ExemptPaths: set, ExemptPrefixes: exemptPrefixes}
}

// IsExempt returns true when a request should skip auth/RBAC.
func (p Policy) IsExempt(r *http.Request) bool {
	if r == nil {
		return true
	}
	if _, ok := p.ExemptPaths[r.URL.Path]; ok {
		return true
	}
	for _, prefix := range p.ExemptPrefixes {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return true
		}
	}
	return false
}

// AllowedRoles resolves the roles permitted to make the request. Admin
// passes every check, so it is never listed explicitly.
func (p Policy) AllowedRoles(r *http.Request) ([]Role, bool) {
	if r == nil {
		return nil, false
	}
	path := r.URL.Path
	method := r.Method

	switch {
	case path == "/api/v1/fatigue/logs":
		return []Role{RoleDriver}, true
	case path == "/api/v1/alerts":
		return []Role{RoleDriver, RoleCompany, RoleFamily}, true
	case path == "/api/v1/alerts/stream":
		return []Role{RoleCompany, RoleFamily}, true
	case strings.HasPrefix(path, "/api/v1/alerts/") && method == http.MethodPost:
		return []Role{RoleCompany}, true
	case path == "/api/v1/trips":
		if method == http.MethodPost {
			return []Role{RoleDriver}, true
		}
		return []Role{RoleDriver, RoleCompany, RoleFamily}, true
	case strings.HasPrefix(path, "/api/v1/trips/"):
		if strings.HasSuffix(path, "/export.pdf") || strings.HasSuffix(path, "/export.xlsx") {
			return []Role{RoleCompany}, true
		}
		if method == http.MethodDelete {
			return nil, true // admin only
		}
		if method == http.MethodPost {
			return []Role{RoleDriver}, true
		}
		return []Role{RoleDriver, RoleCompany, RoleFamily}, true
	case path == "/api/v1/me" || path == "/api/v1/refresh":
		return []Role{RoleAdmin, RoleCompany, RoleDriver, RoleFamily}, true
	}

	if strings.HasPrefix(path, "/api/") {
		return []Role{RoleAdmin, RoleCompany, RoleDriver, RoleFamily}, true
	}
	return nil, false
}
