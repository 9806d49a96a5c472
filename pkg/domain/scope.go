package domain

import (
	"strings"

	dErrors "procura/pkg/domain-errors"
	platformstrings "procura/pkg/platform/strings"
)

// Scope is a namespaced capability string of the form <namespace>:<capability>,
// e.g. "scp:login", "scp:pay", "user:write:children". A mandate grants a set
// of scopes; a privileged action requires one or more.
type Scope string

func (s Scope) String() string { return string(s) }

// Namespace returns the part before the first colon, or "" for a malformed scope.
func (s Scope) Namespace() string {
	if i := strings.Index(string(s), ":"); i >= 0 {
		return string(s)[:i]
	}
	return ""
}

// ParseScope validates the <namespace>:<capability> convention.
func ParseScope(raw string) (Scope, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "scope must not be empty")
	}
	i := strings.Index(trimmed, ":")
	if i <= 0 || i == len(trimmed)-1 {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "scope %q must be <namespace>:<capability>", trimmed)
	}
	return Scope(trimmed), nil
}

// Scopes is an ordered scope list as carried in a mandate payload. Order is
// preserved for the wire format; set semantics apply for coverage checks.
type Scopes []Scope

// NewScopes normalizes raw scope strings: trims, drops empties, dedupes,
// preserves first-occurrence order.
func NewScopes(raw []string) Scopes {
	deduped := platformstrings.DedupeAndTrim(raw)
	out := make(Scopes, 0, len(deduped))
	for _, s := range deduped {
		out = append(out, Scope(s))
	}
	return out
}

// Strings returns the plain string form for serialization.
func (s Scopes) Strings() []string {
	out := make([]string, len(s))
	for i, scope := range s {
		out[i] = string(scope)
	}
	return out
}

// Contains reports whether the grant includes the given scope.
func (s Scopes) Contains(scope Scope) bool {
	for _, granted := range s {
		if granted == scope {
			return true
		}
	}
	return false
}

// Covers reports whether every required scope is granted.
func (s Scopes) Covers(required Scopes) bool {
	for _, r := range required {
		if !s.Contains(r) {
			return false
		}
	}
	return true
}

// FirstMissing returns the first required scope absent from the grant.
// Verification fails fast on this scope rather than aggregating misses.
func (s Scopes) FirstMissing(required Scopes) (Scope, bool) {
	for _, r := range required {
		if !s.Contains(r) {
			return r, true
		}
	}
	return "", false
}

// Union returns the deduplicated union of two scope lists, left side first.
func (s Scopes) Union(other Scopes) Scopes {
	merged := make([]string, 0, len(s)+len(other))
	merged = append(merged, s.Strings()...)
	merged = append(merged, other.Strings()...)
	return NewScopes(merged)
}
