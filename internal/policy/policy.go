// Package policy maps provider tools to the scopes a mandate must grant
// before that tool may run. The map is the lookup table consulted by the
// calling layer; enforcement lives with the mandate verifier.
package policy

import (
	"fmt"

	id "procura/pkg/domain"
)

// requiredScopes keys are "<provider>_<tool>".
var requiredScopes = map[string][]string{
	"skiclubpro_login":              {"scp:login"},
	"skiclubpro_register":           {"scp:login", "user:write:children", "scp:pay"},
	"skiclubpro_check_availability": {"scp:login"},

	"daysmart_login":              {"scp:login"},
	"daysmart_register":           {"scp:login", "scp:pay"},
	"daysmart_check_availability": {"scp:login"},

	"campminder_login": {"scp:login"},
}

// RequiredScopes returns the scopes a mandate must cover for the given
// provider tool, or an error for a tool the policy does not know.
func RequiredScopes(provider id.Provider, tool string) (id.Scopes, error) {
	key := fmt.Sprintf("%s_%s", provider, tool)
	raw, ok := requiredScopes[key]
	if !ok {
		return nil, fmt.Errorf("no scope policy for tool %q", key)
	}
	return id.NewScopes(raw), nil
}

// Known reports whether the provider tool has a policy entry.
func Known(provider id.Provider, tool string) bool {
	_, ok := requiredScopes[fmt.Sprintf("%s_%s", provider, tool)]
	return ok
}
