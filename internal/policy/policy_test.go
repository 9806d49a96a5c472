package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "procura/pkg/domain"
)

func TestRequiredScopes(t *testing.T) {
	scopes, err := RequiredScopes("skiclubpro", "register")
	require.NoError(t, err)

	assert.True(t, scopes.Contains(id.Scope("scp:login")))
	assert.True(t, scopes.Contains(id.Scope("scp:pay")))
	assert.True(t, scopes.Contains(id.Scope("user:write:children")))
}

func TestRequiredScopesUnknownTool(t *testing.T) {
	_, err := RequiredScopes("skiclubpro", "delete_account")
	require.Error(t, err)

	_, err = RequiredScopes("unknown_provider", "login")
	require.Error(t, err)
}

func TestKnown(t *testing.T) {
	assert.True(t, Known("daysmart", "login"))
	assert.False(t, Known("daysmart", "refund"))
}
