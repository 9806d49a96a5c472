package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "procura/pkg/domain-errors"
)

func TestParseScope(t *testing.T) {
	t.Run("accepts namespaced capability", func(t *testing.T) {
		s, err := ParseScope("scp:pay")
		require.NoError(t, err)
		assert.Equal(t, Scope("scp:pay"), s)
		assert.Equal(t, "scp", s.Namespace())
	})

	t.Run("accepts multi-segment capability", func(t *testing.T) {
		s, err := ParseScope("user:write:children")
		require.NoError(t, err)
		assert.Equal(t, "user", s.Namespace())
	})

	t.Run("rejects missing namespace or capability", func(t *testing.T) {
		for _, raw := range []string{"", "nocolon", ":pay", "scp:", "   "} {
			_, err := ParseScope(raw)
			require.Error(t, err, "raw=%q", raw)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		}
	})
}

func TestScopesCoverage(t *testing.T) {
	granted := NewScopes([]string{"scp:login", "scp:pay", "user:write:children"})

	t.Run("covers subsets", func(t *testing.T) {
		assert.True(t, granted.Covers(NewScopes([]string{"scp:pay"})))
		assert.True(t, granted.Covers(NewScopes([]string{"scp:login", "scp:pay"})))
		assert.True(t, granted.Covers(nil))
	})

	t.Run("first missing scope is reported", func(t *testing.T) {
		missing, ok := granted.FirstMissing(NewScopes([]string{"scp:login", "scp:register", "scp:cancel"}))
		require.True(t, ok)
		assert.Equal(t, Scope("scp:register"), missing)
	})

	t.Run("union dedupes and preserves order", func(t *testing.T) {
		union := NewScopes([]string{"scp:login"}).Union(NewScopes([]string{"scp:pay", "scp:login"}))
		assert.Equal(t, Scopes{"scp:login", "scp:pay"}, union)
	})
}

func TestNewScopesNormalization(t *testing.T) {
	got := NewScopes([]string{" scp:login ", "scp:pay", "scp:login", ""})
	assert.Equal(t, Scopes{"scp:login", "scp:pay"}, got)
}
