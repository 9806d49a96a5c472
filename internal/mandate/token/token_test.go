package token

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "procura/pkg/domain-errors"
)

const (
	testIssuer   = "procura"
	testAudience = "procura-agents"
)

func newTestSigner(t *testing.T) *Signer {
	t.Helper()
	s, err := NewSigner([]byte("test-signing-secret"), "HS256", testIssuer, testAudience)
	require.NoError(t, err)
	return s
}

func testClaims(from, until time.Time) Claims {
	return Claims{
		MandateID:      uuid.NewString(),
		UserID:         uuid.NewString(),
		Provider:       "skiclubpro",
		Scope:          []string{"scp:login", "scp:pay"},
		MaxAmountCents: 50000,
		ValidFrom:      from.Format(time.RFC3339),
		ValidUntil:     until.Format(time.RFC3339),
		TimePeriod:     "1440m",
		CredentialType: "signed-token",
	}
}

func TestNewSignerConfig(t *testing.T) {
	t.Run("missing secret is a config error", func(t *testing.T) {
		_, err := NewSigner(nil, "HS256", testIssuer, testAudience)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConfig))
	})

	t.Run("unknown algorithm is a config error", func(t *testing.T) {
		_, err := NewSigner([]byte("k"), "RS256", testIssuer, testAudience)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConfig))
	})

	t.Run("missing issuer or audience is a config error", func(t *testing.T) {
		_, err := NewSigner([]byte("k"), "HS256", "", testAudience)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConfig))
	})
}

func TestSignAndParseRoundTrip(t *testing.T) {
	signer := newTestSigner(t)
	now := time.Now().UTC().Truncate(time.Second)
	claims := testClaims(now, now.Add(24*time.Hour))

	signed, err := signer.Sign(claims)
	require.NoError(t, err)
	assert.Len(t, strings.Split(signed, "."), 3, "compact three-segment form")

	parsed, err := signer.Parse(signed, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, claims.MandateID, parsed.MandateID)
	assert.Equal(t, claims.UserID, parsed.UserID)
	assert.Equal(t, []string{"scp:login", "scp:pay"}, parsed.Scope)
	assert.Equal(t, int64(50000), parsed.MaxAmountCents)
	assert.Equal(t, "signed-token", parsed.CredentialType)
	assert.False(t, parsed.Verified)
}

func TestParseRejections(t *testing.T) {
	signer := newTestSigner(t)
	now := time.Now().UTC().Truncate(time.Second)

	t.Run("expired token", func(t *testing.T) {
		signed, err := signer.Sign(testClaims(now.Add(-48*time.Hour), now.Add(-24*time.Hour)))
		require.NoError(t, err)

		_, err = signer.Parse(signed, now)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidMandate))
		assert.Contains(t, err.Error(), "expired")
	})

	t.Run("not yet valid token", func(t *testing.T) {
		signed, err := signer.Sign(testClaims(now.Add(24*time.Hour), now.Add(48*time.Hour)))
		require.NoError(t, err)

		_, err = signer.Parse(signed, now)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidMandate))
	})

	t.Run("tampered payload", func(t *testing.T) {
		signed, err := signer.Sign(testClaims(now, now.Add(time.Hour)))
		require.NoError(t, err)

		parts := strings.Split(signed, ".")
		parts[1] = parts[1][:len(parts[1])-2] + "xx"
		_, err = signer.Parse(strings.Join(parts, "."), now)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidMandate))
	})

	t.Run("wrong key", func(t *testing.T) {
		other, err := NewSigner([]byte("other-secret"), "HS256", testIssuer, testAudience)
		require.NoError(t, err)
		signed, err := other.Sign(testClaims(now, now.Add(time.Hour)))
		require.NoError(t, err)

		_, err = signer.Parse(signed, now)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidMandate))
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other, err := NewSigner([]byte("test-signing-secret"), "HS256", "someone-else", testAudience)
		require.NoError(t, err)
		signed, err := other.Sign(testClaims(now, now.Add(time.Hour)))
		require.NoError(t, err)

		_, err = signer.Parse(signed, now)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidMandate))
	})

	t.Run("garbage input", func(t *testing.T) {
		_, err := signer.Parse("not-a-token", now)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidMandate))
	})
}

func TestSecretEncodingEquivalence(t *testing.T) {
	// The same key bytes must behave identically whether the deployment
	// supplied them raw or base64-encoded; config decodes to raw bytes, so
	// two signers over the same bytes accept each other's tokens.
	raw := []byte("shared-mandate-secret")
	a, err := NewSigner(raw, "HS256", testIssuer, testAudience)
	require.NoError(t, err)
	b, err := NewSigner(append([]byte(nil), raw...), "HS256", testIssuer, testAudience)
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Second)
	signed, err := a.Sign(testClaims(now, now.Add(time.Hour)))
	require.NoError(t, err)
	_, err = b.Parse(signed, now)
	assert.NoError(t, err)
}
