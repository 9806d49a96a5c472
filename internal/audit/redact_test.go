package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactReplacesSensitiveKeysAtEveryDepth(t *testing.T) {
	input := map[string]any{
		"username": "alice",
		"password": "hunter2",
		"profile": map[string]any{
			"api_key": "sk-live-123",
			"phone":   "555-0100",
			"payment": map[string]any{
				"card_number": "4111111111111111",
				"expiry":      "12/27",
			},
		},
	}

	redacted := Redact(input).(map[string]any)

	assert.Equal(t, "alice", redacted["username"])
	assert.Equal(t, RedactedValue, redacted["password"])

	profile := redacted["profile"].(map[string]any)
	assert.Equal(t, RedactedValue, profile["api_key"])
	assert.Equal(t, "555-0100", profile["phone"])

	payment := profile["payment"].(map[string]any)
	assert.Equal(t, RedactedValue, payment["card_number"])
	assert.Equal(t, "12/27", payment["expiry"])
}

func TestRedactMatchesKeyVariants(t *testing.T) {
	for _, key := range []string{"password", "PASSWORD", "Password", "api_key", "api-key", "API Key", "cardNumber", "CC_NUMBER"} {
		redacted := Redact(map[string]any{key: "value"}).(map[string]any)
		assert.Equal(t, RedactedValue, redacted[key], "key %q should be redacted", key)
	}
}

func TestRedactDescendsIntoLists(t *testing.T) {
	input := map[string]any{
		"accounts": []any{
			map[string]any{"name": "checking", "token": "tok_abc"},
			map[string]any{"name": "savings", "token": "tok_def"},
		},
	}

	redacted := Redact(input).(map[string]any)
	accounts := redacted["accounts"].([]any)

	for i, raw := range accounts {
		account := raw.(map[string]any)
		assert.NotEqual(t, RedactedValue, account["name"], "account %d", i)
		assert.Equal(t, RedactedValue, account["token"], "account %d", i)
	}
}

func TestRedactReplacesNonStringValuesUnderSensitiveKeys(t *testing.T) {
	input := map[string]any{
		"secret": map[string]any{"inner": "should disappear entirely"},
		"pin":    1234,
	}

	redacted := Redact(input).(map[string]any)

	assert.Equal(t, RedactedValue, redacted["secret"])
	assert.Equal(t, RedactedValue, redacted["pin"])
}

func TestRedactDoesNotInspectValues(t *testing.T) {
	// A secret-looking value under a harmless key passes through untouched.
	input := map[string]any{"note": "my password is hunter2"}

	redacted := Redact(input).(map[string]any)

	assert.Equal(t, "my password is hunter2", redacted["note"])
}

func TestRedactLeavesInputUnmodified(t *testing.T) {
	input := map[string]any{"password": "hunter2"}

	_ = Redact(input)

	assert.Equal(t, "hunter2", input["password"])
}

func TestRedactScalarPassthrough(t *testing.T) {
	assert.Equal(t, "plain", Redact("plain"))
	assert.Equal(t, 42, Redact(42))
	assert.Nil(t, Redact(nil))
}
