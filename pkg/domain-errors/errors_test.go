package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	t.Run("matches direct code", func(t *testing.T) {
		err := New(CodeScopeMissing, "missing scope scp:pay")
		assert.True(t, HasCode(err, CodeScopeMissing))
		assert.False(t, HasCode(err, CodeInvalidMandate))
	})

	t.Run("matches code deeper in the chain", func(t *testing.T) {
		inner := New(CodeInvalidMandate, "token expired")
		outer := Wrap(inner, CodeInternal, "verification failed")
		assert.True(t, HasCode(outer, CodeInvalidMandate))
		assert.True(t, HasCode(outer, CodeInternal))
	})

	t.Run("uncoded error has no code", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("plain"), CodeInternal))
	})
}

func TestWrapPreservesChain(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, CodeInternal, "failed to persist mandate")
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)

	wrapped := fmt.Errorf("outer: %w", err)
	assert.True(t, HasCode(wrapped, CodeInternal))
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, CodeInternal, "ignored"))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeAmountExceeded, CodeOf(New(CodeAmountExceeded, "60000 > 50000")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
}

func TestToHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, ToHTTPStatus(CodeInvalidMandate))
	assert.Equal(t, http.StatusForbidden, ToHTTPStatus(CodeScopeMissing))
	assert.Equal(t, http.StatusForbidden, ToHTTPStatus(CodeAmountExceeded))
	assert.Equal(t, http.StatusConflict, ToHTTPStatus(CodeInvalidState))
	assert.Equal(t, http.StatusBadRequest, ToHTTPStatus(CodeInvalidAmount))
	assert.Equal(t, http.StatusNotFound, ToHTTPStatus(CodeNotFound))
	assert.Equal(t, http.StatusInternalServerError, ToHTTPStatus(CodeInternal))
}
