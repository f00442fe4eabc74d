package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeErrorIsMatchesByCode(t *testing.T) {
	wrapped := ErrUserNotFound.WrapMsg("lookup", "userId", "abc")

	assert.True(t, errors.Is(wrapped, ErrUserNotFound))
	assert.False(t, errors.Is(wrapped, ErrNotAuthorized))

	outer := fmt.Errorf("scoper: %w", wrapped)
	assert.True(t, errors.Is(outer, ErrUserNotFound))
}

func TestWrapMsgKeepsSentinelUntouched(t *testing.T) {
	err := ErrInvalidMessageData.WrapMsg("empty text")

	ce, ok := AsCodeError(err)
	require.True(t, ok)
	assert.Equal(t, "empty text", ce.Detail)
	assert.Equal(t, "InvalidMessageData", ce.Reason)
	assert.Empty(t, ErrInvalidMessageData.Detail)
}

func TestAsCodeErrorFallsBackToInternal(t *testing.T) {
	ce, ok := AsCodeError(errors.New("boom"))
	assert.False(t, ok)
	assert.Equal(t, ServerInternalError, ce.Code)
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, "1003 User not found", ErrUserNotFound.Error())
	assert.Equal(t, "1003 User not found id=1", ErrUserNotFound.WithDetail("id=1").Error())
	assert.Equal(t, "a, k=v, odd=MISSING", toString("a", []any{"k", "v", "odd"}))
}

func TestErrPanic(t *testing.T) {
	assert.Nil(t, ErrPanic(nil))

	err := ErrPanic("kaboom")
	ce, ok := AsCodeError(err)
	require.True(t, ok)
	assert.Equal(t, "kaboom", ce.Detail)
}
