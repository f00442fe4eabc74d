package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateVerify(t *testing.T) {
	opts := DefaultOptions([]byte("test-secret"))

	tok, exp, err := Generate(opts, "64b7f0c2a1e4c3d2b1a09f8e")
	require.NoError(t, err)
	assert.True(t, exp.After(time.Now()))

	sub, err := Verify(opts, tok)
	require.NoError(t, err)
	assert.Equal(t, "64b7f0c2a1e4c3d2b1a09f8e", sub)
}

func TestVerifyRejects(t *testing.T) {
	opts := DefaultOptions([]byte("test-secret"))
	tok, _, err := Generate(opts, "u1")
	require.NoError(t, err)

	_, err = Verify(DefaultOptions([]byte("other")), tok)
	assert.Error(t, err, "wrong secret")

	expired := opts
	expired.TTL = time.Millisecond
	expired.Leeway = 0
	old, _, err := Generate(expired, "u1")
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond)
	_, err = Verify(expired, old)
	assert.Error(t, err, "expired")

	_, err = Verify(opts, "not-a-jwt")
	assert.Error(t, err)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "abc", BearerToken("bearer   abc "))
	assert.Equal(t, "", BearerToken("Basic abc"))
	assert.Equal(t, "", BearerToken("Bearer "))
}

func TestEnabled(t *testing.T) {
	assert.False(t, Options{}.Enabled())
	assert.True(t, DefaultOptions([]byte("x")).Enabled())
}
