package utils

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	h := HashPassword("secret1")
	require.NotEmpty(t, h)
	assert.NotEqual(t, "secret1", h)
	assert.True(t, CheckPassword("secret1", h))
	assert.False(t, CheckPassword("secret2", h))
	assert.False(t, CheckPassword("secret1", "not-a-hash"))
}

func TestValidatePassword(t *testing.T) {
	assert.ErrorIs(t, ValidatePassword("12345"), ErrWeakPassword)
	assert.ErrorIs(t, ValidatePassword(strings.Repeat("a", 73)), ErrWeakPassword)
	assert.NoError(t, ValidatePassword("123456"))
	assert.NoError(t, ValidatePassword("héllo!"))
}

func TestNewIDAndToken(t *testing.T) {
	a, b := NewID(), NewID()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)

	tok := NewToken()
	assert.Len(t, tok, 64)
	raw, err := hex.DecodeString(tok)
	require.NoError(t, err)
	assert.Len(t, raw, 32)
	assert.NotEqual(t, tok, NewToken())
}
