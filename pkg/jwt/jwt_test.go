package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	m := NewManager("secret", "storebot", time.Hour)

	token, err := m.GenerateAccessToken("42")
	require.NoError(t, err)

	claims, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
	assert.NotEmpty(t, claims.ID)
}

func TestGenerateRequiresSubject(t *testing.T) {
	m := NewManager("secret", "storebot", time.Hour)
	_, err := m.GenerateAccessToken(" ")
	assert.Error(t, err)
}

func TestValidateRejects(t *testing.T) {
	m := NewManager("secret", "storebot", time.Hour)
	token, err := m.GenerateAccessToken("42")
	require.NoError(t, err)

	_, err = NewManager("other", "storebot", time.Hour).Validate(token)
	assert.Error(t, err, "wrong key")

	_, err = NewManager("secret", "someone-else", time.Hour).Validate(token)
	assert.Error(t, err, "wrong issuer")

	expired, err := NewManager("secret", "storebot", -time.Minute).GenerateAccessToken("42")
	require.NoError(t, err)
	_, err = m.Validate(expired)
	assert.Error(t, err, "expired")

	_, err = m.Validate("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
