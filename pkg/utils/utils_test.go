package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecrypt(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")

	sealed, err := Encrypt([]byte("long-lived-token"), key)
	require.NoError(t, err)
	assert.NotContains(t, sealed, "long-lived-token")
	assert.True(t, IsEncrypted(sealed))

	opened, err := Decrypt(sealed, key)
	require.NoError(t, err)
	assert.Equal(t, "long-lived-token", opened)

	_, err = Decrypt(sealed, []byte("fedcba9876543210fedcba9876543210"))
	assert.Error(t, err)

	_, err = Decrypt("plain-token", key)
	assert.ErrorIs(t, err, ErrNotSealed)

	_, err = Encrypt([]byte("x"), []byte("short"))
	assert.Error(t, err)
}

func TestToken(t *testing.T) {
	signed, err := GenerateToken("secret", "ops", time.Hour)
	require.NoError(t, err)

	claims, err := ValidateToken("secret", signed)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Operator)
	assert.Equal(t, "dmflow", claims.Issuer)

	_, err = ValidateToken("other", signed)
	assert.Error(t, err)

	expired, err := GenerateToken("secret", "ops", -time.Minute)
	require.NoError(t, err)
	_, err = ValidateToken("secret", expired)
	assert.Error(t, err)
}

func TestGenerateRandomKey(t *testing.T) {
	key, err := GenerateRandomKey(24)
	require.NoError(t, err)
	assert.Len(t, key, 32)

	other, err := GenerateRandomKey(24)
	require.NoError(t, err)
	assert.NotEqual(t, key, other)
}
