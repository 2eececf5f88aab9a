package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHasher(t *testing.T) *PasswordHasher {
	t.Helper()
	h, err := NewPasswordHasher(MinCost)
	require.NoError(t, err)
	return h
}

func TestPasswordHasher_RoundTrip(t *testing.T) {
	h := newHasher(t)

	tests := []struct {
		name     string
		password string
	}{
		{"simple password", "password123"},
		{"complex password", "P@ssw0rd!#$%^&*()"},
		{"empty password", ""},
		{"unicode password", "пароль🔒密码"},
		{"whitespace password", "   spaces   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := h.Hash(tt.password)
			require.NoError(t, err)
			require.NotEqual(t, tt.password, hash)
			require.True(t, strings.HasPrefix(hash, "$2a$10$"), "hash should embed algorithm and cost")

			assert.True(t, h.Verify(tt.password, hash))
			assert.False(t, h.Verify(tt.password+"x", hash))
		})
	}
}

func TestPasswordHasher_FreshSalt(t *testing.T) {
	h := newHasher(t)

	hash1, err := h.Hash("samepassword")
	require.NoError(t, err)
	hash2, err := h.Hash("samepassword")
	require.NoError(t, err)

	require.NotEqual(t, hash1, hash2, "hashes should differ due to unique salts")
	assert.True(t, h.Verify("samepassword", hash1))
	assert.True(t, h.Verify("samepassword", hash2))
}

func TestPasswordHasher_VerifyMalformedHash(t *testing.T) {
	h := newHasher(t)

	assert.False(t, h.Verify("pw", ""))
	assert.False(t, h.Verify("pw", "not-a-bcrypt-hash"))
	assert.False(t, h.VerifyMissing("pw"))
}

func TestPasswordHasher_CostClamped(t *testing.T) {
	h, err := NewPasswordHasher(4)
	require.NoError(t, err)
	assert.Equal(t, MinCost, h.Cost())

	_, err = NewPasswordHasher(99)
	require.Error(t, err)
}

func TestPasswordHasher_TooLong(t *testing.T) {
	h := newHasher(t)

	_, err := h.Hash(strings.Repeat("a", 73))
	require.ErrorIs(t, err, ErrPasswordTooLong)
}
