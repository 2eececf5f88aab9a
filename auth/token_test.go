package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "super-secret"

func newTokens(t *testing.T, opts ...TokenOption) *TokenService {
	t.Helper()
	s, err := NewTokenService(testSecret, DefaultTokenTTL, append([]TokenOption{WithIssuer("equiherds")}, opts...)...)
	require.NoError(t, err)
	return s
}

func TestTokenService_RoundTrip(t *testing.T) {
	s := newTokens(t)

	tok, err := s.Issue("user-123", "rider@example.com", "seller")
	require.NoError(t, err)

	claims, ok := s.Verify(tok)
	require.True(t, ok)
	assert.Equal(t, "user-123", claims.Subject)
	assert.Equal(t, "rider@example.com", claims.Email)
	assert.Equal(t, "seller", claims.Role)
	assert.Equal(t, "equiherds", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
	assert.WithinDuration(t, claims.IssuedAt.Add(DefaultTokenTTL), claims.ExpiresAt.Time, time.Second)
}

func TestTokenService_Expired(t *testing.T) {
	issuedAt := time.Now().Add(-DefaultTokenTTL - time.Minute)
	old := newTokens(t, WithClock(func() time.Time { return issuedAt }))
	tok, err := old.Issue("u1", "a@b.c", "user")
	require.NoError(t, err)

	claims, ok := newTokens(t).Verify(tok)
	assert.False(t, ok)
	assert.Nil(t, claims)
}

func TestTokenService_ClockAdvance(t *testing.T) {
	now := time.Now()
	s := newTokens(t, WithClock(func() time.Time { return now }))

	tok, err := s.Issue("u1", "a@b.c", "user")
	require.NoError(t, err)

	_, ok := s.Verify(tok)
	require.True(t, ok)

	now = now.Add(DefaultTokenTTL + time.Second)
	_, ok = s.Verify(tok)
	assert.False(t, ok)
}

func TestTokenService_WrongSecret(t *testing.T) {
	tok, err := newTokens(t).Issue("u2", "a@b.c", "user")
	require.NoError(t, err)

	other, err := NewTokenService("wrong-secret", DefaultTokenTTL, WithIssuer("equiherds"))
	require.NoError(t, err)
	_, ok := other.Verify(tok)
	assert.False(t, ok)
}

func TestTokenService_WrongIssuer(t *testing.T) {
	foreign, err := NewTokenService(testSecret, DefaultTokenTTL, WithIssuer("someone-else"))
	require.NoError(t, err)
	tok, err := foreign.Issue("u2", "a@b.c", "user")
	require.NoError(t, err)

	_, ok := newTokens(t).Verify(tok)
	assert.False(t, ok)
}

func TestTokenService_RejectsOtherAlgorithms(t *testing.T) {
	claims := &Claims{
		Email: "a@b.c",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u3",
			Issuer:    "equiherds",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, ok := newTokens(t).Verify(tok)
	assert.False(t, ok)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, ok = newTokens(t).Verify(none)
	assert.False(t, ok)
}

func TestTokenService_RequiresExpiryAndSubject(t *testing.T) {
	noExp := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u4", Issuer: "equiherds"},
	})
	tok, err := noExp.SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, ok := newTokens(t).Verify(tok)
	assert.False(t, ok)

	noSub := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "equiherds",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	tok, err = noSub.SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, ok = newTokens(t).Verify(tok)
	assert.False(t, ok)
}

func TestTokenService_TamperDetection(t *testing.T) {
	s := newTokens(t)
	tok, err := s.Issue("user-123", "rider@example.com", "user")
	require.NoError(t, err)

	for i := 0; i < len(tok); i++ {
		b := []byte(tok)
		if b[i] == 'A' {
			b[i] = 'B'
		} else {
			b[i] = 'A'
		}
		claims, ok := s.Verify(string(b))
		require.False(t, ok, "tampered byte %d accepted", i)
		require.Nil(t, claims)
	}
}

func TestTokenService_LastCharacterSubstitutions(t *testing.T) {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

	s := newTokens(t)
	for n := 0; n < 20; n++ {
		tok, err := s.Issue("user-123", "rider@example.com", "user")
		require.NoError(t, err)

		last := tok[len(tok)-1]
		for _, c := range []byte(alphabet) {
			if c == last {
				continue
			}
			tampered := tok[:len(tok)-1] + string(c)
			_, ok := s.Verify(tampered)
			require.False(t, ok, "last char %q -> %q accepted", last, c)
		}
	}
}

func TestTokenService_Malformed(t *testing.T) {
	s := newTokens(t)
	for _, raw := range []string{"", "   ", "not.a.jwt", "abc", strings.Repeat("x.", 3)} {
		_, ok := s.Verify(raw)
		assert.False(t, ok, raw)
	}
}

func TestNewTokenService_MissingSecret(t *testing.T) {
	_, err := NewTokenService("  ", time.Hour)
	require.ErrorIs(t, err, ErrMissingSecret)
}

func TestVerifyHeader(t *testing.T) {
	s := newTokens(t)
	tok, err := s.Issue("u5", "a@b.c", "user")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		ok     bool
	}{
		{"valid", "Bearer " + tok, true},
		{"lowercase scheme", "bearer " + tok, true},
		{"missing", "", false},
		{"no scheme", tok, false},
		{"basic scheme", "Basic " + tok, false},
		{"empty token", "Bearer   ", false},
		{"garbage token", "Bearer nope", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, ok := s.VerifyHeader(tt.header)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, "u5", claims.Subject)
			} else {
				assert.Nil(t, claims)
			}
		})
	}
}
