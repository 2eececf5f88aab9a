package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const (
	// AuthorizationHeader is the request header carrying the bearer token.
	AuthorizationHeader = "Authorization"
	bearerPrefix        = "Bearer "

	// DefaultTokenTTL is how long an issued token stays valid.
	DefaultTokenTTL = 7 * 24 * time.Hour
)

var (
	// ErrUnauthenticated covers every way a request can fail to prove an
	// identity. Callers must not tell the cases apart in responses.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrMissingSecret is a configuration error, not a per-request one.
	ErrMissingSecret = errors.New("token signing secret not configured")
)

func init() {
	// Reject signature segments with non-zero trailing bits, otherwise
	// several spellings of the last character decode to the same MAC.
	jwt.DecodeStrict = true
}

// Claims is the identity token payload: subject is the user ID.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 identity tokens. It keeps no state
// between requests; there is no revocation.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
	parser *jwt.Parser
}

type TokenOption func(*TokenService)

// WithIssuer sets the iss claim written and required on verification.
func WithIssuer(issuer string) TokenOption {
	return func(s *TokenService) { s.issuer = issuer }
}

// WithClock replaces time.Now for issuing and expiry checks.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) { s.now = now }
}

func NewTokenService(secret string, ttl time.Duration, opts ...TokenOption) (*TokenService, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrMissingSecret
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	s := &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
		// Expiry is checked against s.now below.
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *TokenService) TTL() time.Duration { return s.ttl }

// Issue signs a token for the given identity, valid for the service TTL.
func (s *TokenService) Issue(subjectID, email, role string) (string, error) {
	now := s.now()
	claims := &Claims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify checks signature, expiry, subject and issuer. Any failure yields
// (nil, false); the reason is deliberately not returned.
func (s *TokenService) Verify(raw string) (*Claims, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false
	}

	var claims Claims
	token, err := s.parser.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, false
	}

	if !claims.VerifyExpiresAt(s.now(), true) {
		return nil, false
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, false
	}
	if s.issuer != "" && !claims.VerifyIssuer(s.issuer, true) {
		return nil, false
	}
	return &claims, true
}

// VerifyHeader verifies the bearer token carried in an Authorization header
// value. A missing or malformed header is the same as an invalid token.
func (s *TokenService) VerifyHeader(header string) (*Claims, bool) {
	raw, ok := ExtractBearerToken(header)
	if !ok {
		return nil, false
	}
	return s.Verify(raw)
}

// ExtractBearerToken returns the token from "Bearer <token>". The scheme is
// matched case-insensitively.
func ExtractBearerToken(header string) (string, bool) {
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	raw := strings.TrimSpace(header[len(bearerPrefix):])
	if raw == "" {
		return "", false
	}
	return raw, true
}
