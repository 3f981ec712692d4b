package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const (
	defaultTokenTTL = 12 * time.Hour
	defaultIssuer   = "vatika-api"
)

var (
	// ErrTokenExpired signals that the provided bearer token has expired.
	ErrTokenExpired = errors.New("auth: token expired")
	// ErrTokenInvalid signals that the provided bearer token is invalid for other reasons.
	ErrTokenInvalid = errors.New("auth: token invalid")
)

// Claims is the JWT claim set carried by admin bearer tokens.
type Claims struct {
	Email     string `json:"email,omitempty"`
	FullName  string `json:"full_name,omitempty"`
	Superuser bool   `json:"superuser,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HMAC-signed admin bearer tokens.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	clock  func() time.Time
}

// TokenManagerOption customises TokenManager behaviour.
type TokenManagerOption func(*TokenManager)

// WithTokenTTL overrides the issued token lifetime.
func WithTokenTTL(ttl time.Duration) TokenManagerOption {
	return func(m *TokenManager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithIssuer overrides the issuer claim stamped on issued tokens.
func WithIssuer(issuer string) TokenManagerOption {
	return func(m *TokenManager) {
		issuer = strings.TrimSpace(issuer)
		if issuer != "" {
			m.issuer = issuer
		}
	}
}

// WithClock overrides the time source, primarily for testing.
func WithClock(clock func() time.Time) TokenManagerOption {
	return func(m *TokenManager) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// NewTokenManager constructs a TokenManager signing with the provided secret.
func NewTokenManager(secret string, opts ...TokenManagerOption) (*TokenManager, error) {
	trimmed := strings.TrimSpace(secret)
	if trimmed == "" {
		return nil, errors.New("auth: signing secret is required")
	}

	manager := &TokenManager{
		secret: []byte(trimmed),
		issuer: defaultIssuer,
		ttl:    defaultTokenTTL,
		clock:  time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(manager)
		}
	}
	return manager, nil
}

// Issue creates a signed bearer token for the provided identity.
func (m *TokenManager) Issue(identity Identity) (string, time.Time, error) {
	if m == nil {
		return "", time.Time{}, ErrTokenInvalid
	}
	subject := strings.TrimSpace(identity.Subject)
	if subject == "" {
		return "", time.Time{}, fmt.Errorf("%w: subject is required", ErrTokenInvalid)
	}

	now := m.clock().UTC()
	expires := now.Add(m.ttl)
	claims := Claims{
		Email:     strings.TrimSpace(identity.Email),
		FullName:  strings.TrimSpace(identity.FullName),
		Superuser: identity.Superuser,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, expires, nil
}

// Verify parses and validates a bearer token, returning the embedded identity.
func (m *TokenManager) Verify(tokenStr string) (*Identity, error) {
	if m == nil {
		return nil, ErrTokenInvalid
	}
	tokenStr = strings.TrimSpace(tokenStr)
	if tokenStr == "" {
		return nil, ErrTokenInvalid
	}

	claims := &Claims{}
	// Claim validation is done against the manager clock below; the library
	// validator only consults the package-global time source.
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	token, err := parser.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if token == nil {
		return nil, ErrTokenInvalid
	}

	now := m.clock().UTC()
	if claims.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: missing expiry", ErrTokenInvalid)
	}
	if !now.Before(claims.ExpiresAt.Time) {
		return nil, ErrTokenExpired
	}
	if claims.NotBefore != nil && now.Before(claims.NotBefore.Time) {
		return nil, fmt.Errorf("%w: token not yet valid", ErrTokenInvalid)
	}
	if claims.Issuer != m.issuer {
		return nil, fmt.Errorf("%w: unexpected issuer %q", ErrTokenInvalid, claims.Issuer)
	}

	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}

	return &Identity{
		Subject:   subject,
		Email:     strings.TrimSpace(claims.Email),
		FullName:  strings.TrimSpace(claims.FullName),
		Superuser: claims.Superuser,
	}, nil
}
