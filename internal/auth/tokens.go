package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"progtrack.org/internal/ids"
)

// TokenClass distinguishes the two token kinds issued at login. Each class is
// signed with its own secret, so a refresh token can never be presented where
// an access token is expected even though both use HS256.
type TokenClass string

const (
	TokenAccess  TokenClass = "access"
	TokenRefresh TokenClass = "refresh"
)

const (
	defaultAccessTTL  = 30 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

// Claims is the identity payload embedded in every token. Role and
// DisplayName are advisory: enforcement always re-reads the live actor
// record at resolution time.
type Claims struct {
	Role        string `json:"role"`
	DisplayName string `json:"name,omitempty"`
	Class       string `json:"token_class"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies the two token classes. It is constructed
// once at process start and passed by reference; there is no ambient signing
// state.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// TokenOption configures TokenService behavior.
type TokenOption func(*TokenService)

// WithIssuer overrides the issuer claim.
func WithIssuer(issuer string) TokenOption {
	return func(s *TokenService) {
		if v := strings.TrimSpace(issuer); v != "" {
			s.issuer = v
		}
	}
}

// WithAccessTTL configures the access token lifetime.
func WithAccessTTL(ttl time.Duration) TokenOption {
	return func(s *TokenService) {
		if ttl > 0 {
			s.accessTTL = ttl
		}
	}
}

// WithRefreshTTL configures the refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) TokenOption {
	return func(s *TokenService) {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) TokenOption {
	return func(s *TokenService) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewTokenService constructs a TokenService from the two class secrets.
func NewTokenService(accessSecret, refreshSecret string, opts ...TokenOption) (*TokenService, error) {
	if strings.TrimSpace(accessSecret) == "" || strings.TrimSpace(refreshSecret) == "" {
		return nil, errors.New("auth: both access and refresh secrets are required")
	}
	if accessSecret == refreshSecret {
		return nil, errors.New("auth: access and refresh secrets must differ")
	}
	s := &TokenService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		issuer:        "progtrack",
		accessTTL:     defaultAccessTTL,
		refreshTTL:    defaultRefreshTTL,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// AccessTTL reports the configured access token lifetime.
func (s *TokenService) AccessTTL() time.Duration { return s.accessTTL }

// RefreshTTL reports the configured refresh token lifetime.
func (s *TokenService) RefreshTTL() time.Duration { return s.refreshTTL }

// Issue signs a token of the given class for the actor. The returned expiry
// is the embedded exp claim.
func (s *TokenService) Issue(actor ActorSummary, class TokenClass) (string, time.Time, error) {
	secret, ttl, err := s.classConfig(class)
	if err != nil {
		return "", time.Time{}, err
	}
	if strings.TrimSpace(actor.ID) == "" {
		return "", time.Time{}, fmt.Errorf("%w: subject id is required", ErrInvalidInput)
	}
	now := s.now().UTC()
	exp := now.Add(ttl)
	claims := Claims{
		Role:        actor.Role.String(),
		DisplayName: actor.Name,
		Class:       string(class),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   actor.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        ids.New(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", class, err)
	}
	return signed, exp, nil
}

// Verify validates a token against the expected class. Expiry comparison is
// strict UTC with no skew allowance. The three failure kinds are for
// internal diagnostics; boundaries collapse them to ErrUnauthenticated.
func (s *TokenService) Verify(tokenString string, class TokenClass) (*Claims, error) {
	secret, _, err := s.classConfig(class)
	if err != nil {
		return nil, err
	}
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, ErrMalformedClaims
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidSignature
		}
		return secret, nil
	},
		jwt.WithTimeFunc(func() time.Time { return s.now().UTC() }),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(s.issuer),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrInvalidSignature
		default:
			return nil, ErrMalformedClaims
		}
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrMalformedClaims
	}
	if strings.TrimSpace(claims.Subject) == "" || strings.TrimSpace(claims.Role) == "" {
		return nil, ErrMalformedClaims
	}
	if claims.Class != string(class) {
		// A token of one class signed with that class's secret still cannot
		// stand in for the other class.
		return nil, ErrInvalidSignature
	}
	return claims, nil
}

func (s *TokenService) classConfig(class TokenClass) ([]byte, time.Duration, error) {
	switch class {
	case TokenAccess:
		return s.accessSecret, s.accessTTL, nil
	case TokenRefresh:
		return s.refreshSecret, s.refreshTTL, nil
	default:
		return nil, 0, fmt.Errorf("%w: unknown token class %q", ErrInvalidInput, class)
	}
}
