package helpers

import (
	"errors"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/oksasatya/go-ddd-auth-core/pkg/apperror"
)

// TokenKind selects which secret signs and verifies a token.
type TokenKind int

const (
	AccessToken TokenKind = iota
	RefreshToken
)

// claim returns the value of the typ claim for the kind.
func (k TokenKind) claim() string {
	if k == RefreshToken {
		return "refresh"
	}
	return "access"
}

var errWrongKind = errors.New("token kind mismatch")

// JWTConfig is the process-wide token configuration, loaded once at startup.
// Rotating a secret invalidates every outstanding token of that kind.
type JWTConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Audience      string
	// Leeway tolerates clock skew on expiry. Zero means none.
	Leeway time.Duration
}

// JWTManager handles generation and validation of JWT tokens
type JWTManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	audience      string
	leeway        time.Duration
	now           func() time.Time
}

func NewJWTManager(cfg JWTConfig) *JWTManager {
	return &JWTManager{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		issuer:        cfg.Issuer,
		audience:      cfg.Audience,
		leeway:        cfg.Leeway,
		now:           time.Now,
	}
}

func (m *JWTManager) AccessTTL() time.Duration  { return m.accessTTL }
func (m *JWTManager) RefreshTTL() time.Duration { return m.refreshTTL }

// Payload is the identity embedded in every token.
type Payload struct {
	UserID    string
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type Claims struct {
	UserID string `json:"uid"`
	Email  string `json:"email"`
	Kind   string `json:"typ"`
	jwt.RegisteredClaims
}

func (m *JWTManager) secret(kind TokenKind) []byte {
	if kind == RefreshToken {
		return m.refreshSecret
	}
	return m.accessSecret
}

// Sign issues a token of the given kind that expires ttl from now.
// IssuedAt and ExpiresAt in p are ignored and set from the clock.
func (m *JWTManager) Sign(kind TokenKind, p Payload, ttl time.Duration) (string, time.Time, error) {
	now := m.now()
	exp := now.Add(ttl)
	claims := &Claims{
		UserID: p.UserID,
		Email:  p.Email,
		Kind:   kind.claim(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   p.UserID,
			Issuer:    m.issuer,
			Audience:  jwt.ClaimStrings{m.audience},
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := t.SignedString(m.secret(kind))
	return s, exp, err
}

func (m *JWTManager) GenerateAccessToken(userID, email string) (string, time.Time, error) {
	return m.Sign(AccessToken, Payload{UserID: userID, Email: email}, m.accessTTL)
}

func (m *JWTManager) GenerateRefreshToken(userID, email string) (string, time.Time, error) {
	return m.Sign(RefreshToken, Payload{UserID: userID, Email: email}, m.refreshTTL)
}

func (m *JWTManager) ParseAccessToken(tokenStr string) (*Payload, error) {
	return m.Verify(AccessToken, tokenStr)
}

func (m *JWTManager) ParseRefreshToken(tokenStr string) (*Payload, error) {
	return m.Verify(RefreshToken, tokenStr)
}

// Verify checks signature, token kind, issuer, audience and expiry, in that order.
// The first failing check decides the result: apperror.ErrExpiredToken for
// expiry, apperror.ErrInvalidToken for everything else.
func (m *JWTManager) Verify(kind TokenKind, tokenStr string) (*Payload, error) {
	claims := &Claims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	secret := m.secret(kind)
	if _, err := parser.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	}); err != nil {
		return nil, apperror.ErrInvalidToken.Wrap(err)
	}

	if claims.Kind != kind.claim() {
		return nil, apperror.ErrInvalidToken.Wrap(errWrongKind)
	}
	if claims.Issuer != m.issuer {
		return nil, apperror.ErrInvalidToken.Wrap(jwt.ErrTokenInvalidIssuer)
	}
	if !slices.Contains(claims.Audience, m.audience) {
		return nil, apperror.ErrInvalidToken.Wrap(jwt.ErrTokenInvalidAudience)
	}
	if claims.ExpiresAt == nil || claims.UserID == "" {
		return nil, apperror.ErrInvalidToken.Wrap(jwt.ErrTokenRequiredClaimMissing)
	}
	if !m.now().Before(claims.ExpiresAt.Time.Add(m.leeway)) {
		return nil, apperror.ErrExpiredToken.Wrap(jwt.ErrTokenExpired)
	}

	p := &Payload{
		UserID:    claims.UserID,
		Email:     claims.Email,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		p.IssuedAt = claims.IssuedAt.Time
	}
	return p, nil
}
