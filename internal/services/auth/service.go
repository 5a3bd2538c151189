package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mcoot/gamelobby/internal/dependencies/clock"
	"github.com/mcoot/gamelobby/internal/model"
)

// Errors
var (
	ErrInvalidToken    = errors.New("invalid or expired token")
	ErrMissingIdentity = errors.New("token has no subject")
)

// Claims are the JWT claims carried by a principal token. The subject is
// the identity-provider reference, e.g. "google-oauth2|1234".
type Claims struct {
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
	jwt.RegisteredClaims
}

// Config holds configuration for the auth service
type Config struct {
	Secret        string
	Issuer        string
	TokenDuration time.Duration
}

// DefaultConfig returns default auth configuration
func DefaultConfig() Config {
	return Config{
		Issuer:        "gamelobby",
		TokenDuration: 24 * time.Hour,
	}
}

// Service verifies and issues HS256 principal tokens
type Service struct {
	secret        []byte
	issuer        string
	tokenDuration time.Duration
	clock         clock.Clock
}

// New creates a new auth Service
func New(clock clock.Clock, cfg Config) *Service {
	defaults := DefaultConfig()
	if cfg.TokenDuration == 0 {
		cfg.TokenDuration = defaults.TokenDuration
	}
	if cfg.Issuer == "" {
		cfg.Issuer = defaults.Issuer
	}
	return &Service{
		secret:        []byte(cfg.Secret),
		issuer:        cfg.Issuer,
		tokenDuration: cfg.TokenDuration,
		clock:         clock,
	}
}

// Issue signs a token asserting the given principal
func (s *Service) Issue(p model.Principal) (string, error) {
	if p.Identity == "" {
		return "", ErrMissingIdentity
	}

	now := s.clock.Now()
	claims := Claims{
		Email:    p.Email,
		Nickname: p.Nickname,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Identity,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenDuration)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token and returns the principal it asserts
func (s *Service) Verify(tokenString string) (*model.Principal, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (any, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.Subject == "" {
		return nil, ErrMissingIdentity
	}

	return &model.Principal{
		Identity: claims.Subject,
		Email:    claims.Email,
		Nickname: claims.Nickname,
	}, nil
}
