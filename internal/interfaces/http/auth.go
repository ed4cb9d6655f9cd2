package http

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/garyjia/trip-expense/internal/domain/entity"
)

// AuthConfig configures bearer token verification
type AuthConfig struct {
	Secret string
	Issuer string
	// Leeway tolerates clock skew on exp/nbf
	Leeway time.Duration
}

// ActorClaims are the JWT claims identifying an actor
type ActorClaims struct {
	Role     string `json:"role"`
	AreaCode string `json:"area_code"`
	jwt.RegisteredClaims
}

// TokenAuthenticator verifies HS256 bearer tokens and issues them for tooling
type TokenAuthenticator struct {
	secret []byte
	issuer string
	parser *jwt.Parser
}

// NewTokenAuthenticator creates an authenticator; the secret must not be empty
func NewTokenAuthenticator(cfg AuthConfig) (*TokenAuthenticator, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.Leeway),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	return &TokenAuthenticator{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		parser: jwt.NewParser(opts...),
	}, nil
}

// Authenticate parses token and returns the actor it names
func (a *TokenAuthenticator) Authenticate(token string) (entity.Actor, error) {
	claims := &ActorClaims{}
	_, err := a.parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	})
	if err != nil {
		return entity.Actor{}, fmt.Errorf("invalid token: %w", err)
	}

	actor := entity.Actor{
		ID:       claims.Subject,
		Role:     entity.Role(claims.Role),
		AreaCode: claims.AreaCode,
	}
	if actor.ID == "" {
		return entity.Actor{}, errors.New("invalid token: missing subject")
	}
	if !actor.Role.IsValid() {
		return entity.Actor{}, fmt.Errorf("invalid token: unknown role %q", claims.Role)
	}
	return actor, nil
}

// Issue signs a token for actor valid for ttl
func (a *TokenAuthenticator) Issue(actor entity.Actor, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := ActorClaims{
		Role:     string(actor.Role),
		AreaCode: actor.AreaCode,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}
