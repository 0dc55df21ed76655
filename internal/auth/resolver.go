// Package auth turns bearer tokens into domain actors.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"cabdispatch/internal/domain"
)

// ErrUnauthenticated is returned when a token is missing, malformed, expired,
// or carries claims that do not describe a valid actor.
var ErrUnauthenticated = errors.New("unauthenticated")

// Claims is the JWT payload. The subject is the actor ID.
type Claims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// Resolver validates HS256 tokens signed with a shared secret.
type Resolver struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewResolver creates a Resolver. An empty secret is rejected.
func NewResolver(secret, issuer string, ttl time.Duration) (*Resolver, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Resolver{secret: []byte(secret), issuer: issuer, ttl: ttl}, nil
}

// ResolveActor parses raw and returns the actor it names. Any role outside
// the closed set makes the whole token invalid.
func (r *Resolver) ResolveActor(raw string) (domain.Actor, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if r.issuer != "" {
		opts = append(opts, jwt.WithIssuer(r.issuer))
	}

	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		return r.secret, nil
	}, opts...)
	if err != nil {
		return domain.Actor{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return domain.Actor{}, fmt.Errorf("%w: invalid token", ErrUnauthenticated)
	}
	if claims.Subject == "" {
		return domain.Actor{}, fmt.Errorf("%w: missing subject", ErrUnauthenticated)
	}

	roles, err := domain.ParseRoles(claims.Roles)
	if err != nil {
		return domain.Actor{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if len(roles) == 0 {
		return domain.Actor{}, fmt.Errorf("%w: no roles", ErrUnauthenticated)
	}

	return domain.Actor{ID: claims.Subject, Roles: roles}, nil
}

// Issue signs a token for actorID holding roles.
func (r *Resolver) Issue(actorID string, roles ...domain.Role) (string, error) {
	raw := make([]string, len(roles))
	for i, role := range roles {
		raw[i] = string(role)
	}

	now := time.Now()
	claims := Claims{
		Roles: raw,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actorID,
			Issuer:    r.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(r.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(r.secret)
}
