package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

const (
	ScopeRunsWrite = "runs:write"
	ScopeRunsRead  = "runs:read"
	ScopePostsRead = "posts:read"
)

type ServiceTokenClaims struct {
	jwt.RegisteredClaims
	Service string `json:"service"`
	Scope   string `json:"scope"`
}

// ServiceTokenManager issues and validates the bearer tokens internal
// services present to the autoblog API.
type ServiceTokenManager struct {
	signingKey []byte
	ttl        time.Duration
}

func NewServiceTokenManager(signingKey []byte, ttl time.Duration) *ServiceTokenManager {
	return &ServiceTokenManager{signingKey: signingKey, ttl: ttl}
}

func (m *ServiceTokenManager) Generate(service string, scopes ...string) (string, error) {
	claims := ServiceTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   service,
			Issuer:    "listgenius",
		},
		Service: service,
		Scope:   strings.Join(scopes, ","),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.signingKey)
}

func (m *ServiceTokenManager) Validate(tokenString string) (*ServiceTokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ServiceTokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		return m.signingKey, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*ServiceTokenClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func (c *ServiceTokenClaims) HasScope(required string) bool {
	for _, scope := range strings.Split(c.Scope, ",") {
		if scope == required {
			return true
		}
	}
	return false
}
