package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

const AuthenticatedRole = "authenticated"

var ErrRoleNotAllowed = errors.New("token role is not authenticated")

type JWTAuthenticator struct {
	secret   string
	audience string
	issuer   string
}

func NewJWTAuthenticator(secret, audience, issuer string) *JWTAuthenticator {
	return &JWTAuthenticator{secret: secret, audience: audience, issuer: issuer}
}

func (a *JWTAuthenticator) GenerateToken(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(a.secret))
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ValidateToken checks signature, expiry, audience, issuer when configured,
// and that the role claim is authenticated.
func (a *JWTAuthenticator) ValidateToken(token string) (*jwt.Token, error) {
	options := []jwt.ParserOption{
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
	}
	if a.audience != "" {
		options = append(options, jwt.WithAudience(a.audience))
	}
	if a.issuer != "" {
		options = append(options, jwt.WithIssuer(a.issuer))
	}

	parsed, err := jwt.ParseWithClaims(token, &PlatformClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(a.secret), nil
	}, options...)
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*PlatformClaims)
	if !ok || claims.Role != AuthenticatedRole {
		return nil, ErrRoleNotAllowed
	}

	return parsed, nil
}
