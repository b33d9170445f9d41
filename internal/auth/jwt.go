package auth

import (
	"errors"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTClaims represents the claims in a client access token.
type JWTClaims struct {
	ClientName string `json:"client_name,omitempty"`
	jwt.RegisteredClaims
}

// ErrAuthDisabled is returned when no signing secret is configured; the
// websocket endpoint is then open, matching the legacy deployment.
var ErrAuthDisabled = errors.New("token auth disabled: JWT_SECRET not set")

func secret() []byte {
	return []byte(os.Getenv("JWT_SECRET"))
}

// Enabled reports whether token auth is configured for this process.
func Enabled() bool {
	return os.Getenv("JWT_SECRET") != ""
}

// GenerateClientToken issues a short-lived token for a websocket client.
func GenerateClientToken(clientName string) (string, error) {
	if !Enabled() {
		return "", ErrAuthDisabled
	}
	claims := &JWTClaims{
		ClientName: clientName,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret())
}

// ValidateToken validates a client token and returns its claims.
func ValidateToken(tokenString string) (*JWTClaims, error) {
	if !Enabled() {
		return nil, ErrAuthDisabled
	}
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return secret(), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrInvalidKey
}
