package server

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// pinClaims is a push-authorization token: the PIN it authorizes a
// single push against, plus a standard expiry. Mirrors
// land_strider/src/startup.rs::JWTClaims.
type pinClaims struct {
	Pin string `json:"pin"`
	jwt.RegisteredClaims
}

func genJWT(secret []byte, pin string) (string, error) {
	claims := pinClaims{
		Pin: pin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func validateJWT(secret []byte, tokenStr string) (string, error) {
	var claims pinClaims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("invalid token")
	}
	return claims.Pin, nil
}
