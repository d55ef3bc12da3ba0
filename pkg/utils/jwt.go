package utils

import (
	"errors"
	"time"

	"github.com/alimikegami/ticket-booking/payment-callback-service/pkg/errs"
	"github.com/golang-jwt/jwt"
)

const serviceTokenIssuer = "payment-callback-service"

// CreateServiceToken issues the HS256 token collaborating services present to
// read ledger entries.
func CreateServiceToken(subject string, jwtSecretKey string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.StandardClaims{
		Subject:   subject,
		Issuer:    serviceTokenIssuer,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString([]byte(jwtSecretKey))
}

func ParseServiceToken(tokenString string, jwtSecretKey string) (*jwt.StandardClaims, error) {
	claims := &jwt.StandardClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errs.ErrInvalidToken
		}
		return []byte(jwtSecretKey), nil
	})
	if err != nil {
		var ve *jwt.ValidationError
		if errors.As(err, &ve) && ve.Errors&jwt.ValidationErrorExpired != 0 {
			return nil, errs.ErrTokenExpired
		}
		return nil, errs.ErrInvalidToken
	}
	if !token.Valid || claims.Subject == "" {
		return nil, errs.ErrInvalidToken
	}

	return claims, nil
}
