package utils

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// SessionTokenClaims represents the claims in a candidate access token
type SessionTokenClaims struct {
	InterviewID string `json:"interviewId"`
	CandidateID string `json:"candidateId,omitempty"`
	jwt.RegisteredClaims
}

// ValidateSessionToken validates an HS256 token and returns the claims
func ValidateSessionToken(tokenString string, secret []byte) (*SessionTokenClaims, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwt secret not configured")
	}
	token, err := jwt.ParseWithClaims(tokenString, &SessionTokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*SessionTokenClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// GenerateSessionToken signs a token for an interview. Used by tests and tooling.
func GenerateSessionToken(claims SessionTokenClaims, secret []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}
