package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims claims токена для отчётного API
type JWTClaims struct {
	Principal string `json:"principal"`
	jwt.RegisteredClaims
}

// TokenResponse выданный токен
type TokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}
