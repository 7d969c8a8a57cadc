package service

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gw-ipn-relay/internal/custom_err"
	"gw-ipn-relay/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// Auth выдаёт и проверяет токены отчётного API. Токен получает только администратор.
type Auth interface {
	IssueToken(principal string) (*models.TokenResponse, error)
	ValidateToken(tokenString string) (*models.JWTClaims, error)
}

type AuthService struct {
	adminID       string
	jwtSecret     []byte
	jwtExpiration time.Duration
	log           *slog.Logger
}

func NewAuthService(adminID, jwtSecret string, jwtExpiration time.Duration, log *slog.Logger) *AuthService {
	return &AuthService{
		adminID:       adminID,
		jwtSecret:     []byte(jwtSecret),
		jwtExpiration: jwtExpiration,
		log:           log,
	}
}

func (s *AuthService) IssueToken(principal string) (*models.TokenResponse, error) {
	const op = "service.IssueToken"

	if len(s.jwtSecret) == 0 {
		return nil, custom_err.ErrAuthDisabled
	}
	if principal != s.adminID {
		return nil, custom_err.ErrUnauthorized
	}

	now := time.Now()
	claims := models.JWTClaims{
		Principal: principal,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principal,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtExpiration)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		s.log.Error("failed to sign JWT", slog.String("op", op), slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("выдан токен отчётного API", slog.String("principal", principal))

	return &models.TokenResponse{
		Token:     token,
		ExpiresIn: int64(s.jwtExpiration.Seconds()),
	}, nil
}

func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	if len(s.jwtSecret) == 0 {
		return nil, custom_err.ErrAuthDisabled
	}

	claims := &models.JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, custom_err.ErrTokenExpired
		}
		return nil, custom_err.ErrInvalidToken
	}

	if !token.Valid || claims.Principal == "" {
		return nil, custom_err.ErrInvalidToken
	}
	if claims.Principal != s.adminID {
		return nil, custom_err.ErrUnauthorized
	}

	return claims, nil
}
