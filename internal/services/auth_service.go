package services

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"techlight-support/internal/domain"
	support_errors "techlight-support/pkg/errors"
)

// AccessClaims is the token shape issued by the external identity
// provider. The coordinator only verifies and reads it.
type AccessClaims struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	jwt.RegisteredClaims
}

// AuthService verifies access tokens and resolves the acting identity.
type AuthService struct {
	secret []byte
}

func NewAuthService(secret string) *AuthService {
	return &AuthService{secret: []byte(secret)}
}

// ParseAccessToken validates the token signature and expiry and maps
// the claims onto a domain actor. Unknown roles are rejected.
func (s *AuthService) ParseAccessToken(tokenString string) (domain.Actor, error) {
	if tokenString == "" {
		return domain.Actor{}, support_errors.ErrUnauthorized
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, support_errors.ErrUnauthorized
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return domain.Actor{}, support_errors.ErrUnauthorized
	}

	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok {
		return domain.Actor{}, support_errors.ErrUnauthorized
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return domain.Actor{}, support_errors.ErrUnauthorized
	}
	role, ok := domain.ParseRole(claims.Role)
	if !ok {
		return domain.Actor{}, support_errors.ErrUnauthorized
	}

	return domain.Actor{ID: userID, Name: claims.DisplayName, Role: role}, nil
}
