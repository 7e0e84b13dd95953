package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"vilatur/internal/config"
)

// AuthService issues short-lived bearer tokens for API clients.
// Browser clients use the session cookie instead.
type AuthService struct {
	config *config.Config
}

func NewAuthService(cfg *config.Config) *AuthService {
	return &AuthService{config: cfg}
}

// IssueAccessToken signs an HS256 token carrying user_id. It returns the token
// and its lifetime in seconds.
func (s *AuthService) IssueAccessToken(userID int64) (string, int, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     now.Add(time.Duration(s.config.AccessTokenMaxAge) * time.Second).Unix(),
		"iat":     now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return "", 0, fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, s.config.AccessTokenMaxAge, nil
}
