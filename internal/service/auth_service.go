package service

import (
	"github.com/agrilink/crm-sync/internal/auth"
	"github.com/agrilink/crm-sync/internal/config"
	apperrors "github.com/agrilink/crm-sync/pkg/util"
)

// AuthService authenticates the operations account. There is a single
// operator credential, configured out of band; no account table exists.
type AuthService struct {
	tokenMgr     *auth.TokenManager
	username     string
	passwordHash string
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config) *AuthService {
	return &AuthService{
		tokenMgr:     auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		username:     cfg.Auth.OpsUsername,
		passwordHash: cfg.Auth.OpsPasswordHash,
	}
}

// TokenManager exposes the manager for the route middleware.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// Login verifies the operator credential and issues an access token.
func (s *AuthService) Login(username, password string) (string, error) {
	if s.username == "" || s.passwordHash == "" {
		return "", apperrors.NewUnauthorized("operator login is not configured")
	}
	if username != s.username {
		return "", apperrors.NewUnauthorized("invalid credentials")
	}
	if err := auth.ComparePassword(s.passwordHash, password); err != nil {
		return "", apperrors.NewUnauthorized("invalid credentials")
	}

	token, _, err := s.tokenMgr.GenerateToken(username)
	if err != nil {
		return "", err
	}
	return token, nil
}
