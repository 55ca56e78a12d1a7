package service

import (
	"context"
	"time"

	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/domain"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// LoginResult is the outcome of a login attempt.
type LoginResult struct {
	Role      domain.Role
	Token     string
	ExpiresAt time.Time
}

// AuthService resolves credentials to a role label. It is not an access
// control boundary; ticket routes do not consult it.
type AuthService struct {
	verifier auth.CredentialVerifier
	tokenMgr *auth.TokenManager
}

// NewAuthService builds the service.
func NewAuthService(verifier auth.CredentialVerifier, tokens *auth.TokenManager) *AuthService {
	return &AuthService{verifier: verifier, tokenMgr: tokens}
}

// Login never rejects: credentials that do not match the admin map to RoleUser.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	role, err := s.verifier.Verify(ctx, email, password)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	token, exp, err := s.tokenMgr.GenerateToken(email, role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &LoginResult{Role: role, Token: token, ExpiresAt: exp}, nil
}

// Session returns the role carried by a previously issued token.
func (s *AuthService) Session(token string) (domain.Role, error) {
	if token == "" {
		return "", apperrors.NewUnauthorized("missing token")
	}
	claims, err := s.tokenMgr.ParseToken(token)
	if err != nil {
		return "", apperrors.NewUnauthorized("invalid token")
	}
	return claims.Role, nil
}
