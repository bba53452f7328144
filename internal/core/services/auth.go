package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/docflow-labs/docflow-core/internal/core/domain"
	"github.com/docflow-labs/docflow-core/internal/core/ports/driven"
	"github.com/docflow-labs/docflow-core/internal/core/ports/driving"
)

// Ensure authService implements AuthService
var _ driving.AuthService = (*authService)(nil)

type authService struct {
	adapter driven.AuthAdapter
}

// NewAuthService creates a new auth service.
func NewAuthService(adapter driven.AuthAdapter) driving.AuthService {
	return &authService{adapter: adapter}
}

func (s *authService) ValidateToken(ctx context.Context, token string) (*domain.OperatorContext, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", domain.ErrTokenInvalid)
	}
	op, err := s.adapter.ParseToken(token)
	if err != nil {
		return nil, err
	}
	if op.IsExpired() {
		return nil, domain.ErrTokenExpired
	}
	return op, nil
}
