package driving

import (
	"context"

	"github.com/docflow-labs/docflow-core/internal/core/domain"
)

// AuthService validates operator tokens for guarded endpoints
type AuthService interface {
	// ValidateToken validates a bearer token and returns the operator context
	ValidateToken(ctx context.Context, token string) (*domain.OperatorContext, error)
}
