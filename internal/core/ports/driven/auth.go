package driven

import (
	"time"

	"github.com/docflow-labs/docflow-core/internal/core/domain"
)

// AuthAdapter handles operator token cryptographic operations.
// Tokens are signed with a shared secret; there is no user storage.
type AuthAdapter interface {
	// GenerateToken issues a signed operator token for the subject
	GenerateToken(subject string, ttl time.Duration) (string, error)

	// ParseToken validates a token and returns the operator context.
	// Expired tokens return domain.ErrTokenExpired, malformed ones
	// domain.ErrTokenInvalid.
	ParseToken(token string) (*domain.OperatorContext, error)
}
