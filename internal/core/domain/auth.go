package domain

import "time"

// OperatorContext identifies the bearer of an operator token.
// There are no user accounts; tokens are issued out of band with a
// shared signing secret and carry only a subject and an expiry.
type OperatorContext struct {
	Subject   string    `json:"subject"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired checks if the token behind this context has expired
func (o *OperatorContext) IsExpired() bool {
	return time.Now().After(o.ExpiresAt)
}
