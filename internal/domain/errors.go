package domain

import "errors"

// Failure categories surfaced by the identity core. Callers match them with
// errors.Is; the HTTP layer maps each to a status code and category.
var (
	ErrPolicyViolation   = errors.New("policy violation")
	ErrConflict          = errors.New("conflict")
	ErrNotFound          = errors.New("user not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("access denied")
	ErrCryptoFormat      = errors.New("malformed password hash")
	ErrInvalidResetToken = errors.New("invalid or expired reset token")
)

// PolicyError reports which password or email rule was violated.
type PolicyError struct {
	Reason string
}

func (e *PolicyError) Error() string {
	return e.Reason
}

func (e *PolicyError) Is(target error) bool {
	return target == ErrPolicyViolation
}

func policyError(reason string) error {
	return &PolicyError{Reason: reason}
}
