package domain

import (
	"strings"
	"unicode"
)

const (
	MinPasswordLength = 8
	MaxPasswordLength = 128

	passwordSpecials = "!@#$%^&*()_+-=[]{}|;:,.<>?"
)

// ValidatePassword checks length first, then character classes in a fixed
// order. The first failing rule determines the returned PolicyError.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return policyError("Password must be at least 8 characters long")
	}
	if len(password) > MaxPasswordLength {
		return policyError("Password must be no more than 128 characters long")
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		case strings.ContainsRune(passwordSpecials, r):
			hasSpecial = true
		}
	}

	if !hasUpper {
		return policyError("Password must contain at least one uppercase letter")
	}
	if !hasLower {
		return policyError("Password must contain at least one lowercase letter")
	}
	if !hasDigit {
		return policyError("Password must contain at least one digit")
	}
	if !hasSpecial {
		return policyError("Password must contain at least one special character")
	}
	return nil
}

// ValidateEmail performs a shape check only; deliverability is not verified.
func ValidateEmail(email string) error {
	if email == "" {
		return policyError("Email cannot be empty")
	}
	if !strings.Contains(email, "@") {
		return policyError("Email must contain @ symbol")
	}

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return policyError("Email must have exactly one @ symbol")
	}
	if parts[0] == "" || parts[1] == "" {
		return policyError("Email must have non-empty local and domain parts")
	}
	if !strings.Contains(parts[1], ".") {
		return policyError("Email domain must contain at least one dot")
	}
	return nil
}
