package domain

import (
	"time"

	"github.com/google/uuid"
)

// PasswordHasher is the one-way credential primitive used by the user
// lifecycle. Verify returns (false, nil) for a wrong password and an error
// wrapping ErrCryptoFormat when the stored hash cannot be parsed.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(encoded, password string) (bool, error)
}

type User struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null"`
	Name         string    `json:"name" gorm:"not null"`
	PasswordHash string    `json:"-" gorm:"not null"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	IsAdmin      bool      `json:"is_admin" gorm:"not null;default:false"`
}

// PublicUser is the only user representation returned to callers.
// Build it with User.Public so the hash can never leak through it.
type PublicUser struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	IsAdmin   bool      `json:"is_admin"`
}

// NewUser validates the email and password, hashes the password and returns a
// non-admin user with a fresh random ID.
func NewUser(h PasswordHasher, email, name, password string) (*User, error) {
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	hash, err := h.Hash(password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &User{
		ID:           uuid.New(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
		IsAdmin:      false,
	}, nil
}

// UpdateProfile applies the non-nil fields. A replacement email must pass
// ValidateEmail; on error the user is left untouched.
func (u *User) UpdateProfile(email, name *string) error {
	if email != nil {
		if err := ValidateEmail(*email); err != nil {
			return err
		}
		u.Email = *email
	}
	if name != nil {
		u.Name = *name
	}
	u.touch()
	return nil
}

// RotatePassword re-validates strength before hashing the new password.
func (u *User) RotatePassword(h PasswordHasher, password string) error {
	if err := ValidatePassword(password); err != nil {
		return err
	}

	hash, err := h.Hash(password)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	u.touch()
	return nil
}

func (u *User) VerifyPassword(h PasswordHasher, password string) (bool, error) {
	return h.Verify(u.PasswordHash, password)
}

func (u *User) SetAdmin(isAdmin bool) {
	u.IsAdmin = isAdmin
	u.touch()
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
		IsAdmin:   u.IsAdmin,
	}
}

// touch keeps UpdatedAt monotonic even if the wall clock steps backwards.
func (u *User) touch() {
	now := time.Now().UTC()
	if now.Before(u.CreatedAt) {
		now = u.CreatedAt
	}
	u.UpdatedAt = now
}
