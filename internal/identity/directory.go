// Package identity holds the in-memory source of truth for user accounts and
// the ledger of password-reset tokens. Neither performs I/O; persistence is
// layered on top through the directory's commit hook.
package identity

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/dom/tps-identity/internal/domain"
	"github.com/google/uuid"
)

// ErrInvalidCredentials is returned for both unknown emails and wrong
// passwords so callers cannot tell which one failed.
var ErrInvalidCredentials = fmt.Errorf("%w: invalid email or password", domain.ErrUnauthorized)

// ErrIncorrectPassword is returned when a password rotation presents the
// wrong current password.
var ErrIncorrectPassword = fmt.Errorf("%w: current password is incorrect", domain.ErrUnauthorized)

type Op int

const (
	OpUpsert Op = iota + 1
	OpDelete
)

func (o Op) String() string {
	switch o {
	case OpUpsert:
		return "upsert"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Change describes one committed mutation. User is a copy taken inside the
// critical section.
type Change struct {
	Op   Op
	User domain.User
}

// CommitHook runs while the directory write lock is held, once per committed
// mutation and in commit order. It must not block on I/O or call back into
// the directory.
type CommitHook func(Change)

// Directory stores users by ID with a unique email index maintained in
// lockstep. A single RWMutex guards both maps; every mutation, including an
// email relocation, happens within one write-locked section.
type Directory struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]*domain.User
	byEmail map[string]uuid.UUID

	hasher domain.PasswordHasher
	hook   CommitHook

	decoyOnce sync.Once
	decoy     string
}

func NewDirectory(hasher domain.PasswordHasher, hook CommitHook) *Directory {
	return &Directory{
		byID:    make(map[uuid.UUID]*domain.User),
		byEmail: make(map[string]uuid.UUID),
		hasher:  hasher,
		hook:    hook,
	}
}

// Register creates a regular user. The password is hashed before the lock is
// taken; the uniqueness check and insert are a single critical section.
func (d *Directory) Register(email, name, password string) (domain.PublicUser, error) {
	return d.create(email, name, password, false)
}

// CreateAdmin is Register with the admin flag set.
func (d *Directory) CreateAdmin(email, name, password string) (domain.PublicUser, error) {
	return d.create(email, name, password, true)
}

func (d *Directory) create(email, name, password string, admin bool) (domain.PublicUser, error) {
	user, err := domain.NewUser(d.hasher, email, name, password)
	if err != nil {
		return domain.PublicUser{}, err
	}
	if admin {
		user.SetAdmin(true)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, taken := d.byEmail[user.Email]; taken {
		return domain.PublicUser{}, fmt.Errorf("%w: user with this email already exists", domain.ErrConflict)
	}
	d.byID[user.ID] = user
	d.byEmail[user.Email] = user.ID
	d.commit(OpUpsert, user)

	return user.Public(), nil
}

// Authenticate verifies credentials against a snapshot taken under the read
// lock. The hash comparison itself runs outside the lock.
func (d *Directory) Authenticate(email, password string) (domain.PublicUser, error) {
	user, ok := d.FindByEmail(email)
	if !ok {
		// Spend the same hashing cost as a real check.
		_, _ = d.hasher.Verify(d.decoyHash(), password)
		return domain.PublicUser{}, ErrInvalidCredentials
	}

	valid, err := user.VerifyPassword(d.hasher, password)
	if err != nil {
		return domain.PublicUser{}, fmt.Errorf("verify password for %s: %w", user.ID, err)
	}
	if !valid {
		return domain.PublicUser{}, ErrInvalidCredentials
	}
	return user.Public(), nil
}

func (d *Directory) FindByID(id uuid.UUID) (domain.User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	user, ok := d.byID[id]
	if !ok {
		return domain.User{}, false
	}
	return *user, true
}

func (d *Directory) FindByEmail(email string) (domain.User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	id, ok := d.byEmail[email]
	if !ok {
		return domain.User{}, false
	}
	return *d.byID[id], true
}

// UpdateProfile changes email and/or name. A conflicting email is rejected
// before anything is mutated; an accepted email change moves the index entry
// in the same critical section as the record update.
func (d *Directory) UpdateProfile(id uuid.UUID, email, name *string) (domain.PublicUser, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	user, ok := d.byID[id]
	if !ok {
		return domain.PublicUser{}, domain.ErrNotFound
	}

	oldEmail := user.Email
	if email != nil && *email != oldEmail {
		if owner, taken := d.byEmail[*email]; taken && owner != id {
			return domain.PublicUser{}, fmt.Errorf("%w: email already in use", domain.ErrConflict)
		}
	}

	updated := *user
	if err := updated.UpdateProfile(email, name); err != nil {
		return domain.PublicUser{}, err
	}

	if updated.Email != oldEmail {
		delete(d.byEmail, oldEmail)
		d.byEmail[updated.Email] = id
	}
	*user = updated
	d.commit(OpUpsert, user)

	return user.Public(), nil
}

// RotatePassword re-verifies current before accepting the new password.
func (d *Directory) RotatePassword(id uuid.UUID, current, next string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	user, ok := d.byID[id]
	if !ok {
		return domain.ErrNotFound
	}

	valid, err := user.VerifyPassword(d.hasher, current)
	if err != nil {
		return fmt.Errorf("verify password for %s: %w", id, err)
	}
	if !valid {
		return ErrIncorrectPassword
	}

	if err := user.RotatePassword(d.hasher, next); err != nil {
		return err
	}
	d.commit(OpUpsert, user)
	return nil
}

// ResetPassword replaces the password of user id without checking the old
// one. It returns domain.ErrNotFound unless id exists and still holds email.
// Only the reset ledger calls it.
func (d *Directory) ResetPassword(id uuid.UUID, email, next string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	user, ok := d.byID[id]
	if !ok || user.Email != email {
		return domain.ErrNotFound
	}

	if err := user.RotatePassword(d.hasher, next); err != nil {
		return err
	}
	d.commit(OpUpsert, user)
	return nil
}

func (d *Directory) Delete(id uuid.UUID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	user, ok := d.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	delete(d.byID, id)
	delete(d.byEmail, user.Email)
	d.commit(OpDelete, user)
	return nil
}

func (d *Directory) SetRole(id uuid.UUID, isAdmin bool) (domain.PublicUser, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	user, ok := d.byID[id]
	if !ok {
		return domain.PublicUser{}, domain.ErrNotFound
	}
	user.SetAdmin(isAdmin)
	d.commit(OpUpsert, user)
	return user.Public(), nil
}

// List returns a snapshot ordered by creation time, then ID.
func (d *Directory) List() []domain.PublicUser {
	d.mu.RLock()
	users := make([]domain.PublicUser, 0, len(d.byID))
	for _, u := range d.byID {
		users = append(users, u.Public())
	}
	d.mu.RUnlock()

	sort.Slice(users, func(i, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.Before(users[j].CreatedAt)
		}
		return users[i].ID.String() < users[j].ID.String()
	})
	return users
}

func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.byID)
}

// Restore loads previously persisted users. It rejects duplicate IDs or
// emails and leaves the directory unchanged on error. The commit hook is
// not invoked.
func (d *Directory) Restore(users []domain.User) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	byID := make(map[uuid.UUID]*domain.User, len(d.byID)+len(users))
	byEmail := make(map[string]uuid.UUID, len(d.byEmail)+len(users))
	for id, u := range d.byID {
		byID[id] = u
		byEmail[u.Email] = id
	}

	var errs []error
	for i := range users {
		u := users[i]
		if _, dup := byID[u.ID]; dup {
			errs = append(errs, fmt.Errorf("%w: duplicate id %s", domain.ErrConflict, u.ID))
			continue
		}
		if _, dup := byEmail[u.Email]; dup {
			errs = append(errs, fmt.Errorf("%w: duplicate email for %s", domain.ErrConflict, u.ID))
			continue
		}
		byID[u.ID] = &u
		byEmail[u.Email] = u.ID
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	d.byID = byID
	d.byEmail = byEmail
	return nil
}

func (d *Directory) commit(op Op, user *domain.User) {
	if d.hook != nil {
		d.hook(Change{Op: op, User: *user})
	}
}

func (d *Directory) decoyHash() string {
	d.decoyOnce.Do(func() {
		hash, err := d.hasher.Hash(uuid.NewString())
		if err == nil {
			d.decoy = hash
		}
	})
	return d.decoy
}
