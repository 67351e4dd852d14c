package repository

import (
	"context"
	"errors"

	"github.com/dom/tps-identity/internal/domain"
	"github.com/google/uuid"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("record not found")

// UserRepository is the durable store behind the in-memory directory. Save
// is an upsert keyed by ID; the email column carries a unique index. The
// service reads through the directory; GetByID and GetByEmail complete the
// keyed-lookup contract of the store and let callers check persisted state
// directly.
type UserRepository interface {
	Save(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]domain.User, error)
}

type AuditRepository interface {
	Create(ctx context.Context, event *domain.AuditEvent) error
	ListRecent(ctx context.Context, limit int) ([]domain.AuditEvent, error)
	ListBySubject(ctx context.Context, subjectID uuid.UUID, limit int) ([]domain.AuditEvent, error)
}

type Repositories struct {
	User  UserRepository
	Audit AuditRepository
}
