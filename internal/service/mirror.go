package service

import (
	"context"
	"fmt"

	"github.com/dom/tps-identity/internal/identity"
	"github.com/dom/tps-identity/internal/repository"
	"go.uber.org/zap"
)

// Mirror copies committed directory changes into the durable user store.
// Changes are enqueued from inside the directory's critical section, so the
// store sees them in commit order even when requests race.
type Mirror struct {
	repo    repository.UserRepository
	changes chan identity.Change
	log     *zap.Logger
	done    chan struct{}
}

func NewMirror(repo repository.UserRepository, buffer int, log *zap.Logger) *Mirror {
	if buffer <= 0 {
		buffer = 256
	}
	return &Mirror{
		repo:    repo,
		changes: make(chan identity.Change, buffer),
		log:     log,
		done:    make(chan struct{}),
	}
}

// Hook is passed to identity.NewDirectory. It blocks only when the buffer
// is full, which applies backpressure to writers instead of dropping changes.
func (m *Mirror) Hook() identity.CommitHook {
	return func(c identity.Change) {
		m.changes <- c
	}
}

// Hydrate loads every persisted user into dir.
func (m *Mirror) Hydrate(ctx context.Context, dir *identity.Directory) (int, error) {
	users, err := m.repo.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list persisted users: %w", err)
	}
	if err := dir.Restore(users); err != nil {
		return 0, fmt.Errorf("restore directory: %w", err)
	}
	return len(users), nil
}

// Run applies changes until ctx is cancelled, then drains what is already
// queued before returning.
func (m *Mirror) Run(ctx context.Context) {
	defer close(m.done)

	for {
		select {
		case c := <-m.changes:
			m.apply(context.WithoutCancel(ctx), c)
		case <-ctx.Done():
			for {
				select {
				case c := <-m.changes:
					m.apply(context.WithoutCancel(ctx), c)
				default:
					return
				}
			}
		}
	}
}

// Wait blocks until Run has returned.
func (m *Mirror) Wait() {
	<-m.done
}

func (m *Mirror) apply(ctx context.Context, c identity.Change) {
	var err error
	switch c.Op {
	case identity.OpUpsert:
		user := c.User
		err = m.repo.Save(ctx, &user)
	case identity.OpDelete:
		err = m.repo.Delete(ctx, c.User.ID)
	}
	if err != nil {
		m.log.Error("mirror change failed",
			zap.String("op", c.Op.String()),
			zap.String("user_id", c.User.ID.String()),
			zap.Error(err),
		)
	}
}
