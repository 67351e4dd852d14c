package service

import (
	"context"
	"time"

	"github.com/dom/tps-identity/internal/domain"
	"github.com/dom/tps-identity/internal/repository"
	"github.com/dom/tps-identity/internal/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const auditWriteTimeout = 2 * time.Second

// Publisher is the live side of the audit trail.
type Publisher interface {
	Publish(msgType websocket.MessageType, payload interface{}) bool
}

// Auditor records identity events. Both the publisher and the repository
// are optional; a failure in either is logged and never surfaces to the
// operation that produced the event.
type Auditor struct {
	pub  Publisher
	repo repository.AuditRepository
	log  *zap.Logger
}

func NewAuditor(pub Publisher, repo repository.AuditRepository, log *zap.Logger) *Auditor {
	return &Auditor{pub: pub, repo: repo, log: log}
}

func (a *Auditor) Record(ctx context.Context, typ domain.AuditType, actor, subject *uuid.UUID, details map[string]any) {
	if a == nil {
		return
	}
	ev := domain.NewAuditEvent(typ, actor, subject, details)

	if a.repo != nil {
		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditWriteTimeout)
		err := a.repo.Create(wctx, &ev)
		cancel()
		if err != nil {
			a.log.Error("failed to persist audit event", zap.String("type", string(typ)), zap.Error(err))
		}
	}
	if a.pub != nil {
		a.pub.Publish(websocket.MessageTypeAuditEvent, ev)
	}
}

// Recent returns the latest persisted events, newest first.
func (a *Auditor) Recent(ctx context.Context, limit int) ([]domain.AuditEvent, error) {
	if a == nil || a.repo == nil {
		return []domain.AuditEvent{}, nil
	}
	return a.repo.ListRecent(ctx, limit)
}

func uuidPtr(id uuid.UUID) *uuid.UUID {
	return &id
}
