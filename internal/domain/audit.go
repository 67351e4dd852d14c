package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/ksuid"
	"gorm.io/datatypes"
)

type AuditType string

const (
	AuditUserRegistered      AuditType = "user.registered"
	AuditAdminCreated        AuditType = "user.admin_created"
	AuditLoginFailed         AuditType = "auth.login_failed"
	AuditProfileUpdated      AuditType = "user.profile_updated"
	AuditPasswordChanged     AuditType = "user.password_changed"
	AuditRoleChanged         AuditType = "user.role_changed"
	AuditUserDeleted         AuditType = "user.deleted"
	AuditResetRequested      AuditType = "password_reset.requested"
	AuditResetCompleted      AuditType = "password_reset.completed"
	AuditCredentialCorrupted AuditType = "credential.corrupted"
)

// AuditEvent records an identity operation for operators. Details never
// carry passwords, hashes or reset tokens.
type AuditEvent struct {
	ID        string         `json:"id" gorm:"primaryKey;size:27"`
	Type      AuditType      `json:"type" gorm:"index;not null"`
	ActorID   *uuid.UUID     `json:"actor_id,omitempty" gorm:"type:uuid"`
	SubjectID *uuid.UUID     `json:"subject_id,omitempty" gorm:"type:uuid;index"`
	Details   datatypes.JSON `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at" gorm:"index"`
}

// NewAuditEvent stamps a K-sortable ID and the current time. details is
// marshaled to JSON; nil leaves it empty.
func NewAuditEvent(typ AuditType, actor, subject *uuid.UUID, details map[string]any) AuditEvent {
	ev := AuditEvent{
		ID:        ksuid.New().String(),
		Type:      typ,
		ActorID:   actor,
		SubjectID: subject,
		CreatedAt: time.Now().UTC(),
	}
	if len(details) > 0 {
		if raw, err := json.Marshal(details); err == nil {
			ev.Details = datatypes.JSON(raw)
		}
	}
	return ev
}
