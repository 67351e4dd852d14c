package postgres_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/dom/tps-identity/internal/domain"
	"github.com/dom/tps-identity/internal/repository/postgres"
	"github.com/dom/tps-identity/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditRepository_CreateAndList(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewAuditRepository(testDB.DB)
	ctx := context.Background()

	subject := uuid.New()
	other := uuid.New()
	base := time.Now().UTC().Truncate(time.Microsecond)

	events := []domain.AuditEvent{
		domain.NewAuditEvent(domain.AuditUserRegistered, nil, &subject, nil),
		domain.NewAuditEvent(domain.AuditRoleChanged, &other, &subject, map[string]any{"is_admin": true}),
		domain.NewAuditEvent(domain.AuditUserRegistered, nil, &other, nil),
	}
	for i := range events {
		events[i].CreatedAt = base.Add(time.Duration(i) * time.Second)
		require.NoError(t, repo.Create(ctx, &events[i]))
	}

	t.Run("recent is newest first", func(t *testing.T) {
		got, err := repo.ListRecent(ctx, 2)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, events[2].ID, got[0].ID)
		assert.Equal(t, events[1].ID, got[1].ID)
	})

	t.Run("by subject", func(t *testing.T) {
		got, err := repo.ListBySubject(ctx, subject, 10)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, domain.AuditRoleChanged, got[0].Type)

		var details map[string]any
		require.NoError(t, json.Unmarshal(got[0].Details, &details))
		assert.Equal(t, true, details["is_admin"])
		require.NotNil(t, got[0].ActorID)
		assert.Equal(t, other, *got[0].ActorID)
	})

	t.Run("unknown subject", func(t *testing.T) {
		got, err := repo.ListBySubject(ctx, uuid.New(), 10)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestPing(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	assert.NoError(t, postgres.Ping(context.Background(), testDB.DB))
}
