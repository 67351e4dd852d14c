package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/dom/tps-identity/internal/domain"
	"github.com/dom/tps-identity/internal/repository"
	"github.com/dom/tps-identity/internal/repository/postgres"
	"github.com/dom/tps-identity/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUser(email string) *domain.User {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         "Test User",
		PasswordHash: "$argon2id$v=19$m=1024,t=1,p=1$c2FsdA$aGFzaA",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestUserRepository_Save(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewUserRepository(testDB.DB)
	ctx := context.Background()

	tests := []struct {
		name    string
		user    *domain.User
		wantErr bool
	}{
		{
			name:    "successful creation",
			user:    newUser("first@example.com"),
			wantErr: false,
		},
		{
			name:    "duplicate email under a new id",
			user:    newUser("first@example.com"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repo.Save(ctx, tt.user)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestUserRepository_SaveUpserts(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewUserRepository(testDB.DB)
	ctx := context.Background()

	user := newUser("before@example.com")
	require.NoError(t, repo.Save(ctx, user))

	user.Email = "after@example.com"
	user.Name = "Renamed"
	user.IsAdmin = true
	user.UpdatedAt = user.UpdatedAt.Add(time.Minute)
	require.NoError(t, repo.Save(ctx, user))

	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "after@example.com", got.Email)
	assert.Equal(t, "Renamed", got.Name)
	assert.True(t, got.IsAdmin)

	_, err = repo.GetByEmail(ctx, "before@example.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	user.IsAdmin = false
	require.NoError(t, repo.Save(ctx, user))
	got, err = repo.GetByEmail(ctx, "after@example.com")
	require.NoError(t, err)
	assert.False(t, got.IsAdmin)
}

func TestUserRepository_GetByID(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewUserRepository(testDB.DB)
	ctx := context.Background()

	user := newUser("lookup@example.com")
	require.NoError(t, repo.Save(ctx, user))

	tests := []struct {
		name    string
		id      uuid.UUID
		wantErr error
	}{
		{name: "existing user", id: user.ID},
		{name: "missing user", id: uuid.New(), wantErr: repository.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.GetByID(ctx, tt.id)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, user.Email, got.Email)
			assert.Equal(t, user.PasswordHash, got.PasswordHash)
		})
	}
}

func TestUserRepository_DeleteAndList(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewUserRepository(testDB.DB)
	ctx := context.Background()

	a := newUser("a@example.com")
	b := newUser("b@example.com")
	b.CreatedAt = a.CreatedAt.Add(time.Second)
	require.NoError(t, repo.Save(ctx, b))
	require.NoError(t, repo.Save(ctx, a))

	users, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, a.ID, users[0].ID)
	assert.Equal(t, b.ID, users[1].ID)

	require.NoError(t, repo.Delete(ctx, a.ID))
	require.NoError(t, repo.Delete(ctx, a.ID), "deleting twice is not an error")

	users, err = repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, b.ID, users[0].ID)
}
