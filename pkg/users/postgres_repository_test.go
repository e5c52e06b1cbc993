package users

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestDatabase(t *testing.T) (*pgxpool.Pool, func()) {
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	ctx := context.Background()

	dbName := "ldap_sync_db"
	dbUser := "ldap_sync"
	dbPassword := "pwd"

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithInitScripts(filepath.Join("../../migrations", "ldap_sync_db.sql")),
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)

	connString, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	poolConfig, err := pgxpool.ParseConfig(connString)
	require.NoError(t, err)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	require.NoError(t, err)

	cleanup := func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return pool, cleanup
}

func TestPostgresUserRepository(t *testing.T) {
	pool, cleanup := setupTestDatabase(t)
	defer cleanup()

	repo, err := NewPostgresUserRepository(pool)
	require.NoError(t, err)

	ctx := context.Background()
	guid := uuid.New()

	created, err := repo.Create(ctx, User{
		ObjectGUID:  guid,
		Username:    "jdoe",
		Domain:      "EXAMPLE",
		Email:       "jdoe@example.com",
		DisplayName: "John Doe",
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, guid, created.ObjectGUID)
	assert.Nil(t, created.DeletedAt)

	t.Run("find by guid and username", func(t *testing.T) {
		byGUID, err := repo.FindByObjectGUID(ctx, guid)
		require.NoError(t, err)
		assert.Equal(t, created.ID, byGUID.ID)

		byUsername, err := repo.FindByUsername(ctx, "JDOE")
		require.NoError(t, err)
		assert.Equal(t, created.ID, byUsername.ID)

		_, err = repo.FindByObjectGUID(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("update", func(t *testing.T) {
		created.Email = "john.doe@example.com"
		updated, err := repo.Update(ctx, created)
		require.NoError(t, err)
		assert.Equal(t, "john.doe@example.com", updated.Email)
	})

	t.Run("soft delete and restore", func(t *testing.T) {
		deleted, err := repo.SoftDelete(ctx, created.ID)
		require.NoError(t, err)
		assert.True(t, deleted.IsDeleted())

		all, err := repo.FindAll(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)

		restored, err := repo.Restore(ctx, created.ID)
		require.NoError(t, err)
		assert.False(t, restored.IsDeleted())
	})

	t.Run("record without directory identifier", func(t *testing.T) {
		local, err := repo.Create(ctx, User{Username: "local-admin"})
		require.NoError(t, err)
		assert.Equal(t, uuid.Nil, local.ObjectGUID)

		_, err = repo.FindByObjectGUID(ctx, uuid.Nil)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}
