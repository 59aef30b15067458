package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/meetapp/meet-backend/internal/db"
	"github.com/meetapp/meet-backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationFiltersExpired(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewMessageRepository(dbase)

	now := time.Now()
	_, err := repo.Create(ctx, 1, 2, "salut", now.Add(24*time.Hour))
	require.NoError(t, err)
	_, err = repo.Create(ctx, 2, 1, "coucou", now.Add(24*time.Hour))
	require.NoError(t, err)
	_, err = repo.Create(ctx, 1, 2, "vieux message", now.Add(-time.Hour))
	require.NoError(t, err)

	messages, err := repo.Conversation(ctx, 1, 2, now)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	// oldest first
	assert.Equal(t, "salut", messages[0].Content)
	assert.Equal(t, "coucou", messages[1].Content)
}

func TestLastBetween(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewMessageRepository(dbase)

	now := time.Now()

	last, err := repo.LastBetween(ctx, 1, 2, now)
	require.NoError(t, err)
	assert.Nil(t, last)

	_, err = repo.Create(ctx, 1, 2, "premier", now.Add(24*time.Hour))
	require.NoError(t, err)
	// force a later timestamp for deterministic ordering
	msg2, err := repo.Create(ctx, 2, 1, "dernier", now.Add(24*time.Hour))
	require.NoError(t, err)
	require.NoError(t, dbase.Model(&db.Message{}).
		Where("id = ?", msg2.ID).
		Update("created_at", now.Add(time.Minute)).Error)

	last, err = repo.LastBetween(ctx, 1, 2, now)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, "dernier", last.Content)
}

func TestPartnerIDs(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewMessageRepository(dbase)

	now := time.Now()
	_, err := repo.Create(ctx, 1, 2, "a", now.Add(time.Hour))
	require.NoError(t, err)
	_, err = repo.Create(ctx, 3, 1, "b", now.Add(time.Hour))
	require.NoError(t, err)
	_, err = repo.Create(ctx, 2, 1, "c", now.Add(time.Hour)) // same partner twice
	require.NoError(t, err)
	_, err = repo.Create(ctx, 4, 1, "expiré", now.Add(-time.Hour))
	require.NoError(t, err)

	ids, err := repo.PartnerIDs(ctx, 1, now)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint64{2, 3}, ids)
}

func TestDeleteExpired(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewMessageRepository(dbase)

	now := time.Now()
	_, err := repo.Create(ctx, 1, 2, "vivant", now.Add(time.Hour))
	require.NoError(t, err)
	_, err = repo.Create(ctx, 1, 2, "mort", now.Add(-time.Hour))
	require.NoError(t, err)

	deleted, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	// second sweep finds nothing
	deleted, err = repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted)

	var count int64
	dbase.Model(&db.Message{}).Count(&count)
	assert.Equal(t, int64(1), count)
}
