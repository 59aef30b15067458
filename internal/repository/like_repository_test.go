package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/meetapp/meet-backend/internal/db"
	"github.com/meetapp/meet-backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setup in-memory DB
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := database.AutoMigrate(&db.Like{}, &db.Match{}, &db.Message{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return database
}

func TestCreateAndExists(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewLikeRepository(dbase)

	like, err := repo.Create(ctx, 1, 2)
	require.NoError(t, err)
	assert.NotZero(t, like.ID)

	exists, err := repo.Exists(ctx, 1, 2)
	require.NoError(t, err)
	assert.True(t, exists)

	// reverse direction is a separate edge
	exists, err = repo.Exists(ctx, 2, 1)
	require.NoError(t, err)
	assert.False(t, exists)

	// duplicate insert hits the unique constraint
	_, err = repo.Create(ctx, 1, 2)
	assert.Error(t, err)
}

func TestCreateMatchCanonicalOrder(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewLikeRepository(dbase)

	// insert with arguments reversed; the stored row must be (2, 7)
	require.NoError(t, repo.CreateMatch(ctx, 7, 2))

	var m db.Match
	require.NoError(t, dbase.First(&m).Error)
	assert.Equal(t, uint64(2), m.User1ID)
	assert.Equal(t, uint64(7), m.User2ID)

	// same pair again in either order is a no-op, not an error
	require.NoError(t, repo.CreateMatch(ctx, 2, 7))

	var count int64
	dbase.Model(&db.Match{}).Count(&count)
	assert.Equal(t, int64(1), count)

	exists, err := repo.MatchExists(ctx, 7, 2)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestDeleteIdempotent(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewLikeRepository(dbase)

	_, err := repo.Create(ctx, 1, 2)
	require.NoError(t, err)

	removed, err := repo.Delete(ctx, 1, 2)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repo.Delete(ctx, 1, 2)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestDeletePairRemovesBothDirections(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewLikeRepository(dbase)

	_, err := repo.Create(ctx, 1, 2)
	require.NoError(t, err)
	_, err = repo.Create(ctx, 2, 1)
	require.NoError(t, err)
	_, err = repo.Create(ctx, 1, 3) // unrelated edge survives
	require.NoError(t, err)

	require.NoError(t, repo.DeletePair(ctx, 1, 2))

	var count int64
	dbase.Model(&db.Like{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestReceivedPagination(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewLikeRepository(dbase)

	for liker := uint64(1); liker <= 5; liker++ {
		_, err := repo.Create(ctx, liker, 99)
		require.NoError(t, err)
	}

	var (
		token *string
		seen  []uint64
		pages int
	)
	for {
		likes, next, err := repo.Received(ctx, 99, token, 2)
		require.NoError(t, err)
		for _, l := range likes {
			seen = append(seen, l.LikerID)
		}
		pages++
		if next == nil {
			break
		}
		token = next
	}

	assert.Equal(t, 3, pages)
	assert.Len(t, seen, 5)

	// no duplicates across pages
	unique := make(map[uint64]struct{}, len(seen))
	for _, id := range seen {
		unique[id] = struct{}{}
	}
	assert.Len(t, unique, 5)
}

func TestCountReceived(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewLikeRepository(dbase)

	_, err := repo.Create(ctx, 1, 99)
	require.NoError(t, err)
	_, err = repo.Create(ctx, 2, 99)
	require.NoError(t, err)
	_, err = repo.Create(ctx, 99, 1) // outgoing, must not count
	require.NoError(t, err)

	count, err := repo.CountReceived(ctx, 99)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
