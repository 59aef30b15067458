package discovery_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/meetapp/meet-backend/internal/app"
	"github.com/meetapp/meet-backend/internal/cache"
	"github.com/meetapp/meet-backend/internal/config"
	"github.com/meetapp/meet-backend/internal/db"
	"github.com/meetapp/meet-backend/internal/repository"
	"github.com/meetapp/meet-backend/internal/service/discovery"
)

// seedUsers wipes the tables and inserts a deterministic dataset:
//
//   - user 1: homme, interested in "Femmes" (unnormalized plural on purpose)
//   - user 2: femme, active
//   - user 3: femme, active
//   - user 4: femme, deactivated
//   - user 5: homme, active (wrong gender for user 1)
func seedUsers(t *testing.T, gdb *gorm.DB) {
	t.Helper()

	require.NoError(t, gdb.Exec("DELETE FROM likes").Error)
	require.NoError(t, gdb.Exec("DELETE FROM matches").Error)
	require.NoError(t, gdb.Exec("DELETE FROM users").Error)

	birth := time.Date(1995, 6, 1, 0, 0, 0, 0, time.UTC)
	users := []db.User{
		{ID: 1, Email: "u1@test.com", PasswordHash: "x", FirstName: "Alex", LastName: "A", BirthDate: birth, Gender: "homme", InterestedIn: "Femmes", City: "Paris", IsActive: true},
		{ID: 2, Email: "u2@test.com", PasswordHash: "x", FirstName: "Brigitte", LastName: "B", BirthDate: birth, Gender: "femme", InterestedIn: "hommes", City: "Paris", IsActive: true},
		{ID: 3, Email: "u3@test.com", PasswordHash: "x", FirstName: "Claire", LastName: "C", BirthDate: birth, Gender: "femme", InterestedIn: "hommes", City: "Lyon", IsActive: true},
		{ID: 4, Email: "u4@test.com", PasswordHash: "x", FirstName: "Diane", LastName: "D", BirthDate: birth, Gender: "femme", InterestedIn: "hommes", City: "Paris", IsActive: false},
		{ID: 5, Email: "u5@test.com", PasswordHash: "x", FirstName: "Eric", LastName: "E", BirthDate: birth, Gender: "homme", InterestedIn: "femmes", City: "Paris", IsActive: true},
	}
	require.NoError(t, gdb.Create(&users).Error)
}

// setupService spins up an isolated in-memory SQLite DB plus a miniredis and
// wires them into a discovery service.
func setupService(t *testing.T) (*discovery.Service, *app.AppContext) {
	t.Helper()

	dbName := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	dbase, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{
		NowFunc:                func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	sqlDB, err := dbase.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(dbase))
	seedUsers(t, dbase)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(func() { mr.Close() })

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()

	redisCache := cache.NewRedisCache(cfg)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	appCtx := app.New(dbase, redisCache, logger, cfg)
	return discovery.NewService(appCtx), appCtx
}

func TestLikeThenMutualPromotesMatch(t *testing.T) {
	ctx := context.Background()
	svc, appCtx := setupService(t)

	like, isMatch, err := svc.Like(ctx, 1, 2)
	require.NoError(t, err)
	require.NotNil(t, like)
	assert.False(t, isMatch)

	like, isMatch, err = svc.Like(ctx, 2, 1)
	require.NoError(t, err)
	require.NotNil(t, like)
	assert.True(t, isMatch)

	// exactly one canonical match row
	var matches []db.Match
	require.NoError(t, appCtx.DB.Find(&matches).Error)
	require.Len(t, matches, 1)
	assert.Equal(t, uint64(1), matches[0].User1ID)
	assert.Equal(t, uint64(2), matches[0].User2ID)

	// both participants got a match notification
	var notifications []db.Notification
	require.NoError(t, appCtx.DB.Where("kind = ?", db.NotificationKindMatch).Find(&notifications).Error)
	require.Len(t, notifications, 2)
	assert.ElementsMatch(t, []uint64{1, 2}, []uint64{notifications[0].UserID, notifications[1].UserID})
}

func TestDuplicateLikeIsSilentNoOp(t *testing.T) {
	ctx := context.Background()
	svc, appCtx := setupService(t)

	_, _, err := svc.Like(ctx, 1, 2)
	require.NoError(t, err)

	like, isMatch, err := svc.Like(ctx, 1, 2)
	require.NoError(t, err)
	assert.Nil(t, like)
	assert.False(t, isMatch)

	var count int64
	appCtx.DB.Model(&db.Like{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestUnlikeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	_, _, err := svc.Like(ctx, 1, 2)
	require.NoError(t, err)

	removed, err := svc.Unlike(ctx, 1, 2)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = svc.Unlike(ctx, 1, 2)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestUnmatchCascade(t *testing.T) {
	ctx := context.Background()
	svc, appCtx := setupService(t)

	_, _, err := svc.Like(ctx, 1, 2)
	require.NoError(t, err)
	_, _, err = svc.Like(ctx, 2, 1)
	require.NoError(t, err)

	messages := repository.NewMessageRepository(appCtx.DB)
	_, err = messages.Create(ctx, 1, 2, "bonjour", time.Now().Add(24*time.Hour))
	require.NoError(t, err)
	// an unrelated conversation must survive
	_, err = messages.Create(ctx, 1, 3, "autre", time.Now().Add(24*time.Hour))
	require.NoError(t, err)

	require.NoError(t, svc.Unmatch(ctx, 1, 2))

	var likeCount, matchCount, msgCount int64
	appCtx.DB.Model(&db.Like{}).Count(&likeCount)
	appCtx.DB.Model(&db.Match{}).Count(&matchCount)
	appCtx.DB.Model(&db.Message{}).Count(&msgCount)
	assert.Equal(t, int64(0), likeCount)
	assert.Equal(t, int64(0), matchCount)
	assert.Equal(t, int64(1), msgCount)
}

func TestSuggestionsNormalizeGenderAndExcludeLiked(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	// "Femmes" on user 1 must normalize to "femme": users 2 and 3 qualify,
	// user 4 is inactive, user 5 is the wrong gender.
	users, err := svc.Suggestions(ctx, 1, repository.SuggestionFilters{})
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, uint64(2), users[0].ID)
	assert.Equal(t, uint64(3), users[1].ID)

	// once liked, user 2 drops out
	_, _, err = svc.Like(ctx, 1, 2)
	require.NoError(t, err)

	users, err = svc.Suggestions(ctx, 1, repository.SuggestionFilters{})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, uint64(3), users[0].ID)
}

func TestSuggestionsCityFilter(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	users, err := svc.Suggestions(ctx, 1, repository.SuggestionFilters{City: "lyon"})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, uint64(3), users[0].ID)
}

func TestReceivedLikesFlagMatches(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	_, _, err := svc.Like(ctx, 2, 1)
	require.NoError(t, err)
	_, _, err = svc.Like(ctx, 3, 1)
	require.NoError(t, err)
	_, _, err = svc.Like(ctx, 1, 2) // mutual with user 2
	require.NoError(t, err)

	entries, next, err := svc.ReceivedLikes(ctx, 1, nil, 10)
	require.NoError(t, err)
	assert.Nil(t, next)
	require.Len(t, entries, 2)

	byUser := map[uint64]bool{}
	for _, e := range entries {
		byUser[e.User.ID] = e.IsMatch
	}
	assert.True(t, byUser[2])
	assert.False(t, byUser[3])
}

func TestReceivedCountCacheFirst(t *testing.T) {
	ctx := context.Background()
	svc, appCtx := setupService(t)

	likes := repository.NewLikeRepository(appCtx.DB)
	_, err := likes.Create(ctx, 2, 1)
	require.NoError(t, err)
	_, err = likes.Create(ctx, 3, 1)
	require.NoError(t, err)

	// first call goes to the DB and primes the cache
	count, err := svc.ReceivedCount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	// a direct insert bypassing the service is invisible while cached
	_, err = likes.Create(ctx, 5, 1)
	require.NoError(t, err)

	count, err = svc.ReceivedCount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
