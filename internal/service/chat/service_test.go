package chat_test

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
	"github.com/meetapp/meet-backend/internal/service/chat"
)

func setupService(t *testing.T) (*chat.Service, *app.AppContext) {
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

	birth := time.Date(1995, 6, 1, 0, 0, 0, 0, time.UTC)
	users := []db.User{
		{ID: 1, Email: "u1@test.com", PasswordHash: "x", FirstName: "Alex", LastName: "A", BirthDate: birth, Gender: "homme", InterestedIn: "femmes", IsActive: true},
		{ID: 2, Email: "u2@test.com", PasswordHash: "x", FirstName: "Brigitte", LastName: "B", BirthDate: birth, Gender: "femme", InterestedIn: "hommes", IsActive: true},
		{ID: 3, Email: "u3@test.com", PasswordHash: "x", FirstName: "Claire", LastName: "C", BirthDate: birth, Gender: "femme", InterestedIn: "hommes", IsActive: true},
	}
	require.NoError(t, dbase.Create(&users).Error)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(func() { mr.Close() })

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()

	redisCache := cache.NewRedisCache(cfg)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	appCtx := app.New(dbase, redisCache, logger, cfg)
	return chat.NewService(appCtx), appCtx
}

// mutualLike inserts both directed likes between a and b.
func mutualLike(t *testing.T, appCtx *app.AppContext, a, b uint64) {
	t.Helper()
	likes := repository.NewLikeRepository(appCtx.DB)
	_, err := likes.Create(context.Background(), a, b)
	require.NoError(t, err)
	_, err = likes.Create(context.Background(), b, a)
	require.NoError(t, err)
}

func TestSendMessageRequiresMutualLike(t *testing.T) {
	ctx := context.Background()
	svc, appCtx := setupService(t)

	// no likes at all
	msg, err := svc.SendMessage(ctx, 1, 2, "bonjour")
	require.NoError(t, err)
	assert.Nil(t, msg)

	// one-sided like is not enough
	likes := repository.NewLikeRepository(appCtx.DB)
	_, err = likes.Create(ctx, 1, 2)
	require.NoError(t, err)

	msg, err = svc.SendMessage(ctx, 1, 2, "bonjour")
	require.NoError(t, err)
	assert.Nil(t, msg)
}

func TestSendMessageCreatesNotification(t *testing.T) {
	ctx := context.Background()
	svc, appCtx := setupService(t)
	mutualLike(t, appCtx, 1, 2)

	msg, err := svc.SendMessage(ctx, 1, 2, "bonjour")
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, uint64(1), msg.SenderID)
	assert.Equal(t, uint64(2), msg.ReceiverID)

	// expiry is 24h out by default
	assert.InDelta(t, 24*time.Hour, time.Until(msg.ExpiresAt), float64(time.Minute))

	var notifications []db.Notification
	require.NoError(t, appCtx.DB.Where("kind = ?", db.NotificationKindMessage).Find(&notifications).Error)
	require.Len(t, notifications, 1)
	assert.Equal(t, uint64(2), notifications[0].UserID)
}

func TestSendMessageFailsAfterUnlike(t *testing.T) {
	ctx := context.Background()
	svc, appCtx := setupService(t)
	mutualLike(t, appCtx, 1, 2)

	msg, err := svc.SendMessage(ctx, 1, 2, "avant")
	require.NoError(t, err)
	require.NotNil(t, msg)

	// receiver retracts their like; the pair is no longer mutual even though
	// any match row would still exist
	likes := repository.NewLikeRepository(appCtx.DB)
	removed, err := likes.Delete(ctx, 2, 1)
	require.NoError(t, err)
	require.True(t, removed)

	msg, err = svc.SendMessage(ctx, 1, 2, "après")
	require.NoError(t, err)
	assert.Nil(t, msg)
}

func TestConversationsOverview(t *testing.T) {
	ctx := context.Background()
	svc, appCtx := setupService(t)
	mutualLike(t, appCtx, 1, 2)
	mutualLike(t, appCtx, 1, 3)

	_, err := svc.SendMessage(ctx, 1, 2, "pour brigitte")
	require.NoError(t, err)
	later, err := svc.SendMessage(ctx, 3, 1, "pour alex")
	require.NoError(t, err)
	// make the second conversation strictly more recent
	require.NoError(t, appCtx.DB.Model(&db.Message{}).
		Where("id = ?", later.ID).
		Update("created_at", time.Now().Add(time.Minute)).Error)

	entries, err := svc.Conversations(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, uint64(3), entries[0].User.ID)
	assert.Equal(t, uint64(2), entries[1].User.ID)
	require.NotNil(t, entries[0].LastMessage)
	assert.Equal(t, "pour alex", entries[0].LastMessage.Content)
}

func TestCleanupExpiredMessages(t *testing.T) {
	ctx := context.Background()
	svc, appCtx := setupService(t)

	messages := repository.NewMessageRepository(appCtx.DB)
	now := time.Now()
	_, err := messages.Create(ctx, 1, 2, "vivant", now.Add(time.Hour))
	require.NoError(t, err)
	_, err = messages.Create(ctx, 1, 2, "mort", now.Add(-time.Hour))
	require.NoError(t, err)

	deleted, err := svc.CleanupExpiredMessages(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	deleted, err = svc.CleanupExpiredMessages(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted)
}
