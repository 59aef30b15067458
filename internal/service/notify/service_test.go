package notify_test

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
	"github.com/meetapp/meet-backend/internal/service/notify"
)

func setupService(t *testing.T) (*notify.Service, *app.AppContext) {
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

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(func() { mr.Close() })

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()

	redisCache := cache.NewRedisCache(cfg)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	appCtx := app.New(dbase, redisCache, logger, cfg)
	return notify.NewService(appCtx), appCtx
}

func TestListFiltersExpiredAndOtherUsers(t *testing.T) {
	ctx := context.Background()
	svc, appCtx := setupService(t)

	repo := repository.NewNotificationRepository(appCtx.DB)
	now := time.Now()
	_, err := repo.Create(ctx, 1, "vivante", db.NotificationKindLike, now.Add(time.Hour))
	require.NoError(t, err)
	_, err = repo.Create(ctx, 1, "expirée", db.NotificationKindLike, now.Add(-time.Hour))
	require.NoError(t, err)
	_, err = repo.Create(ctx, 2, "autre utilisateur", db.NotificationKindLike, now.Add(time.Hour))
	require.NoError(t, err)

	notifications, err := svc.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, "vivante", notifications[0].Message)
}

func TestAcknowledgeOwnerOnly(t *testing.T) {
	ctx := context.Background()
	svc, appCtx := setupService(t)

	repo := repository.NewNotificationRepository(appCtx.DB)
	n, err := repo.Create(ctx, 1, "à lire", db.NotificationKindMatch, time.Now().Add(time.Hour))
	require.NoError(t, err)

	// wrong owner cannot acknowledge
	removed, err := svc.Acknowledge(ctx, n.ID, 2)
	require.NoError(t, err)
	assert.False(t, removed)

	removed, err = svc.Acknowledge(ctx, n.ID, 1)
	require.NoError(t, err)
	assert.True(t, removed)

	// acknowledging again reports nothing removed
	removed, err = svc.Acknowledge(ctx, n.ID, 1)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestCleanupExpiredNotifications(t *testing.T) {
	ctx := context.Background()
	svc, appCtx := setupService(t)

	repo := repository.NewNotificationRepository(appCtx.DB)
	now := time.Now()
	_, err := repo.Create(ctx, 1, "vivante", db.NotificationKindMessage, now.Add(time.Hour))
	require.NoError(t, err)
	_, err = repo.Create(ctx, 1, "morte", db.NotificationKindMessage, now.Add(-time.Hour))
	require.NoError(t, err)

	deleted, err := svc.CleanupExpiredNotifications(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	deleted, err = svc.CleanupExpiredNotifications(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted)
}
