package main

import (
	"context"
	"time"

	"github.com/joho/godotenv"

	"github.com/meetapp/meet-backend/internal/app"
	"github.com/meetapp/meet-backend/internal/cache"
	"github.com/meetapp/meet-backend/internal/config"
	"github.com/meetapp/meet-backend/internal/db"
	"github.com/meetapp/meet-backend/internal/logger"
	"github.com/meetapp/meet-backend/internal/scheduler"
	"github.com/meetapp/meet-backend/internal/server"
	"github.com/meetapp/meet-backend/internal/service/account"
	"github.com/meetapp/meet-backend/internal/service/admin"
	"github.com/meetapp/meet-backend/internal/service/chat"
	"github.com/meetapp/meet-backend/internal/service/discovery"
	"github.com/meetapp/meet-backend/internal/service/notify"
)

func main() {
	_ = godotenv.Load()

	cfg := config.New()
	logger.InitFromConfig(cfg)
	log := logger.L()

	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("database init failed", "err", err)
		return
	}
	if err := db.SeedDefaultInterests(database); err != nil {
		log.Error("interest seeding failed", "err", err)
		return
	}

	rdb := cache.NewRedisCache(cfg)
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := rdb.Ping(pingCtx); err != nil {
		log.Warn("redis unreachable, counters fall back to the database", "err", err)
	}
	cancel()

	appCtx := app.New(database, rdb, log, cfg)

	chatSvc := chat.NewService(appCtx)
	notifySvc := notify.NewService(appCtx)

	sched, err := scheduler.New(log)
	if err != nil {
		log.Error("scheduler init failed", "err", err)
		return
	}
	sweep := time.Duration(cfg.Cleanup.IntervalMinutes) * time.Minute
	if err := sched.AddInterval("expired-messages", sweep, func(ctx context.Context) error {
		_, err := chatSvc.CleanupExpiredMessages(ctx)
		return err
	}); err != nil {
		log.Error("job registration failed", "err", err)
		return
	}
	if err := sched.AddInterval("expired-notifications", sweep, func(ctx context.Context) error {
		_, err := notifySvc.CleanupExpiredNotifications(ctx)
		return err
	}); err != nil {
		log.Error("job registration failed", "err", err)
		return
	}
	sched.Start()
	defer func() {
		if err := sched.Shutdown(); err != nil {
			log.Warn("scheduler shutdown", "err", err)
		}
	}()

	rt := server.NewRouter(cfg)
	log.Info("starting http server", "host", cfg.HTTP.Host, "port", cfg.HTTP.Port, "env", cfg.App.ENV)
	if err := server.StartHTTPServer(cfg, rt,
		account.NewRegistrar(appCtx),
		discovery.NewRegistrar(appCtx),
		chat.NewRegistrar(appCtx),
		notify.NewRegistrar(appCtx),
		admin.NewRegistrar(appCtx),
	); err != nil {
		log.Error("server exited", "err", err)
	}
}
