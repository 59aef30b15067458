package notify

import (
	"context"
	"time"

	"github.com/meetapp/meet-backend/internal/app"
	"github.com/meetapp/meet-backend/internal/db"
	"github.com/meetapp/meet-backend/internal/repository"
)

// defaultListLimit caps the notifications returned per fetch.
const defaultListLimit = 10

// Service owns the transient notification lifecycle.
type Service struct {
	appCtx        *app.AppContext
	notifications *repository.NotificationRepository
}

func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:        appCtx,
		notifications: repository.NewNotificationRepository(appCtx.DB),
	}
}

// List returns the user's unexpired notifications, newest first.
func (s *Service) List(ctx context.Context, userID uint64) ([]db.Notification, error) {
	return s.notifications.ListActive(ctx, userID, time.Now(), defaultListLimit)
}

// Acknowledge deletes the notification if it belongs to the user. There is
// no read flag in this system; acknowledging is removal.
func (s *Service) Acknowledge(ctx context.Context, id, userID uint64) (bool, error) {
	return s.notifications.DeleteForOwner(ctx, id, userID)
}

// CleanupExpiredNotifications bulk-deletes notifications past their expiry.
// Idempotent; shared by the scheduler and the admin cleanup endpoint.
func (s *Service) CleanupExpiredNotifications(ctx context.Context) (int64, error) {
	deleted, err := s.notifications.DeleteExpired(ctx, time.Now())
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		s.appCtx.Logger.Info("expired notifications purged", "count", deleted)
	}
	return deleted, nil
}
