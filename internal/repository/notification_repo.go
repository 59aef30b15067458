package repository

import (
	"context"
	"time"

	"github.com/meetapp/meet-backend/internal/db"

	"gorm.io/gorm"
)

// NotificationRepository provides data access for the transient
// notifications table.
type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(database *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: database}
}

func (r *NotificationRepository) WithTx(tx *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: tx}
}

// Create inserts a notification of the given kind expiring at expiresAt.
// Called inside the like/match and send-message transactions.
func (r *NotificationRepository) Create(ctx context.Context, userID uint64, message, kind string, expiresAt time.Time) (*db.Notification, error) {
	n := db.Notification{
		UserID:    userID,
		Message:   message,
		Kind:      kind,
		ExpiresAt: expiresAt,
	}
	if err := r.db.WithContext(ctx).Create(&n).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

// ListActive returns the user's unexpired notifications, newest first.
func (r *NotificationRepository) ListActive(ctx context.Context, userID uint64, now time.Time, limit int) ([]db.Notification, error) {
	var notifications []db.Notification
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND expires_at > ?", userID, now).
		Order("created_at DESC").
		Limit(limit).
		Find(&notifications).Error
	return notifications, err
}

// DeleteForOwner removes the notification if it belongs to userID.
// Acknowledgement is deletion in this system; there is no read flag.
func (r *NotificationRepository) DeleteForOwner(ctx context.Context, id, userID uint64) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&db.Notification{})
	return res.RowsAffected > 0, res.Error
}

// DeleteAllForUser purges every notification of a user (admin cascade).
func (r *NotificationRepository) DeleteAllForUser(ctx context.Context, userID uint64) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&db.Notification{}).Error
}

// DeleteExpired bulk-deletes notifications whose expiry is strictly before
// now. Idempotent; returns the number deleted.
func (r *NotificationRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&db.Notification{})
	return res.RowsAffected, res.Error
}
