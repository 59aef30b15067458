package repository

import (
	"context"
	"time"

	"github.com/meetapp/meet-backend/internal/db"

	"gorm.io/gorm"
)

// MessageRepository provides data access for the ephemeral messages table.
// Every read filters on expires_at: a message past its expiry is logically
// gone even if the sweep has not purged it yet.
type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(database *gorm.DB) *MessageRepository {
	return &MessageRepository{db: database}
}

func (r *MessageRepository) WithTx(tx *gorm.DB) *MessageRepository {
	return &MessageRepository{db: tx}
}

// Create inserts a message expiring at expiresAt.
func (r *MessageRepository) Create(ctx context.Context, senderID, receiverID uint64, content string, expiresAt time.Time) (*db.Message, error) {
	msg := db.Message{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		ExpiresAt:  expiresAt,
	}
	if err := r.db.WithContext(ctx).Create(&msg).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

// Conversation returns the unexpired messages between a and b, oldest first.
func (r *MessageRepository) Conversation(ctx context.Context, a, b uint64, now time.Time) ([]db.Message, error) {
	var messages []db.Message
	err := r.db.WithContext(ctx).
		Where("((sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)) AND expires_at > ?",
			a, b, b, a, now).
		Order("created_at ASC").
		Find(&messages).Error
	return messages, err
}

// LastBetween returns the most recent unexpired message between a and b, or
// nil when the pair has no live conversation.
func (r *MessageRepository) LastBetween(ctx context.Context, a, b uint64, now time.Time) (*db.Message, error) {
	var msg db.Message
	err := r.db.WithContext(ctx).
		Where("((sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)) AND expires_at > ?",
			a, b, b, a, now).
		Order("created_at DESC").
		First(&msg).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// PartnerIDs returns the distinct users the given user has exchanged
// unexpired messages with.
func (r *MessageRepository) PartnerIDs(ctx context.Context, userID uint64, now time.Time) ([]uint64, error) {
	var sent, received []uint64
	if err := r.db.WithContext(ctx).
		Model(&db.Message{}).
		Where("sender_id = ? AND expires_at > ?", userID, now).
		Distinct().
		Pluck("receiver_id", &sent).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).
		Model(&db.Message{}).
		Where("receiver_id = ? AND expires_at > ?", userID, now).
		Distinct().
		Pluck("sender_id", &received).Error; err != nil {
		return nil, err
	}

	seen := make(map[uint64]struct{}, len(sent)+len(received))
	var ids []uint64
	for _, id := range append(sent, received...) {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// DeleteBetween purges the full message history of the pair, both
// directions. Only the unmatch cascade and admin deletion call this.
func (r *MessageRepository) DeleteBetween(ctx context.Context, a, b uint64) error {
	return r.db.WithContext(ctx).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", a, b, b, a).
		Delete(&db.Message{}).Error
}

// DeleteExpired bulk-deletes messages whose expiry is strictly before now.
// Idempotent and safe to run concurrently; returns the number deleted.
func (r *MessageRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&db.Message{})
	return res.RowsAffected, res.Error
}
