package chat

import (
	"context"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/meetapp/meet-backend/internal/app"
	"github.com/meetapp/meet-backend/internal/db"
	"github.com/meetapp/meet-backend/internal/repository"
)

// messageNotificationText is attached to the receiver's notification when a
// message lands.
const messageNotificationText = "Vous avez reçu un nouveau message"

// Service owns the ephemeral message lifecycle.
type Service struct {
	appCtx        *app.AppContext
	users         *repository.UserRepository
	likes         *repository.LikeRepository
	messages      *repository.MessageRepository
	notifications *repository.NotificationRepository
}

// ConversationEntry is one row of the conversations overview.
type ConversationEntry struct {
	User        db.User
	LastMessage *db.Message
}

// NewService creates the chat service with dependencies from AppContext.
func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:        appCtx,
		users:         repository.NewUserRepository(appCtx.DB),
		likes:         repository.NewLikeRepository(appCtx.DB),
		messages:      repository.NewMessageRepository(appCtx.DB),
		notifications: repository.NewNotificationRepository(appCtx.DB),
	}
}

// SendMessage delivers content from sender to receiver.
//
// The precondition is raw mutual-Like existence, not the matches table; the
// two can diverge after a one-sided unlike (match row still present, check
// fails). That divergence is inherited behavior and kept on purpose. When
// the precondition fails the result is (nil, nil) — a business rejection,
// not an error. The message and the receiver's notification commit together.
func (s *Service) SendMessage(ctx context.Context, senderID, receiverID uint64, content string) (*db.Message, error) {
	forward, err := s.likes.Exists(ctx, senderID, receiverID)
	if err != nil {
		return nil, err
	}
	reverse, err := s.likes.Exists(ctx, receiverID, senderID)
	if err != nil {
		return nil, err
	}
	if !forward || !reverse {
		return nil, nil
	}

	var msg *db.Message
	now := time.Now()
	err = s.appCtx.DB.Transaction(func(tx *gorm.DB) error {
		m, err := s.messages.WithTx(tx).Create(
			ctx, senderID, receiverID, content,
			now.Add(time.Duration(s.appCtx.Config.TTL.MessageHours)*time.Hour),
		)
		if err != nil {
			return err
		}
		msg = m

		_, err = s.notifications.WithTx(tx).Create(
			ctx, receiverID, messageNotificationText, db.NotificationKindMessage,
			now.Add(time.Duration(s.appCtx.Config.TTL.NotificationHours)*time.Hour),
		)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.appCtx.Logger.Info("message sent", "sender", senderID, "receiver", receiverID)
	return msg, nil
}

// Conversation returns the live messages between the user and other, oldest
// first. Expired rows are filtered out even before the sweep runs.
func (s *Service) Conversation(ctx context.Context, userID, otherID uint64) ([]db.Message, error) {
	return s.messages.Conversation(ctx, userID, otherID, time.Now())
}

// Conversations returns the user's conversation partners with the latest
// live message each, most recent conversation first.
func (s *Service) Conversations(ctx context.Context, userID uint64) ([]ConversationEntry, error) {
	now := time.Now()
	partnerIDs, err := s.messages.PartnerIDs(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	usersByID, err := s.users.ByIDs(ctx, partnerIDs)
	if err != nil {
		return nil, err
	}

	entries := make([]ConversationEntry, 0, len(partnerIDs))
	for _, id := range partnerIDs {
		other, ok := usersByID[id]
		if !ok {
			continue
		}
		last, err := s.messages.LastBetween(ctx, userID, id, now)
		if err != nil {
			return nil, err
		}
		entries = append(entries, ConversationEntry{User: other, LastMessage: last})
	}

	// most recent exchange first
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i].LastMessage, entries[j].LastMessage
		if a == nil {
			return false
		}
		if b == nil {
			return true
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	return entries, nil
}

// CleanupExpiredMessages bulk-deletes messages past their expiry. Idempotent
// and safe to invoke concurrently; shared by the scheduler and the admin
// cleanup endpoint.
func (s *Service) CleanupExpiredMessages(ctx context.Context) (int64, error) {
	deleted, err := s.messages.DeleteExpired(ctx, time.Now())
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		s.appCtx.Logger.Info("expired messages purged", "count", deleted)
	}
	return deleted, nil
}
