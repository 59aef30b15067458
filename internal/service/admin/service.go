package admin

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/meetapp/meet-backend/internal/app"
	"github.com/meetapp/meet-backend/internal/db"
	apperrors "github.com/meetapp/meet-backend/internal/errors"
	"github.com/meetapp/meet-backend/internal/repository"
)

// staleLikeAge is how old a one-sided like must be before the cleanup
// sweep discards it.
const staleLikeAge = 30 * 24 * time.Hour

// Service backs the moderation panel. Every caller has already passed the
// admin gate at the routing layer.
type Service struct {
	appCtx        *app.AppContext
	admin         *repository.AdminRepository
	users         *repository.UserRepository
	messages      *repository.MessageRepository
	notifications *repository.NotificationRepository
}

func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:        appCtx,
		admin:         repository.NewAdminRepository(appCtx.DB),
		users:         repository.NewUserRepository(appCtx.DB),
		messages:      repository.NewMessageRepository(appCtx.DB),
		notifications: repository.NewNotificationRepository(appCtx.DB),
	}
}

// DashboardStats is the headline block of the admin landing page.
type DashboardStats struct {
	TotalUsers          int64
	ActiveUsers         int64
	TotalMatches        int64
	TotalLikes          int64
	LiveMessages        int64
	NewUsers7d          int64
	NewMatches24h       int64
	Messages24h         int64
	ActiveConversations int64
	ActivityRate        float64
}

func (s *Service) Dashboard(ctx context.Context) (*DashboardStats, error) {
	now := time.Now()

	totals, err := s.admin.Totals(ctx, now)
	if err != nil {
		return nil, err
	}
	newUsers, err := s.admin.CountSince(ctx, &db.User{}, now.Add(-7*24*time.Hour))
	if err != nil {
		return nil, err
	}
	newMatches, err := s.admin.CountSince(ctx, &db.Match{}, now.Add(-24*time.Hour))
	if err != nil {
		return nil, err
	}
	newMessages, err := s.admin.CountSince(ctx, &db.Message{}, now.Add(-24*time.Hour))
	if err != nil {
		return nil, err
	}
	conversations, err := s.admin.ActiveConversations(ctx, now)
	if err != nil {
		return nil, err
	}

	stats := &DashboardStats{
		TotalUsers:          totals.Users,
		ActiveUsers:         totals.Active,
		TotalMatches:        totals.Matches,
		TotalLikes:          totals.Likes,
		LiveMessages:        totals.Messages,
		NewUsers7d:          newUsers,
		NewMatches24h:       newMatches,
		Messages24h:         newMessages,
		ActiveConversations: conversations,
	}
	if totals.Users > 0 {
		stats.ActivityRate = float64(totals.Active) / float64(totals.Users) * 100
	}
	return stats, nil
}

// ActivityStats holds one creation-date histogram per aggregate.
type ActivityStats struct {
	Users    []repository.DayCount
	Likes    []repository.DayCount
	Matches  []repository.DayCount
	Messages []repository.DayCount
}

// Activity buckets signups, likes, matches and messages per day over the
// trailing window.
func (s *Service) Activity(ctx context.Context, days int) (*ActivityStats, error) {
	if days < 1 || days > 365 {
		days = 30
	}
	since := time.Now().AddDate(0, 0, -days)

	var stats ActivityStats
	var err error
	if stats.Users, err = s.admin.DailyCounts(ctx, &db.User{}, since); err != nil {
		return nil, err
	}
	if stats.Likes, err = s.admin.DailyCounts(ctx, &db.Like{}, since); err != nil {
		return nil, err
	}
	if stats.Matches, err = s.admin.DailyCounts(ctx, &db.Match{}, since); err != nil {
		return nil, err
	}
	if stats.Messages, err = s.admin.DailyCounts(ctx, &db.Message{}, since); err != nil {
		return nil, err
	}
	return &stats, nil
}

// TopEntry is one line of a ranking, the user resolved.
type TopEntry struct {
	User  db.User
	Count int64
}

// TopUsers ranks users on one metric: "matches", "likes_received" or
// "messages_sent".
func (s *Service) TopUsers(ctx context.Context, metric string, limit int) ([]TopEntry, error) {
	if limit < 1 || limit > 50 {
		limit = 10
	}

	var ranked []repository.RankedUser
	var err error
	switch metric {
	case "matches":
		ranked, err = s.admin.TopByMatches(ctx, limit)
	case "likes_received":
		ranked, err = s.admin.TopByLikesReceived(ctx, limit)
	case "messages_sent":
		ranked, err = s.admin.TopByMessagesSent(ctx, limit)
	default:
		return nil, apperrors.Validation("métrique inconnue")
	}
	if err != nil {
		return nil, err
	}

	ids := make([]uint64, 0, len(ranked))
	for _, r := range ranked {
		ids = append(ids, r.UserID)
	}
	usersByID, err := s.users.ByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	entries := make([]TopEntry, 0, len(ranked))
	for _, r := range ranked {
		user, ok := usersByID[r.UserID]
		if !ok {
			continue
		}
		entries = append(entries, TopEntry{User: user, Count: r.Count})
	}
	return entries, nil
}

// Users returns one page of the user listing plus the filtered total.
func (s *Service) Users(ctx context.Context, f repository.UserListFilters) ([]db.User, int64, error) {
	return s.admin.ListUsers(ctx, f)
}

// UserDetails bundles a user with its activity counters.
type UserDetails struct {
	User  *db.User
	Stats *repository.UserStats
}

func (s *Service) UserDetails(ctx context.Context, id uint64) (*UserDetails, error) {
	user, err := s.users.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	stats, err := s.admin.UserStats(ctx, id)
	if err != nil {
		return nil, err
	}
	return &UserDetails{User: user, Stats: stats}, nil
}

// ToggleUserStatus flips the soft-disable flag and returns the new state.
// Admins cannot disable themselves; locking the last admin out through the
// panel is the one mistake this guards against.
func (s *Service) ToggleUserStatus(ctx context.Context, adminID, targetID uint64) (bool, error) {
	if adminID == targetID {
		return false, apperrors.Forbidden("Vous ne pouvez pas désactiver votre propre compte")
	}

	user, err := s.users.ByID(ctx, targetID)
	if err != nil {
		return false, err
	}
	next := !user.IsActive
	if err := s.users.SetActive(ctx, targetID, next); err != nil {
		return false, err
	}
	s.appCtx.Logger.Info("user status toggled", "admin", adminID, "user", targetID, "active", next)
	return next, nil
}

// DeleteUser removes the user and all dependent rows in one transaction,
// then drops the cached like counter.
func (s *Service) DeleteUser(ctx context.Context, adminID, targetID uint64) error {
	if adminID == targetID {
		return apperrors.Forbidden("Vous ne pouvez pas supprimer votre propre compte")
	}
	if _, err := s.users.ByID(ctx, targetID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound("Utilisateur non trouvé")
		}
		return err
	}

	err := s.appCtx.DB.Transaction(func(tx *gorm.DB) error {
		return s.admin.WithTx(tx).PurgeUser(ctx, targetID)
	})
	if err != nil {
		return err
	}

	if err := s.appCtx.RedisCache.Del(ctx, s.appCtx.RedisCache.KeyForLikeCount(targetID)); err != nil {
		s.appCtx.Logger.Warn("failed to drop like counter", "user", targetID, "err", err)
	}
	s.appCtx.Logger.Info("user deleted", "admin", adminID, "user", targetID)
	return nil
}

// CleanupReport tallies one manual maintenance sweep.
type CleanupReport struct {
	Messages      int64
	Notifications int64
	StaleLikes    int64
}

// Cleanup runs the same sweeps the scheduler runs, plus the stale
// one-sided like purge, and reports what was removed.
func (s *Service) Cleanup(ctx context.Context) (*CleanupReport, error) {
	now := time.Now()
	var report CleanupReport
	var err error

	if report.Messages, err = s.messages.DeleteExpired(ctx, now); err != nil {
		return nil, err
	}
	if report.Notifications, err = s.notifications.DeleteExpired(ctx, now); err != nil {
		return nil, err
	}
	if report.StaleLikes, err = s.admin.DeleteLikesBefore(ctx, now.Add(-staleLikeAge)); err != nil {
		return nil, err
	}

	s.appCtx.Logger.Info("manual cleanup",
		"messages", report.Messages,
		"notifications", report.Notifications,
		"stale_likes", report.StaleLikes,
	)
	return &report, nil
}

// Export loads the full dataset for the dump endpoint.
func (s *Service) Export(ctx context.Context) (*repository.Export, error) {
	return s.admin.ExportAll(ctx)
}
