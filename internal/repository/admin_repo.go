package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/meetapp/meet-backend/internal/db"
)

// AdminRepository groups the cross-aggregate queries behind the admin
// panel: counters, histograms, rankings and the destructive maintenance
// paths. It deliberately reaches across tables the other repositories
// keep to themselves.
type AdminRepository struct {
	database *gorm.DB
}

func NewAdminRepository(database *gorm.DB) *AdminRepository {
	return &AdminRepository{database: database}
}

func (r *AdminRepository) WithTx(tx *gorm.DB) *AdminRepository {
	return &AdminRepository{database: tx}
}

// Totals is the headline counter block of the dashboard.
type Totals struct {
	Users    int64
	Active   int64
	Matches  int64
	Likes    int64
	Messages int64
}

func (r *AdminRepository) Totals(ctx context.Context, now time.Time) (*Totals, error) {
	var t Totals
	q := r.database.WithContext(ctx)

	if err := q.Model(&db.User{}).Count(&t.Users).Error; err != nil {
		return nil, err
	}
	if err := q.Model(&db.User{}).Where("is_active = ?", true).Count(&t.Active).Error; err != nil {
		return nil, err
	}
	if err := q.Model(&db.Match{}).Count(&t.Matches).Error; err != nil {
		return nil, err
	}
	if err := q.Model(&db.Like{}).Count(&t.Likes).Error; err != nil {
		return nil, err
	}
	if err := q.Model(&db.Message{}).Where("expires_at > ?", now).Count(&t.Messages).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// CountSince counts rows of model created at or after the cutoff.
func (r *AdminRepository) CountSince(ctx context.Context, model any, since time.Time) (int64, error) {
	var n int64
	err := r.database.WithContext(ctx).
		Model(model).
		Where("created_at >= ?", since).
		Count(&n).Error
	return n, err
}

// ActiveConversations counts distinct sender/receiver pairs holding at
// least one live message, each pair counted once regardless of direction.
// The pair canonicalization happens in Go; SQL string concatenation is not
// portable between the MySQL and SQLite dialects.
func (r *AdminRepository) ActiveConversations(ctx context.Context, now time.Time) (int64, error) {
	type pair struct {
		SenderID   uint64
		ReceiverID uint64
	}
	var pairs []pair
	err := r.database.WithContext(ctx).
		Model(&db.Message{}).
		Where("expires_at > ?", now).
		Distinct("sender_id", "receiver_id").
		Find(&pairs).Error
	if err != nil {
		return 0, err
	}

	seen := make(map[[2]uint64]struct{}, len(pairs))
	for _, p := range pairs {
		a, b := p.SenderID, p.ReceiverID
		if a > b {
			a, b = b, a
		}
		seen[[2]uint64{a, b}] = struct{}{}
	}
	return int64(len(seen)), nil
}

// DayCount is one bucket of a creation-date histogram.
type DayCount struct {
	Day   string `gorm:"column:day"`
	Count int64  `gorm:"column:count"`
}

// DailyCounts buckets rows of model by creation date from the cutoff
// onward, oldest day first. Days with no rows are absent.
func (r *AdminRepository) DailyCounts(ctx context.Context, model any, since time.Time) ([]DayCount, error) {
	var out []DayCount
	err := r.database.WithContext(ctx).
		Model(model).
		Select("DATE(created_at) AS day, COUNT(*) AS count").
		Where("created_at >= ?", since).
		Group("DATE(created_at)").
		Order("day ASC").
		Scan(&out).Error
	return out, err
}

// RankedUser pairs a user id with its score for one ranking metric.
type RankedUser struct {
	UserID uint64 `gorm:"column:user_id"`
	Count  int64  `gorm:"column:count"`
}

// TopByMatches ranks users by number of matches they participate in.
func (r *AdminRepository) TopByMatches(ctx context.Context, limit int) ([]RankedUser, error) {
	var out []RankedUser
	err := r.database.WithContext(ctx).Raw(`
		SELECT user_id, COUNT(*) AS count FROM (
			SELECT user1_id AS user_id FROM matches
			UNION ALL
			SELECT user2_id AS user_id FROM matches
		) m GROUP BY user_id ORDER BY count DESC, user_id ASC LIMIT ?`, limit).
		Scan(&out).Error
	return out, err
}

// TopByLikesReceived ranks users by likes received.
func (r *AdminRepository) TopByLikesReceived(ctx context.Context, limit int) ([]RankedUser, error) {
	var out []RankedUser
	err := r.database.WithContext(ctx).
		Model(&db.Like{}).
		Select("liked_id AS user_id, COUNT(*) AS count").
		Group("liked_id").
		Order("count DESC, user_id ASC").
		Limit(limit).
		Scan(&out).Error
	return out, err
}

// TopByMessagesSent ranks users by messages sent, expired included.
func (r *AdminRepository) TopByMessagesSent(ctx context.Context, limit int) ([]RankedUser, error) {
	var out []RankedUser
	err := r.database.WithContext(ctx).
		Model(&db.Message{}).
		Select("sender_id AS user_id, COUNT(*) AS count").
		Group("sender_id").
		Order("count DESC, user_id ASC").
		Limit(limit).
		Scan(&out).Error
	return out, err
}

// UserListFilters narrows the paginated admin user listing.
type UserListFilters struct {
	Search  string // matches first/last name, email or city
	Status  string // "active", "inactive" or "" for both
	Page    int
	PerPage int
}

// ListUsers returns one page of users, newest first, plus the unfiltered
// total for that query.
func (r *AdminRepository) ListUsers(ctx context.Context, f UserListFilters) ([]db.User, int64, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 || f.PerPage > 100 {
		f.PerPage = 20
	}

	q := r.database.WithContext(ctx).Model(&db.User{})
	if f.Search != "" {
		like := "%" + f.Search + "%"
		q = q.Where(
			"first_name LIKE ? OR last_name LIKE ? OR email LIKE ? OR city LIKE ?",
			like, like, like, like,
		)
	}
	switch f.Status {
	case "active":
		q = q.Where("is_active = ?", true)
	case "inactive":
		q = q.Where("is_active = ?", false)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []db.User
	err := q.Order("created_at DESC").
		Offset((f.Page - 1) * f.PerPage).
		Limit(f.PerPage).
		Find(&users).Error
	return users, total, err
}

// UserStats carries the per-user counters shown on the detail page.
type UserStats struct {
	LikesGiven    int64
	LikesReceived int64
	Matches       int64
	MessagesSent  int64
}

func (r *AdminRepository) UserStats(ctx context.Context, userID uint64) (*UserStats, error) {
	var s UserStats
	q := r.database.WithContext(ctx)

	if err := q.Model(&db.Like{}).Where("liker_id = ?", userID).Count(&s.LikesGiven).Error; err != nil {
		return nil, err
	}
	if err := q.Model(&db.Like{}).Where("liked_id = ?", userID).Count(&s.LikesReceived).Error; err != nil {
		return nil, err
	}
	if err := q.Model(&db.Match{}).
		Where("user1_id = ? OR user2_id = ?", userID, userID).
		Count(&s.Matches).Error; err != nil {
		return nil, err
	}
	if err := q.Model(&db.Message{}).Where("sender_id = ?", userID).Count(&s.MessagesSent).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// PurgeUser removes every trace of the user: likes both ways, matches,
// messages both ways, notifications, interest links, and the row itself.
// Callers wrap it in a transaction via WithTx.
func (r *AdminRepository) PurgeUser(ctx context.Context, userID uint64) error {
	q := r.database.WithContext(ctx)

	if err := q.Where("liker_id = ? OR liked_id = ?", userID, userID).
		Delete(&db.Like{}).Error; err != nil {
		return err
	}
	if err := q.Where("user1_id = ? OR user2_id = ?", userID, userID).
		Delete(&db.Match{}).Error; err != nil {
		return err
	}
	if err := q.Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Delete(&db.Message{}).Error; err != nil {
		return err
	}
	if err := q.Where("user_id = ?", userID).
		Delete(&db.Notification{}).Error; err != nil {
		return err
	}
	if err := q.Where("user_id = ?", userID).
		Delete(&db.UserInterest{}).Error; err != nil {
		return err
	}
	return q.Delete(&db.User{}, userID).Error
}

// Export is a flat snapshot of every aggregate for the data dump
// endpoint.
type Export struct {
	Users         []db.User
	Matches       []db.Match
	Messages      []db.Message
	Likes         []db.Like
	Interests     []db.Interest
	UserInterests []db.UserInterest
}

// ExportAll loads the full dataset. The admin surface is the only caller;
// the endpoint exists for operator backups, not pagination.
func (r *AdminRepository) ExportAll(ctx context.Context) (*Export, error) {
	var e Export
	q := r.database.WithContext(ctx)

	if err := q.Order("id").Find(&e.Users).Error; err != nil {
		return nil, err
	}
	if err := q.Order("id").Find(&e.Matches).Error; err != nil {
		return nil, err
	}
	if err := q.Order("id").Find(&e.Messages).Error; err != nil {
		return nil, err
	}
	if err := q.Order("id").Find(&e.Likes).Error; err != nil {
		return nil, err
	}
	if err := q.Order("id").Find(&e.Interests).Error; err != nil {
		return nil, err
	}
	if err := q.Order("id").Find(&e.UserInterests).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

// DeleteLikesBefore removes one-sided likes older than the cutoff that
// never became a match. Mutual pairs are left alone.
func (r *AdminRepository) DeleteLikesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.database.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Where(`NOT EXISTS (
			SELECT 1 FROM likes l2
			WHERE l2.liker_id = likes.liked_id AND l2.liked_id = likes.liker_id
		)`).
		Delete(&db.Like{})
	return res.RowsAffected, res.Error
}
