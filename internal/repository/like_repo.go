package repository

import (
	"context"
	"time"

	"github.com/meetapp/meet-backend/internal/db"
	"github.com/meetapp/meet-backend/internal/utils/pagination"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LikeRepository provides data access for likes and matches. It carries the
// pair-existence checks the like/match transition is built from.
type LikeRepository struct {
	db *gorm.DB
}

// NewLikeRepository creates a new repository bound to the given DB connection.
func NewLikeRepository(database *gorm.DB) *LikeRepository {
	return &LikeRepository{db: database}
}

// WithTx returns a copy of the repository bound to tx, so callers control
// the commit/rollback boundary.
func (r *LikeRepository) WithTx(tx *gorm.DB) *LikeRepository {
	return &LikeRepository{db: tx}
}

// Exists reports whether the directed like liker -> liked is present.
func (r *LikeRepository) Exists(ctx context.Context, likerID, likedID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Like{}).
		Where("liker_id = ? AND liked_id = ?", likerID, likedID).
		Count(&count).Error
	return count > 0, err
}

// Create inserts the directed like row. The unique (liker_id, liked_id)
// constraint rejects duplicates that slip past the caller's existence check.
func (r *LikeRepository) Create(ctx context.Context, likerID, likedID uint64) (*db.Like, error) {
	like := db.Like{LikerID: likerID, LikedID: likedID}
	if err := r.db.WithContext(ctx).Create(&like).Error; err != nil {
		return nil, err
	}
	return &like, nil
}

// Delete removes the directed like if present. Idempotent; reports whether a
// row was actually removed.
func (r *LikeRepository) Delete(ctx context.Context, likerID, likedID uint64) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("liker_id = ? AND liked_id = ?", likerID, likedID).
		Delete(&db.Like{})
	return res.RowsAffected > 0, res.Error
}

// DeletePair removes both directed likes between a and b.
func (r *LikeRepository) DeletePair(ctx context.Context, a, b uint64) error {
	return r.db.WithContext(ctx).
		Where("(liker_id = ? AND liked_id = ?) OR (liker_id = ? AND liked_id = ?)", a, b, b, a).
		Delete(&db.Like{}).Error
}

// CreateMatch inserts the canonical (min, max) match row. Two users liking
// each other in the same instant race on this insert; ON CONFLICT DO NOTHING
// lets the loser continue since its like is still valid.
func (r *LikeRepository) CreateMatch(ctx context.Context, a, b uint64) error {
	if a > b {
		a, b = b, a
	}
	match := db.Match{User1ID: a, User2ID: b}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&match).Error
}

// DeleteMatch removes the match row for the unordered pair, if any.
func (r *LikeRepository) DeleteMatch(ctx context.Context, a, b uint64) error {
	if a > b {
		a, b = b, a
	}
	return r.db.WithContext(ctx).
		Where("user1_id = ? AND user2_id = ?", a, b).
		Delete(&db.Match{}).Error
}

// MatchExists reports whether the unordered pair is matched.
func (r *LikeRepository) MatchExists(ctx context.Context, a, b uint64) (bool, error) {
	if a > b {
		a, b = b, a
	}
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Match{}).
		Where("user1_id = ? AND user2_id = ?", a, b).
		Count(&count).Error
	return count > 0, err
}

// MatchesOf returns every match the user participates in, newest first.
func (r *LikeRepository) MatchesOf(ctx context.Context, userID uint64) ([]db.Match, error) {
	var matches []db.Match
	err := r.db.WithContext(ctx).
		Where("user1_id = ? OR user2_id = ?", userID, userID).
		Order("created_at DESC").
		Find(&matches).Error
	return matches, err
}

// Given returns every like the user has sent, newest first.
func (r *LikeRepository) Given(ctx context.Context, likerID uint64) ([]db.Like, error) {
	var likes []db.Like
	err := r.db.WithContext(ctx).
		Where("liker_id = ?", likerID).
		Order("created_at DESC").
		Find(&likes).Error
	return likes, err
}

// Received returns likes pointed at the user, newest first, with
// cursor-based pagination.
func (r *LikeRepository) Received(
	ctx context.Context,
	likedID uint64,
	paginationToken *string,
	limit int,
) ([]db.Like, *string, error) {
	var likes []db.Like

	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	query := r.db.WithContext(ctx).
		Where("liked_id = ?", likedID).
		Order("created_at DESC, id DESC").
		Limit(limit + 1)

	if cursor.LikeID > 0 && cursor.CreatedUnix > 0 {
		ts := time.UnixMilli(cursor.CreatedUnix)
		query = query.Where(
			"(created_at < ? OR (created_at = ? AND id < ?))",
			ts, ts, cursor.LikeID,
		)
	}

	if err := query.Find(&likes).Error; err != nil {
		return nil, nil, err
	}

	var nextToken *string
	if len(likes) > limit {
		last := likes[limit-1]
		token, _ := pagination.Encode(pagination.Cursor{
			LikeID:      last.ID,
			CreatedUnix: last.CreatedAt.UnixMilli(),
		})
		nextToken = &token
		likes = likes[:limit]
	}

	return likes, nextToken, nil
}

// CountReceived returns how many users liked the given user. Used with the
// Redis cache (DB is fallback).
func (r *LikeRepository) CountReceived(ctx context.Context, likedID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Like{}).
		Where("liked_id = ?", likedID).
		Count(&count).Error
	return count, err
}

// getString safely dereferences a string pointer for pagination tokens.
func getString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
