package repository

import (
	"context"

	"github.com/meetapp/meet-backend/internal/db"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InterestRepository provides data access for the interest catalog and the
// user/interest join rows.
type InterestRepository struct {
	db *gorm.DB
}

func NewInterestRepository(database *gorm.DB) *InterestRepository {
	return &InterestRepository{db: database}
}

func (r *InterestRepository) WithTx(tx *gorm.DB) *InterestRepository {
	return &InterestRepository{db: tx}
}

// All returns the full interest catalog.
func (r *InterestRepository) All(ctx context.Context) ([]db.Interest, error) {
	var interests []db.Interest
	err := r.db.WithContext(ctx).Order("name").Find(&interests).Error
	return interests, err
}

// ByName looks an interest up by its unique name.
func (r *InterestRepository) ByName(ctx context.Context, name string) (*db.Interest, error) {
	var interest db.Interest
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&interest).Error; err != nil {
		return nil, err
	}
	return &interest, nil
}

// ForUser returns the interests attached to a user.
func (r *InterestRepository) ForUser(ctx context.Context, userID uint64) ([]db.Interest, error) {
	var interests []db.Interest
	err := r.db.WithContext(ctx).
		Joins("JOIN user_interests ON user_interests.interest_id = interests.id").
		Where("user_interests.user_id = ?", userID).
		Order("interests.name").
		Find(&interests).Error
	return interests, err
}

// Attach links an interest to a user. Reports false when the pair already
// existed.
func (r *InterestRepository) Attach(ctx context.Context, userID, interestID uint64) (bool, error) {
	ui := db.UserInterest{UserID: userID, InterestID: interestID}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&ui)
	return res.RowsAffected > 0, res.Error
}

// Detach removes the user/interest link. Idempotent.
func (r *InterestRepository) Detach(ctx context.Context, userID, interestID uint64) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND interest_id = ?", userID, interestID).
		Delete(&db.UserInterest{})
	return res.RowsAffected > 0, res.Error
}

// DetachAllForUser removes every interest link of a user (admin cascade).
func (r *InterestRepository) DetachAllForUser(ctx context.Context, userID uint64) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&db.UserInterest{}).Error
}
