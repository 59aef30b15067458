package repository

import (
	"context"
	"strings"
	"time"

	"github.com/meetapp/meet-backend/internal/db"

	"gorm.io/gorm"
)

// SuggestionFilters are the optional narrowing criteria for the suggestion
// query. Zero values mean "no filter".
type SuggestionFilters struct {
	MinAge   int
	MaxAge   int
	City     string
	Interest string
	Limit    int
}

// ProfileUpdate is the allow-listed set of user-editable profile fields.
// Anything not named here cannot be changed through profile update.
type ProfileUpdate struct {
	FirstName    *string
	LastName     *string
	City         *string
	Bio          *string
	Gender       *string
	InterestedIn *string
}

// UserRepository provides data access methods for the User model.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(database *gorm.DB) *UserRepository {
	return &UserRepository{db: database}
}

func (r *UserRepository) WithTx(tx *gorm.DB) *UserRepository {
	return &UserRepository{db: tx}
}

func (r *UserRepository) Create(ctx context.Context, user *db.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *UserRepository) ByID(ctx context.Context, id uint64) (*db.User, error) {
	var user db.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) ByEmail(ctx context.Context, email string) (*db.User, error) {
	var user db.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// TouchLastActive updates the last_active timestamp.
func (r *UserRepository) TouchLastActive(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("id = ?", id).
		Update("last_active", time.Now()).Error
}

// UpdateProfile applies the allow-listed field set. Only non-nil fields are
// written.
func (r *UserRepository) UpdateProfile(ctx context.Context, id uint64, upd ProfileUpdate) error {
	values := map[string]interface{}{}
	if upd.FirstName != nil {
		values["first_name"] = *upd.FirstName
	}
	if upd.LastName != nil {
		values["last_name"] = *upd.LastName
	}
	if upd.City != nil {
		values["city"] = *upd.City
	}
	if upd.Bio != nil {
		values["bio"] = *upd.Bio
	}
	if upd.Gender != nil {
		values["gender"] = *upd.Gender
	}
	if upd.InterestedIn != nil {
		values["interested_in"] = *upd.InterestedIn
	}
	if len(values) == 0 {
		return nil
	}
	values["updated_at"] = time.Now()
	return r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("id = ?", id).
		Updates(values).Error
}

// SetPhoto stores the saved filename in the profile_photo or second_photo
// column.
func (r *UserRepository) SetPhoto(ctx context.Context, id uint64, column, filename string) error {
	if column != "profile_photo" && column != "second_photo" {
		return gorm.ErrInvalidField
	}
	return r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("id = ?", id).
		Update(column, filename).Error
}

// SetActive flips the soft-disable flag.
func (r *UserRepository) SetActive(ctx context.Context, id uint64, active bool) error {
	return r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("id = ?", id).
		Update("is_active", active).Error
}

// ByIDs loads a batch of users keyed by id.
func (r *UserRepository) ByIDs(ctx context.Context, ids []uint64) (map[uint64]db.User, error) {
	byID := make(map[uint64]db.User, len(ids))
	if len(ids) == 0 {
		return byID, nil
	}
	var users []db.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		byID[u.ID] = u
	}
	return byID, nil
}

// Suggested returns candidate profiles for the requesting user.
//
// Filters, in order: id != requester, active only, lower(gender) equal to
// interestedGender (already normalized by the caller), birth-date range from
// the age bounds (365-day arithmetic), optional case-insensitive city
// substring, optional interest-name join, and a NOT EXISTS exclusion of
// candidates the requester has already liked. NOT EXISTS (rather than a
// pre-materialized exclude list) keeps the query race-free against
// concurrent like creation. Primary-key order, truncated at limit; this is
// not a ranked feed.
func (r *UserRepository) Suggested(
	ctx context.Context,
	requesterID uint64,
	interestedGender string,
	filters SuggestionFilters,
) ([]db.User, error) {
	limit := filters.Limit
	if limit <= 0 {
		limit = 20
	}

	query := r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("users.id <> ?", requesterID).
		Where("users.is_active = ?", true).
		Where("LOWER(users.gender) = ?", interestedGender)

	if filters.MinAge > 0 {
		maxBirth := time.Now().AddDate(0, 0, -filters.MinAge*365)
		query = query.Where("users.birth_date <= ?", maxBirth)
	}
	if filters.MaxAge > 0 {
		minBirth := time.Now().AddDate(0, 0, -filters.MaxAge*365)
		query = query.Where("users.birth_date >= ?", minBirth)
	}
	if filters.City != "" {
		query = query.Where("LOWER(users.city) LIKE ?", "%"+strings.ToLower(filters.City)+"%")
	}
	if filters.Interest != "" {
		query = query.
			Joins("JOIN user_interests ON user_interests.user_id = users.id").
			Joins("JOIN interests ON interests.id = user_interests.interest_id").
			Where("interests.name = ?", filters.Interest)
	}

	query = query.Where(`
		NOT EXISTS (
			SELECT 1 FROM likes
			WHERE likes.liker_id = ?
			  AND likes.liked_id = users.id
		)`, requesterID)

	var users []db.User
	err := query.Order("users.id").Limit(limit).Find(&users).Error
	return users, err
}
