package db

import (
	"time"
)

// Notification kinds
const (
	NotificationKindMessage = "message"
	NotificationKindLike    = "like"
	NotificationKindMatch   = "match"
)

// User table
type User struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement"`
	Email        string    `gorm:"uniqueIndex;size:120;not null"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	FirstName    string    `gorm:"size:50;not null"`
	LastName     string    `gorm:"size:50;not null"`
	BirthDate    time.Time `gorm:"not null;index"`
	Gender       string    `gorm:"size:20;not null;index:idx_user_search,priority:2"`
	InterestedIn string    `gorm:"size:20;not null;index:idx_user_search,priority:3"`
	City         string    `gorm:"size:100;not null;index:idx_user_search,priority:1"`
	Bio          string    `gorm:"type:text"`
	ProfilePhoto string    `gorm:"size:255"`
	SecondPhoto  string    `gorm:"size:255"`
	IsActive     bool      `gorm:"default:true;index:idx_user_active,priority:1"`
	IsVerified   bool      `gorm:"default:false"`
	IsAdmin      bool      `gorm:"default:false"`
	CreatedAt    time.Time `gorm:"autoCreateTime;index:idx_user_active,priority:2"`
	LastActive   time.Time
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

// Age computes the user's age in full years.
func (u *User) Age() int {
	now := time.Now()
	years := now.Year() - u.BirthDate.Year()
	if now.YearDay() < u.BirthDate.YearDay() {
		years--
	}
	return years
}

// FullName returns "First Last".
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// Interest is static reference data shared by all users, seeded at startup.
type Interest struct {
	ID       uint64 `gorm:"primaryKey;autoIncrement"`
	Name     string `gorm:"uniqueIndex;size:100;not null"`
	Category string `gorm:"size:50;index"`
}

// UserInterest joins users to interests, unique per (user, interest) pair.
type UserInterest struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement"`
	UserID     uint64 `gorm:"not null;uniqueIndex:uq_user_interest,priority:1"`
	InterestID uint64 `gorm:"not null;uniqueIndex:uq_user_interest,priority:2;index"`
}

// Like is a directed liker -> liked edge, unique per ordered pair and
// immutable once created. Removed only by unlike or the unmatch cascade.
type Like struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	LikerID   uint64    `gorm:"not null;uniqueIndex:uq_like,priority:1"`
	LikedID   uint64    `gorm:"not null;uniqueIndex:uq_like,priority:2;index"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
}

// Match is an undirected pairing with the canonical ordering invariant
// user1_id < user2_id. Unique per unordered pair; the database constraint is
// the race-safety mechanism when both directions of a like land at once.
type Match struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	User1ID   uint64    `gorm:"not null;uniqueIndex:uq_match,priority:1"`
	User2ID   uint64    `gorm:"not null;uniqueIndex:uq_match,priority:2;index"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
}

// OtherUser returns the match participant that is not userID.
func (m *Match) OtherUser(userID uint64) uint64 {
	if m.User1ID == userID {
		return m.User2ID
	}
	return m.User1ID
}

// Message is ephemeral conversation content. A row past ExpiresAt is
// logically deleted even before the sweep physically purges it; every read
// path filters on the expiry column.
type Message struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement"`
	SenderID   uint64    `gorm:"not null;index:idx_message_conversation,priority:1"`
	ReceiverID uint64    `gorm:"not null;index:idx_message_conversation,priority:2;index"`
	Content    string    `gorm:"type:text;not null"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index"`
	ExpiresAt  time.Time `gorm:"not null;index"`
}

// Notification is a user-scoped transient record. Acknowledging one deletes
// it; there is no read flag.
type Notification struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	UserID    uint64    `gorm:"not null;index:idx_notification_user_kind,priority:1"`
	Message   string    `gorm:"size:255;not null"`
	Kind      string    `gorm:"size:50;not null;index:idx_notification_user_kind,priority:2"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
	ExpiresAt time.Time `gorm:"not null;index"`
}
