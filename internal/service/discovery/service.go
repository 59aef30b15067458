package discovery

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/meetapp/meet-backend/internal/app"
	"github.com/meetapp/meet-backend/internal/db"
	apperrors "github.com/meetapp/meet-backend/internal/errors"
	"github.com/meetapp/meet-backend/internal/repository"
)

// matchNotificationText is sent to both participants when a mutual like
// promotes to a match.
const matchNotificationText = "Vous avez un nouveau match !"

// errAlreadyLiked signals a duplicate directed like inside the transaction;
// it is swallowed and surfaced as the no-op result.
var errAlreadyLiked = errors.New("like already exists")

// Service owns the like/match engine and the suggestion filter.
type Service struct {
	appCtx        *app.AppContext
	users         *repository.UserRepository
	likes         *repository.LikeRepository
	messages      *repository.MessageRepository
	notifications *repository.NotificationRepository
	interests     *repository.InterestRepository
}

// MatchEntry is one row of the matches listing.
type MatchEntry struct {
	User        db.User
	LastMessage *db.Message
	MatchedAt   time.Time
}

// LikeEntry is one row of the given/received like listings.
type LikeEntry struct {
	Like    db.Like
	User    db.User
	IsMatch bool
}

// NewService creates the discovery service with dependencies from AppContext.
func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:        appCtx,
		users:         repository.NewUserRepository(appCtx.DB),
		likes:         repository.NewLikeRepository(appCtx.DB),
		messages:      repository.NewMessageRepository(appCtx.DB),
		notifications: repository.NewNotificationRepository(appCtx.DB),
		interests:     repository.NewInterestRepository(appCtx.DB),
	}
}

// normalizeInterestedIn lower-cases the stated gender of interest and maps
// the French plural forms to singular. Any other value passes through
// unchanged, so an unnormalized input silently matches nothing — known
// latent behavior, kept as-is.
func normalizeInterestedIn(v string) string {
	g := strings.ToLower(v)
	switch g {
	case "femmes":
		return "femme"
	case "hommes":
		return "homme"
	}
	return g
}

// Suggestions returns candidate profiles for the user, per the filter rules.
func (s *Service) Suggestions(ctx context.Context, userID uint64, filters repository.SuggestionFilters) ([]db.User, error) {
	user, err := s.users.ByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.users.Suggested(ctx, user.ID, normalizeInterestedIn(user.InterestedIn), filters)
}

// Like records liker -> liked and promotes a mutual pair to a match.
//
// A duplicate directed like is a silent no-op: (nil, false, nil). Otherwise
// the like insert, the reverse-like check, the canonical match insert and
// both match notifications commit as a single transaction; a concurrent
// match insert losing the uniqueness race does not fail the like. The
// cached received-like count is bumped outside the transaction.
func (s *Service) Like(ctx context.Context, likerID, likedID uint64) (*db.Like, bool, error) {
	if exists, err := s.likes.Exists(ctx, likerID, likedID); err != nil {
		return nil, false, err
	} else if exists {
		return nil, false, nil
	}

	var (
		like    *db.Like
		isMatch bool
	)
	err := s.appCtx.DB.Transaction(func(tx *gorm.DB) error {
		likes := s.likes.WithTx(tx)

		l, err := likes.Create(ctx, likerID, likedID)
		if err != nil {
			if apperrors.IsUniqueViolation(err) {
				return errAlreadyLiked
			}
			return err
		}
		like = l

		reverse, err := likes.Exists(ctx, likedID, likerID)
		if err != nil {
			return err
		}
		if !reverse {
			return nil
		}

		isMatch = true
		if err := likes.CreateMatch(ctx, likerID, likedID); err != nil {
			return err
		}

		notifications := s.notifications.WithTx(tx)
		expires := time.Now().Add(time.Duration(s.appCtx.Config.TTL.NotificationHours) * time.Hour)
		for _, uid := range []uint64{likerID, likedID} {
			if _, err := notifications.Create(ctx, uid, matchNotificationText, db.NotificationKindMatch, expires); err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, errAlreadyLiked) {
		// lost the duplicate race after the pre-check; same no-op result
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	key := s.appCtx.RedisCache.KeyForLikeCount(likedID)
	if _, err := s.appCtx.RedisCache.Incr(ctx, key); err != nil {
		s.appCtx.Logger.Warn("like count cache incr failed", "user", likedID, "err", err)
	}

	s.appCtx.Logger.Info("like created", "liker", likerID, "liked", likedID, "match", isMatch)
	return like, isMatch, nil
}

// Unlike retracts a pending directed like. Idempotent; deliberately does not
// cascade to the match or message history — severing an established match is
// Unmatch's job.
func (s *Service) Unlike(ctx context.Context, likerID, likedID uint64) (bool, error) {
	removed, err := s.likes.Delete(ctx, likerID, likedID)
	if err != nil {
		return false, err
	}
	if removed {
		key := s.appCtx.RedisCache.KeyForLikeCount(likedID)
		if _, err := s.appCtx.RedisCache.Decr(ctx, key); err != nil {
			s.appCtx.Logger.Warn("like count cache decr failed", "user", likedID, "err", err)
		}
	}
	return removed, nil
}

// Unmatch severs the pair: both directed likes, the match row and the whole
// message history go in one transaction. This is the only path that purges
// messages outside of time-based expiry.
func (s *Service) Unmatch(ctx context.Context, a, b uint64) error {
	err := s.appCtx.DB.Transaction(func(tx *gorm.DB) error {
		if err := s.likes.WithTx(tx).DeletePair(ctx, a, b); err != nil {
			return err
		}
		if err := s.likes.WithTx(tx).DeleteMatch(ctx, a, b); err != nil {
			return err
		}
		return s.messages.WithTx(tx).DeleteBetween(ctx, a, b)
	})
	if err != nil {
		return err
	}

	s.appCtx.RedisCache.Del(ctx, s.appCtx.RedisCache.KeyForLikeCount(a))
	s.appCtx.RedisCache.Del(ctx, s.appCtx.RedisCache.KeyForLikeCount(b))

	s.appCtx.Logger.Info("unmatched", "user1", a, "user2", b)
	return nil
}

// Matches lists the user's matches with the other participant and the last
// live message, newest match first.
func (s *Service) Matches(ctx context.Context, userID uint64) ([]MatchEntry, error) {
	matches, err := s.likes.MatchesOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, nil
	}

	otherIDs := make([]uint64, 0, len(matches))
	for _, m := range matches {
		otherIDs = append(otherIDs, m.OtherUser(userID))
	}
	usersByID, err := s.users.ByIDs(ctx, otherIDs)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	entries := make([]MatchEntry, 0, len(matches))
	for _, m := range matches {
		other, ok := usersByID[m.OtherUser(userID)]
		if !ok {
			continue
		}
		last, err := s.messages.LastBetween(ctx, userID, other.ID, now)
		if err != nil {
			return nil, err
		}
		entries = append(entries, MatchEntry{User: other, LastMessage: last, MatchedAt: m.CreatedAt})
	}
	return entries, nil
}

// GivenLikes lists the likes the user has sent, flagging entries that became
// matches.
func (s *Service) GivenLikes(ctx context.Context, userID uint64) ([]LikeEntry, error) {
	likes, err := s.likes.Given(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.buildEntries(ctx, userID, likes, func(l db.Like) uint64 { return l.LikedID })
}

// ReceivedLikes lists the likes pointed at the user, cursor-paginated.
func (s *Service) ReceivedLikes(ctx context.Context, userID uint64, token *string, limit int) ([]LikeEntry, *string, error) {
	likes, next, err := s.likes.Received(ctx, userID, token, limit)
	if err != nil {
		return nil, nil, err
	}
	entries, err := s.buildEntries(ctx, userID, likes, func(l db.Like) uint64 { return l.LikerID })
	if err != nil {
		return nil, nil, err
	}
	return entries, next, nil
}

func (s *Service) buildEntries(ctx context.Context, userID uint64, likes []db.Like, other func(db.Like) uint64) ([]LikeEntry, error) {
	ids := make([]uint64, 0, len(likes))
	for _, l := range likes {
		ids = append(ids, other(l))
	}
	usersByID, err := s.users.ByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	entries := make([]LikeEntry, 0, len(likes))
	for _, l := range likes {
		u, ok := usersByID[other(l)]
		if !ok {
			continue
		}
		isMatch, err := s.likes.MatchExists(ctx, userID, u.ID)
		if err != nil {
			return nil, err
		}
		if !isMatch {
			// a mutual like pair that has not promoted yet still counts
			forward, err := s.likes.Exists(ctx, userID, u.ID)
			if err != nil {
				return nil, err
			}
			reverse, err := s.likes.Exists(ctx, u.ID, userID)
			if err != nil {
				return nil, err
			}
			isMatch = forward && reverse
		}
		entries = append(entries, LikeEntry{Like: l, User: u, IsMatch: isMatch})
	}
	return entries, nil
}

// ReceivedCount returns how many users liked the given user.
// Cache-first strategy:
//  1. Attempts to read from Redis.
//  2. On cache miss, falls back to the DB count.
//  3. On DB fetch, updates Redis with a 1h TTL.
func (s *Service) ReceivedCount(ctx context.Context, userID uint64) (int64, error) {
	if n, hit, err := s.appCtx.RedisCache.GetLikeCount(ctx, userID); err == nil && hit {
		return n, nil
	}

	count, err := s.likes.CountReceived(ctx, userID)
	if err != nil {
		return 0, err
	}
	if err := s.appCtx.RedisCache.SetLikeCount(ctx, userID, count); err != nil {
		s.appCtx.Logger.Warn("like count cache set failed", "user", userID, "err", err)
	}
	return count, nil
}

// parseID converts a path parameter to a user id.
func parseID(raw string) (uint64, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.Validation("identifiant utilisateur invalide")
	}
	return id, nil
}
