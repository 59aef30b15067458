package account

import (
	"context"
	"errors"
	"mime/multipart"
	"net/mail"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/meetapp/meet-backend/internal/app"
	"github.com/meetapp/meet-backend/internal/db"
	apperrors "github.com/meetapp/meet-backend/internal/errors"
	"github.com/meetapp/meet-backend/internal/media"
	"github.com/meetapp/meet-backend/internal/repository"
)

// ErrInvalidCredentials is returned by Login for a bad email/password pair
// or a soft-disabled account; the route layer maps it to 401.
var ErrInvalidCredentials = errors.New("invalid credentials")

// RegisterParams carries the registration payload.
type RegisterParams struct {
	Email        string
	Password     string
	FirstName    string
	LastName     string
	BirthDate    string // YYYY-MM-DD
	Gender       string
	InterestedIn string
	City         string
	Bio          string
	Interests    []string
}

// Service owns user identity and profile management.
type Service struct {
	appCtx    *app.AppContext
	users     *repository.UserRepository
	interests *repository.InterestRepository
}

func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:    appCtx,
		users:     repository.NewUserRepository(appCtx.DB),
		interests: repository.NewInterestRepository(appCtx.DB),
	}
}

// Register validates and creates a user plus its interest links in one
// transaction. Duplicate email surfaces as a validation-style rejection both
// from the pre-check and from the unique constraint (concurrent register).
func (s *Service) Register(ctx context.Context, p RegisterParams) (*db.User, error) {
	if _, err := mail.ParseAddress(p.Email); err != nil {
		return nil, apperrors.Validation("Email invalide")
	}
	if len(p.Password) < 8 {
		return nil, apperrors.Validation("Le mot de passe doit contenir au moins 8 caractères")
	}
	birthDate, err := time.Parse("2006-01-02", p.BirthDate)
	if err != nil {
		return nil, apperrors.Validation("Date de naissance invalide")
	}

	if _, err := s.users.ByEmail(ctx, p.Email); err == nil {
		return nil, apperrors.Duplicate("Cet email est déjà utilisé")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(p.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &db.User{
		Email:        p.Email,
		PasswordHash: string(hash),
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		BirthDate:    birthDate,
		Gender:       p.Gender,
		InterestedIn: p.InterestedIn,
		City:         p.City,
		Bio:          p.Bio,
		IsActive:     true,
		LastActive:   time.Now(),
	}

	err = s.appCtx.DB.Transaction(func(tx *gorm.DB) error {
		if err := s.users.WithTx(tx).Create(ctx, user); err != nil {
			if apperrors.IsUniqueViolation(err) {
				return apperrors.Duplicate("Cet email est déjà utilisé")
			}
			return err
		}

		interests := s.interests.WithTx(tx)
		for _, name := range p.Interests {
			interest, err := interests.ByName(ctx, name)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue // unknown names are skipped, not fatal
			}
			if err != nil {
				return err
			}
			if _, err := interests.Attach(ctx, user.ID, interest.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.appCtx.Logger.Info("user registered", "user", user.ID)
	return user, nil
}

// Login verifies credentials, touches last_active and mints a bearer token
// via the issue callback (the route layer supplies the signer).
func (s *Service) Login(ctx context.Context, email, password string) (*db.User, error) {
	user, err := s.users.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	if err := s.users.TouchLastActive(ctx, user.ID); err != nil {
		s.appCtx.Logger.Warn("failed to touch last_active", "user", user.ID, "err", err)
	}
	return user, nil
}

// Get returns a user by id.
func (s *Service) Get(ctx context.Context, id uint64) (*db.User, error) {
	return s.users.ByID(ctx, id)
}

// Interests returns the user's attached interests.
func (s *Service) Interests(ctx context.Context, userID uint64) ([]db.Interest, error) {
	return s.interests.ForUser(ctx, userID)
}

// UpdateProfile applies the allow-listed field set. Reflection-free: only
// the fields named in ProfileUpdate can change.
func (s *Service) UpdateProfile(ctx context.Context, userID uint64, upd repository.ProfileUpdate) error {
	return s.users.UpdateProfile(ctx, userID, upd)
}

// SavePhoto stores an uploaded photo in the "profile" or "second" slot.
func (s *Service) SavePhoto(ctx context.Context, userID uint64, kind string, fh *multipart.FileHeader) (string, error) {
	var column string
	switch kind {
	case "profile":
		column = "profile_photo"
	case "second":
		column = "second_photo"
	default:
		return "", apperrors.Validation("type de photo invalide")
	}

	filename, err := media.SavePhoto(s.appCtx.Config.Upload.Dir, s.appCtx.Config.Upload.MaxBytes, userID, kind, fh)
	if err != nil {
		return "", apperrors.Validation(err.Error())
	}
	if err := s.users.SetPhoto(ctx, userID, column, filename); err != nil {
		return "", err
	}
	return filename, nil
}

// AddInterest attaches a cataloged interest by name.
func (s *Service) AddInterest(ctx context.Context, userID uint64, name string) error {
	interest, err := s.interests.ByName(ctx, name)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NotFound("Centre d'intérêt non trouvé")
	}
	if err != nil {
		return err
	}
	added, err := s.interests.Attach(ctx, userID, interest.ID)
	if err != nil {
		return err
	}
	if !added {
		return apperrors.Duplicate("Centre d'intérêt déjà ajouté")
	}
	return nil
}

// RemoveInterest detaches an interest. Idempotent.
func (s *Service) RemoveInterest(ctx context.Context, userID, interestID uint64) error {
	_, err := s.interests.Detach(ctx, userID, interestID)
	return err
}

// AllInterests returns the interest catalog.
func (s *Service) AllInterests(ctx context.Context) ([]db.Interest, error) {
	return s.interests.All(ctx)
}
