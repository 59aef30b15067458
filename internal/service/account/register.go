package account

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/meetapp/meet-backend/internal/app"
	"github.com/meetapp/meet-backend/internal/db"
	"github.com/meetapp/meet-backend/internal/repository"
	"github.com/meetapp/meet-backend/internal/server"
)

// Registrar ties the account service into the HTTP router.
type Registrar struct {
	svc *Service
}

func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{svc: NewService(appCtx)}
}

// Register attaches the public auth endpoints plus the authenticated
// profile endpoints.
func (r *Registrar) Register(rt *server.Router) {
	rt.Public.POST("/register", r.register)
	rt.Public.POST("/login", r.login)

	rt.API.GET("/me", r.me)
	rt.API.GET("/user/:id", r.user)
	rt.API.PUT("/profile", r.updateProfile)
	rt.API.POST("/profile/photo", r.uploadPhoto)
	rt.API.GET("/interests", r.allInterests)
	rt.API.POST("/profile/interests", r.addInterest)
	rt.API.DELETE("/profile/interests/:id", r.removeInterest)
}

func (r *Registrar) register(c *gin.Context) {
	var req struct {
		Email        string   `json:"email" binding:"required"`
		Password     string   `json:"password" binding:"required"`
		FirstName    string   `json:"first_name" binding:"required"`
		LastName     string   `json:"last_name" binding:"required"`
		BirthDate    string   `json:"birth_date" binding:"required"`
		Gender       string   `json:"gender" binding:"required"`
		InterestedIn string   `json:"interested_in" binding:"required"`
		City         string   `json:"city"`
		Bio          string   `json:"bio"`
		Interests    []string `json:"interests"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		server.Fail(c, http.StatusBadRequest, "Données manquantes")
		return
	}

	user, err := r.svc.Register(c.Request.Context(), RegisterParams{
		Email:        req.Email,
		Password:     req.Password,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		BirthDate:    req.BirthDate,
		Gender:       req.Gender,
		InterestedIn: req.InterestedIn,
		City:         req.City,
		Bio:          req.Bio,
		Interests:    req.Interests,
	})
	if err != nil {
		server.FailErr(c, err)
		return
	}

	token, err := server.IssueToken(r.svc.appCtx.Config, user.ID, user.IsAdmin)
	if err != nil {
		server.FailErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Inscription réussie !",
		"token":   token,
		"user":    r.userJSON(c, user, true),
	})
}

func (r *Registrar) login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		server.Fail(c, http.StatusBadRequest, "Données manquantes")
		return
	}

	user, err := r.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			server.Fail(c, http.StatusUnauthorized, "Email ou mot de passe incorrect")
			return
		}
		server.FailErr(c, err)
		return
	}

	token, err := server.IssueToken(r.svc.appCtx.Config, user.ID, user.IsAdmin)
	if err != nil {
		server.FailErr(c, err)
		return
	}
	server.OK(c, gin.H{
		"token": token,
		"user":  r.userJSON(c, user, true),
	})
}

func (r *Registrar) me(c *gin.Context) {
	user, err := r.svc.Get(c.Request.Context(), server.CurrentUserID(c))
	if err != nil {
		server.FailErr(c, err)
		return
	}
	server.OK(c, gin.H{"user": r.userJSON(c, user, true)})
}

func (r *Registrar) user(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		server.Fail(c, http.StatusBadRequest, "identifiant utilisateur invalide")
		return
	}

	user, err := r.svc.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			server.Fail(c, http.StatusNotFound, "Utilisateur non trouvé")
			return
		}
		server.FailErr(c, err)
		return
	}
	server.OK(c, gin.H{"user": r.userJSON(c, user, false)})
}

func (r *Registrar) updateProfile(c *gin.Context) {
	userID := server.CurrentUserID(c)

	var req profileUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.Fail(c, http.StatusBadRequest, "Données invalides")
		return
	}

	if err := r.svc.UpdateProfile(c.Request.Context(), userID, req.toUpdate()); err != nil {
		server.FailErr(c, err)
		return
	}
	server.OK(c, gin.H{"message": "Profil mis à jour"})
}

func (r *Registrar) uploadPhoto(c *gin.Context) {
	userID := server.CurrentUserID(c)

	kind := c.DefaultPostForm("kind", "profile")
	fh, err := c.FormFile("photo")
	if err != nil {
		server.Fail(c, http.StatusBadRequest, "Aucune photo fournie")
		return
	}

	filename, err := r.svc.SavePhoto(c.Request.Context(), userID, kind, fh)
	if err != nil {
		server.FailErr(c, err)
		return
	}
	server.OK(c, gin.H{"filename": filename})
}

func (r *Registrar) allInterests(c *gin.Context) {
	interests, err := r.svc.AllInterests(c.Request.Context())
	if err != nil {
		server.FailErr(c, err)
		return
	}
	server.OK(c, gin.H{"interests": interestsJSON(interests)})
}

func (r *Registrar) addInterest(c *gin.Context) {
	userID := server.CurrentUserID(c)

	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		server.Fail(c, http.StatusBadRequest, "Données manquantes")
		return
	}

	if err := r.svc.AddInterest(c.Request.Context(), userID, req.Name); err != nil {
		server.FailErr(c, err)
		return
	}
	server.OK(c, gin.H{"message": "Centre d'intérêt ajouté"})
}

func (r *Registrar) removeInterest(c *gin.Context) {
	userID := server.CurrentUserID(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		server.Fail(c, http.StatusBadRequest, "identifiant invalide")
		return
	}

	if err := r.svc.RemoveInterest(c.Request.Context(), userID, id); err != nil {
		server.FailErr(c, err)
		return
	}
	server.OK(c, gin.H{"message": "Centre d'intérêt retiré"})
}

// profileUpdateRequest distinguishes absent fields from empty ones via
// pointers, so a PUT can blank the bio without touching the city.
type profileUpdateRequest struct {
	FirstName    *string `json:"first_name"`
	LastName     *string `json:"last_name"`
	City         *string `json:"city"`
	Bio          *string `json:"bio"`
	Gender       *string `json:"gender"`
	InterestedIn *string `json:"interested_in"`
}

func (p profileUpdateRequest) toUpdate() repository.ProfileUpdate {
	return repository.ProfileUpdate{
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		City:         p.City,
		Bio:          p.Bio,
		Gender:       p.Gender,
		InterestedIn: p.InterestedIn,
	}
}

// userJSON renders a user for API responses. The private view (own profile)
// includes email and interested_in; public views omit them.
func (r *Registrar) userJSON(c *gin.Context, user *db.User, private bool) gin.H {
	out := gin.H{
		"id":            user.ID,
		"first_name":    user.FirstName,
		"last_name":     user.LastName,
		"age":           user.Age(),
		"gender":        user.Gender,
		"city":          user.City,
		"bio":           user.Bio,
		"profile_photo": user.ProfilePhoto,
		"second_photo":  user.SecondPhoto,
		"last_active":   user.LastActive,
	}
	if private {
		out["email"] = user.Email
		out["interested_in"] = user.InterestedIn
	}

	if interests, err := r.svc.Interests(c.Request.Context(), user.ID); err == nil {
		out["interests"] = interestsJSON(interests)
	}
	return out
}

func interestsJSON(interests []db.Interest) []gin.H {
	out := make([]gin.H, 0, len(interests))
	for _, i := range interests {
		out = append(out, gin.H{"id": i.ID, "name": i.Name, "category": i.Category})
	}
	return out
}
