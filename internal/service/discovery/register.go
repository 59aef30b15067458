package discovery

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/meetapp/meet-backend/internal/app"
	"github.com/meetapp/meet-backend/internal/repository"
	"github.com/meetapp/meet-backend/internal/server"
)

// Registrar ties the discovery service into the HTTP router.
type Registrar struct {
	svc *Service
}

// NewRegistrar creates a new Registrar for the discovery service.
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{svc: NewService(appCtx)}
}

// Register attaches the discovery endpoints to the authenticated API group.
func (r *Registrar) Register(rt *server.Router) {
	rt.API.GET("/profiles", r.profiles)
	rt.API.POST("/like/:id", r.like)
	rt.API.POST("/pass/:id", r.pass)
	rt.API.POST("/remove-like/:id", r.removeLike)
	rt.API.POST("/unmatch/:id", r.unmatch)
	rt.API.GET("/matches", r.matches)
	rt.API.GET("/likes-given", r.likesGiven)
	rt.API.GET("/likes-received", r.likesReceived)
	rt.API.GET("/likes-count", r.likesCount)
}

func (r *Registrar) profiles(c *gin.Context) {
	userID := server.CurrentUserID(c)

	filters := repository.SuggestionFilters{
		MinAge:   queryInt(c, "min_age"),
		MaxAge:   queryInt(c, "max_age"),
		City:     c.Query("city"),
		Interest: c.Query("interest"),
		Limit:    queryInt(c, "limit"),
	}

	users, err := r.svc.Suggestions(c.Request.Context(), userID, filters)
	if err != nil {
		server.FailErr(c, err)
		return
	}

	profiles := make([]gin.H, 0, len(users))
	for i := range users {
		u := &users[i]
		interests, err := r.svc.interests.ForUser(c.Request.Context(), u.ID)
		if err != nil {
			server.FailErr(c, err)
			return
		}
		names := make([]gin.H, 0, len(interests))
		for _, it := range interests {
			names = append(names, gin.H{"id": it.ID, "name": it.Name})
		}
		profiles = append(profiles, gin.H{
			"id":            u.ID,
			"first_name":    u.FirstName,
			"age":           u.Age(),
			"gender":        u.Gender,
			"city":          u.City,
			"bio":           u.Bio,
			"profile_photo": u.ProfilePhoto,
			"second_photo":  u.SecondPhoto,
			"interests":     names,
			"last_active":   u.LastActive,
		})
	}

	server.OK(c, gin.H{"profiles": profiles})
}

func (r *Registrar) like(c *gin.Context) {
	userID := server.CurrentUserID(c)

	targetID, err := parseID(c.Param("id"))
	if err != nil {
		server.FailErr(c, err)
		return
	}
	if targetID == userID {
		server.Fail(c, http.StatusBadRequest, "Vous ne pouvez pas vous liker vous-même")
		return
	}
	if _, err := r.svc.users.ByID(c.Request.Context(), targetID); err != nil {
		server.Fail(c, http.StatusNotFound, "Utilisateur non trouvé")
		return
	}

	like, isMatch, err := r.svc.Like(c.Request.Context(), userID, targetID)
	if err != nil {
		server.FailErr(c, err)
		return
	}
	if like == nil {
		server.Fail(c, http.StatusBadRequest, "Vous avez déjà liké cet utilisateur")
		return
	}

	server.OK(c, gin.H{"match": isMatch, "message": "Like ajouté avec succès !"})
}

// pass validates the target and acknowledges without persisting anything: a
// passed profile simply reappears on a later suggestion fetch.
func (r *Registrar) pass(c *gin.Context) {
	userID := server.CurrentUserID(c)

	targetID, err := parseID(c.Param("id"))
	if err != nil {
		server.FailErr(c, err)
		return
	}
	if targetID == userID {
		server.Fail(c, http.StatusBadRequest, "Vous ne pouvez pas passer votre propre profil")
		return
	}
	if _, err := r.svc.users.ByID(c.Request.Context(), targetID); err != nil {
		server.Fail(c, http.StatusNotFound, "Utilisateur non trouvé")
		return
	}

	server.OK(c, gin.H{})
}

func (r *Registrar) removeLike(c *gin.Context) {
	userID := server.CurrentUserID(c)

	targetID, err := parseID(c.Param("id"))
	if err != nil {
		server.FailErr(c, err)
		return
	}

	removed, err := r.svc.Unlike(c.Request.Context(), userID, targetID)
	if err != nil {
		server.FailErr(c, err)
		return
	}
	server.OK(c, gin.H{"removed": removed})
}

func (r *Registrar) unmatch(c *gin.Context) {
	userID := server.CurrentUserID(c)

	targetID, err := parseID(c.Param("id"))
	if err != nil {
		server.FailErr(c, err)
		return
	}

	if err := r.svc.Unmatch(c.Request.Context(), userID, targetID); err != nil {
		server.FailErr(c, err)
		return
	}
	server.OK(c, gin.H{})
}

func (r *Registrar) matches(c *gin.Context) {
	userID := server.CurrentUserID(c)

	entries, err := r.svc.Matches(c.Request.Context(), userID)
	if err != nil {
		server.FailErr(c, err)
		return
	}

	matches := make([]gin.H, 0, len(entries))
	for _, e := range entries {
		m := gin.H{
			"user": gin.H{
				"id":            e.User.ID,
				"first_name":    e.User.FirstName,
				"age":           e.User.Age(),
				"city":          e.User.City,
				"profile_photo": e.User.ProfilePhoto,
			},
			"matched_at": e.MatchedAt,
		}
		if e.LastMessage != nil {
			m["last_message"] = gin.H{
				"content":    e.LastMessage.Content,
				"sender_id":  e.LastMessage.SenderID,
				"created_at": e.LastMessage.CreatedAt,
			}
		}
		matches = append(matches, m)
	}
	server.OK(c, gin.H{"matches": matches})
}

func (r *Registrar) likesGiven(c *gin.Context) {
	userID := server.CurrentUserID(c)

	entries, err := r.svc.GivenLikes(c.Request.Context(), userID)
	if err != nil {
		server.FailErr(c, err)
		return
	}
	server.OK(c, gin.H{"likes": likeEntriesJSON(entries)})
}

func (r *Registrar) likesReceived(c *gin.Context) {
	userID := server.CurrentUserID(c)

	var token *string
	if t := c.Query("page_token"); t != "" {
		token = &t
	}
	limit := queryInt(c, "limit")
	if limit <= 0 {
		limit = 20
	}

	entries, next, err := r.svc.ReceivedLikes(c.Request.Context(), userID, token, limit)
	if err != nil {
		server.FailErr(c, err)
		return
	}

	payload := gin.H{"likes": likeEntriesJSON(entries)}
	if next != nil {
		payload["next_page_token"] = *next
	}
	server.OK(c, payload)
}

func (r *Registrar) likesCount(c *gin.Context) {
	userID := server.CurrentUserID(c)

	count, err := r.svc.ReceivedCount(c.Request.Context(), userID)
	if err != nil {
		server.FailErr(c, err)
		return
	}
	server.OK(c, gin.H{"count": count})
}

func likeEntriesJSON(entries []LikeEntry) []gin.H {
	out := make([]gin.H, 0, len(entries))
	for _, e := range entries {
		out = append(out, gin.H{
			"user": gin.H{
				"id":            e.User.ID,
				"first_name":    e.User.FirstName,
				"age":           e.User.Age(),
				"city":          e.User.City,
				"profile_photo": e.User.ProfilePhoto,
			},
			"liked_at": e.Like.CreatedAt,
			"is_match": e.IsMatch,
		})
	}
	return out
}

func queryInt(c *gin.Context, key string) int {
	if v := c.Query(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 0
}
