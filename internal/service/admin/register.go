package admin

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

// Registrar ties the admin service into the HTTP router. Everything lands
// under the admin-gated group.
type Registrar struct {
	svc *Service
}

func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{svc: NewService(appCtx)}
}

func (r *Registrar) Register(rt *server.Router) {
	rt.Admin.GET("/stats", r.stats)
	rt.Admin.GET("/activity", r.activity)
	rt.Admin.GET("/top-users", r.topUsers)
	rt.Admin.GET("/users", r.users)
	rt.Admin.GET("/users/:id", r.userDetails)
	rt.Admin.POST("/users/:id/toggle", r.toggleUser)
	rt.Admin.DELETE("/users/:id", r.deleteUser)
	rt.Admin.POST("/cleanup", r.cleanup)
	rt.Admin.GET("/export", r.export)
}

func (r *Registrar) stats(c *gin.Context) {
	stats, err := r.svc.Dashboard(c.Request.Context())
	if err != nil {
		server.FailErr(c, err)
		return
	}
	server.OK(c, gin.H{"stats": gin.H{
		"total_users":          stats.TotalUsers,
		"active_users":         stats.ActiveUsers,
		"total_matches":        stats.TotalMatches,
		"total_likes":          stats.TotalLikes,
		"live_messages":        stats.LiveMessages,
		"new_users_7d":         stats.NewUsers7d,
		"new_matches_24h":      stats.NewMatches24h,
		"messages_24h":         stats.Messages24h,
		"active_conversations": stats.ActiveConversations,
		"activity_rate":        stats.ActivityRate,
	}})
}

func (r *Registrar) activity(c *gin.Context) {
	days := queryInt(c, "days", 30)

	stats, err := r.svc.Activity(c.Request.Context(), days)
	if err != nil {
		server.FailErr(c, err)
		return
	}
	server.OK(c, gin.H{"activity": gin.H{
		"users":    dayCountsJSON(stats.Users),
		"likes":    dayCountsJSON(stats.Likes),
		"matches":  dayCountsJSON(stats.Matches),
		"messages": dayCountsJSON(stats.Messages),
	}})
}

func (r *Registrar) topUsers(c *gin.Context) {
	metric := c.DefaultQuery("metric", "matches")
	limit := queryInt(c, "limit", 10)

	entries, err := r.svc.TopUsers(c.Request.Context(), metric, limit)
	if err != nil {
		server.FailErr(c, err)
		return
	}

	out := make([]gin.H, 0, len(entries))
	for _, e := range entries {
		out = append(out, gin.H{
			"user":  userSummaryJSON(&e.User),
			"count": e.Count,
		})
	}
	server.OK(c, gin.H{"metric": metric, "top_users": out})
}

func (r *Registrar) users(c *gin.Context) {
	filters := repository.UserListFilters{
		Search:  c.Query("search"),
		Status:  c.Query("status"),
		Page:    queryInt(c, "page", 1),
		PerPage: queryInt(c, "per_page", 20),
	}

	users, total, err := r.svc.Users(c.Request.Context(), filters)
	if err != nil {
		server.FailErr(c, err)
		return
	}

	out := make([]gin.H, 0, len(users))
	for i := range users {
		out = append(out, userSummaryJSON(&users[i]))
	}
	server.OK(c, gin.H{
		"users": out,
		"total": total,
		"page":  filters.Page,
	})
}

func (r *Registrar) userDetails(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	details, err := r.svc.UserDetails(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			server.Fail(c, http.StatusNotFound, "Utilisateur non trouvé")
			return
		}
		server.FailErr(c, err)
		return
	}

	user := userSummaryJSON(details.User)
	user["bio"] = details.User.Bio
	user["interested_in"] = details.User.InterestedIn
	user["is_admin"] = details.User.IsAdmin
	user["is_verified"] = details.User.IsVerified

	server.OK(c, gin.H{
		"user": user,
		"stats": gin.H{
			"likes_given":    details.Stats.LikesGiven,
			"likes_received": details.Stats.LikesReceived,
			"matches":        details.Stats.Matches,
			"messages_sent":  details.Stats.MessagesSent,
		},
	})
}

func (r *Registrar) toggleUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	active, err := r.svc.ToggleUserStatus(c.Request.Context(), server.CurrentUserID(c), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			server.Fail(c, http.StatusNotFound, "Utilisateur non trouvé")
			return
		}
		server.FailErr(c, err)
		return
	}
	server.OK(c, gin.H{"is_active": active})
}

func (r *Registrar) deleteUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := r.svc.DeleteUser(c.Request.Context(), server.CurrentUserID(c), id); err != nil {
		server.FailErr(c, err)
		return
	}
	server.OK(c, gin.H{"message": "Utilisateur supprimé"})
}

func (r *Registrar) cleanup(c *gin.Context) {
	report, err := r.svc.Cleanup(c.Request.Context())
	if err != nil {
		server.FailErr(c, err)
		return
	}
	server.OK(c, gin.H{"cleaned": gin.H{
		"messages":      report.Messages,
		"notifications": report.Notifications,
		"stale_likes":   report.StaleLikes,
	}})
}

func (r *Registrar) export(c *gin.Context) {
	data, err := r.svc.Export(c.Request.Context())
	if err != nil {
		server.FailErr(c, err)
		return
	}
	server.OK(c, gin.H{"export": gin.H{
		"users":          data.Users,
		"matches":        data.Matches,
		"messages":       data.Messages,
		"likes":          data.Likes,
		"interests":      data.Interests,
		"user_interests": data.UserInterests,
	}})
}

func userSummaryJSON(u *db.User) gin.H {
	return gin.H{
		"id":            u.ID,
		"first_name":    u.FirstName,
		"last_name":     u.LastName,
		"email":         u.Email,
		"age":           u.Age(),
		"gender":        u.Gender,
		"city":          u.City,
		"is_active":     u.IsActive,
		"created_at":    u.CreatedAt,
		"last_active":   u.LastActive,
		"profile_photo": u.ProfilePhoto,
	}
}

func dayCountsJSON(counts []repository.DayCount) []gin.H {
	out := make([]gin.H, 0, len(counts))
	for _, dc := range counts {
		out = append(out, gin.H{"day": dc.Day, "count": dc.Count})
	}
	return out
}

func pathID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		server.Fail(c, http.StatusBadRequest, "identifiant invalide")
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
