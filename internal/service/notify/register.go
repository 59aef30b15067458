package notify

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/meetapp/meet-backend/internal/app"
	"github.com/meetapp/meet-backend/internal/server"
)

// Registrar ties the notification service into the HTTP router.
type Registrar struct {
	svc *Service
}

func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{svc: NewService(appCtx)}
}

func (r *Registrar) Register(rt *server.Router) {
	rt.API.GET("/notifications", r.list)
	rt.API.DELETE("/notifications/:id", r.acknowledge)
}

func (r *Registrar) list(c *gin.Context) {
	userID := server.CurrentUserID(c)

	notifications, err := r.svc.List(c.Request.Context(), userID)
	if err != nil {
		server.FailErr(c, err)
		return
	}

	out := make([]gin.H, 0, len(notifications))
	for _, n := range notifications {
		out = append(out, gin.H{
			"id":         n.ID,
			"message":    n.Message,
			"type":       n.Kind,
			"created_at": n.CreatedAt,
		})
	}
	server.OK(c, gin.H{"notifications": out})
}

func (r *Registrar) acknowledge(c *gin.Context) {
	userID := server.CurrentUserID(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		server.Fail(c, http.StatusBadRequest, "identifiant de notification invalide")
		return
	}

	removed, err := r.svc.Acknowledge(c.Request.Context(), id, userID)
	if err != nil {
		server.FailErr(c, err)
		return
	}
	if !removed {
		server.Fail(c, http.StatusNotFound, "Notification non trouvée")
		return
	}
	server.OK(c, gin.H{})
}
