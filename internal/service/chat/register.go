package chat

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/meetapp/meet-backend/internal/app"
	"github.com/meetapp/meet-backend/internal/db"
	"github.com/meetapp/meet-backend/internal/server"
)

// Registrar ties the chat service into the HTTP router.
type Registrar struct {
	svc *Service
}

func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{svc: NewService(appCtx)}
}

// Register attaches the messaging endpoints to the authenticated API group.
func (r *Registrar) Register(rt *server.Router) {
	rt.API.POST("/send-message", r.sendMessage)
	rt.API.GET("/messages/:id", r.conversation)
	rt.API.GET("/conversations", r.conversations)
}

func (r *Registrar) sendMessage(c *gin.Context) {
	userID := server.CurrentUserID(c)

	var req struct {
		ReceiverID uint64 `json:"receiver_id" binding:"required"`
		Content    string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		server.Fail(c, http.StatusBadRequest, "Données manquantes")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		server.Fail(c, http.StatusBadRequest, "Message vide")
		return
	}

	msg, err := r.svc.SendMessage(c.Request.Context(), userID, req.ReceiverID, req.Content)
	if err != nil {
		server.FailErr(c, err)
		return
	}
	if msg == nil {
		server.Fail(c, http.StatusBadRequest, "Vous devez matcher pour envoyer un message")
		return
	}

	server.OK(c, gin.H{"message": messageJSON(msg)})
}

func (r *Registrar) conversation(c *gin.Context) {
	userID := server.CurrentUserID(c)

	otherID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || otherID == 0 {
		server.Fail(c, http.StatusBadRequest, "identifiant utilisateur invalide")
		return
	}

	messages, err := r.svc.Conversation(c.Request.Context(), userID, otherID)
	if err != nil {
		server.FailErr(c, err)
		return
	}

	out := make([]gin.H, 0, len(messages))
	for i := range messages {
		out = append(out, messageJSON(&messages[i]))
	}
	server.OK(c, gin.H{"messages": out})
}

func (r *Registrar) conversations(c *gin.Context) {
	userID := server.CurrentUserID(c)

	entries, err := r.svc.Conversations(c.Request.Context(), userID)
	if err != nil {
		server.FailErr(c, err)
		return
	}

	out := make([]gin.H, 0, len(entries))
	for _, e := range entries {
		entry := gin.H{
			"user": gin.H{
				"id":            e.User.ID,
				"first_name":    e.User.FirstName,
				"profile_photo": e.User.ProfilePhoto,
			},
		}
		if e.LastMessage != nil {
			entry["last_message"] = messageJSON(e.LastMessage)
		}
		out = append(out, entry)
	}
	server.OK(c, gin.H{"conversations": out})
}

func messageJSON(m *db.Message) gin.H {
	return gin.H{
		"id":                m.ID,
		"content":           m.Content,
		"sender_id":         m.SenderID,
		"receiver_id":       m.ReceiverID,
		"created_at":        m.CreatedAt,
		"expires_at":        m.ExpiresAt,
		"time_until_expiry": timeUntilExpiry(m.ExpiresAt),
	}
}

// timeUntilExpiry renders the remaining lifetime as "3h 12m" / "45m", or
// "Expiré" once past.
func timeUntilExpiry(expiresAt time.Time) string {
	remaining := time.Until(expiresAt)
	if remaining <= 0 {
		return "Expiré"
	}
	hours := int(remaining.Hours())
	minutes := int(remaining.Minutes()) % 60
	if hours > 0 {
		return strconv.Itoa(hours) + "h " + strconv.Itoa(minutes) + "m"
	}
	return strconv.Itoa(minutes) + "m"
}
