package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/meetapp/meet-backend/internal/config"
	"github.com/meetapp/meet-backend/internal/logger"
)

const (
	ctxUserID  = "user_id"
	ctxIsAdmin = "is_admin"
)

// AuthRequired validates the bearer token and stores the caller's identity
// on the request context.
func AuthRequired(cfg *config.Config) gin.HandlerFunc {
	secret := []byte(cfg.JWT.Secret)

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			Fail(c, http.StatusUnauthorized, "missing or invalid Authorization header")
			c.Abort()
			return
		}

		token, err := jwt.Parse(authHeader[7:], func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrInvalidKeyType
			}
			return secret, nil
		})
		if err != nil || !token.Valid {
			Fail(c, http.StatusUnauthorized, "invalid token")
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			Fail(c, http.StatusUnauthorized, "invalid claims")
			c.Abort()
			return
		}

		uid, ok := claims["uid"].(float64)
		if !ok || uid <= 0 {
			Fail(c, http.StatusUnauthorized, "invalid claims")
			c.Abort()
			return
		}
		admin, _ := claims["adm"].(bool)

		c.Set(ctxUserID, uint64(uid))
		c.Set(ctxIsAdmin, admin)
		c.Next()
	}
}

// AdminRequired rejects callers without the admin flag. Must run after
// AuthRequired.
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool(ctxIsAdmin) {
			Fail(c, http.StatusForbidden, "admin access required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUserID returns the authenticated caller's user id.
func CurrentUserID(c *gin.Context) uint64 {
	if v, ok := c.Get(ctxUserID); ok {
		if id, ok := v.(uint64); ok {
			return id
		}
	}
	return 0
}

// IssueToken mints a signed bearer token for the user.
func IssueToken(cfg *config.Config, userID uint64, isAdmin bool) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"uid": userID,
		"adm": isAdmin,
		"exp": time.Now().Add(time.Duration(cfg.JWT.TTLHours) * time.Hour).Unix(),
	})
	return token.SignedString([]byte(cfg.JWT.Secret))
}

// RequestLogger emits one structured line per request.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
