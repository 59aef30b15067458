package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/meetapp/meet-backend/internal/errors"
)

// OK writes the success envelope with the extra payload fields merged in.
func OK(c *gin.Context, payload gin.H) {
	body := gin.H{"success": true}
	for k, v := range payload {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

// Fail writes the error envelope with the given status.
func Fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"success": false, "error": msg})
}

// FailErr maps a service/repo error to a status and writes the envelope.
func FailErr(c *gin.Context, err error) {
	status, msg := apperrors.HTTPStatus(err)
	Fail(c, status, msg)
}
