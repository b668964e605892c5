package controllers

import (
	"net/http"
	"strconv"

	"vm-rental/internal/apperrors"

	"github.com/gin-gonic/gin"
)

// respondErr translates a service error into an HTTP response. AppError
// kinds carry their own status; anything else is an internal error and its
// details stay out of the response body.
func respondErr(c *gin.Context, err error) {
	if appErr, ok := apperrors.As(err); ok {
		body := gin.H{
			"error":  appErr.Message,
			"kind":   appErr.Kind.String(),
			"entity": appErr.Entity,
			"action": appErr.Action,
		}
		if appErr.Kind == apperrors.KindUpstream {
			body["retryable"] = true
		}
		c.JSON(appErr.HTTPStatus(), body)
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

// pathID parses the numeric :id route parameter. A response has already
// been written when ok is false.
func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}
