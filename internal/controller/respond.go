package controller

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/saxenaaman628/trip-poll/internal/apperr"
	"github.com/saxenaaman628/trip-poll/internal/middleware"
	"github.com/saxenaaman628/trip-poll/internal/models"
)

// RespondError writes err as {"error", "kind"} with the status of its kind.
// Unclassified errors are logged and reported as internal.
func RespondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal || kind == apperr.KindExternal {
		slog.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "kind", kind, "error", err)
	}
	c.AbortWithStatusJSON(apperr.HTTPStatus(kind), models.ErrorResponse{
		Error: apperr.MessageOf(err),
		Kind:  string(kind),
	})
}

// CallerID is the authenticated user id, or "" for anonymous requests.
func CallerID(c *gin.Context) string {
	return c.GetString(middleware.UserIDKey)
}

func bindError(c *gin.Context, err error) {
	RespondError(c, apperr.Validation("invalid request: "+err.Error()))
}
