package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/saxenaaman628/trip-poll/internal/apperr"
	"github.com/saxenaaman628/trip-poll/internal/controller"
	"github.com/saxenaaman628/trip-poll/internal/models"
	"github.com/saxenaaman628/trip-poll/internal/utils"
)

// AnonymousLoginHandler issues a guest identity. Every call mints a new id.
func AnonymousLoginHandler(secret string, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.NewString()
		token, err := utils.GenerateJWTToken(id, utils.RoleGuest, secret, ttl)
		if err != nil {
			controller.RespondError(c, apperr.Internal("failed to generate token", err))
			return
		}
		slog.Debug("anonymous token issued", "user", id)
		c.JSON(http.StatusOK, models.TokenResponse{Token: token, UserID: id})
	}
}
