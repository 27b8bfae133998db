package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/saxenaaman628/trip-poll/internal/apperr"
	"github.com/saxenaaman628/trip-poll/internal/models"
	"github.com/saxenaaman628/trip-poll/internal/utils"
)

// Context keys set for authenticated callers.
const (
	UserIDKey = "userID"
	RoleKey   = "role"
)

// JWTAuthMiddleware rejects requests without a valid bearer token.
func JWTAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearer(c)
		if !ok {
			abort(c, "authorization header missing or malformed")
			return
		}
		if !authenticate(c, raw, secret) {
			return
		}
		c.Next()
	}
}

// OptionalJWTAuth identifies the caller when a token is sent and lets
// anonymous requests through. A token that is present but invalid is still
// rejected.
func OptionalJWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearer(c)
		if !ok {
			c.Next()
			return
		}
		if !authenticate(c, raw, secret) {
			return
		}
		c.Next()
	}
}

func bearer(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	token = strings.TrimSpace(token)
	return token, found && token != ""
}

func authenticate(c *gin.Context, raw, secret string) bool {
	id, role, err := utils.ParseJWTToken(raw, secret)
	if err != nil {
		abort(c, "invalid or expired token")
		return false
	}
	c.Set(UserIDKey, id)
	c.Set(RoleKey, role)
	return true
}

func abort(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
		Error: msg,
		Kind:  string(apperr.KindAuth),
	})
}
