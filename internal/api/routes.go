package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/saxenaaman628/trip-poll/internal/controller"
	"github.com/saxenaaman628/trip-poll/internal/middleware"
)

type Deps struct {
	Controller *controller.Controller
	Reader     *Reader
	JWTSecret  string
	TokenTTL   time.Duration
	// Metrics serves /metrics when set.
	Metrics http.Handler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics))
	}

	r.POST("/auth/anonymous", AnonymousLoginHandler(d.JWTSecret, d.TokenTTL))

	sessions := r.Group("/sessions/:id")
	{
		sessions.GET("", d.Reader.GetSessionByID)
		sessions.GET("/poll", d.Reader.GetPollByID)
		sessions.GET("/result", d.Reader.GetResult)
		sessions.GET("/events", d.Reader.StreamEvents)
		sessions.POST("/participants", middleware.OptionalJWTAuth(d.JWTSecret), d.Controller.JoinSessionHandler)
		sessions.POST("/generate", d.Controller.GenerateOptionsHandler)
	}

	auth := r.Group("/api")
	auth.Use(middleware.JWTAuthMiddleware(d.JWTSecret))
	{
		auth.POST("/sessions", d.Controller.CreateSessionHandler)
		auth.POST("/sessions/:id/vote", d.Controller.VoteHandler)
		auth.POST("/sessions/:id/close", d.Controller.CloseSessionHandler)
		auth.POST("/sessions/:id/cancel", d.Controller.CancelSessionHandler)
	}
}
