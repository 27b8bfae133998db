package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/saxenaaman628/trip-poll/internal/apperr"
	"github.com/saxenaaman628/trip-poll/internal/controller"
	"github.com/saxenaaman628/trip-poll/internal/models"
	"github.com/saxenaaman628/trip-poll/internal/store"
)

// SessionReader is the read side of the trip poll service.
type SessionReader interface {
	GetSession(ctx context.Context, sessionID string) (models.SessionDetails, error)
	GetPoll(ctx context.Context, sessionID string) (models.Poll, error)
	GetResult(ctx context.Context, sessionID string) (models.Result, error)
	Watch(ctx context.Context, sessionID string) (*store.Subscription, error)
}

type Reader struct {
	svc SessionReader
}

func NewReader(svc SessionReader) *Reader {
	return &Reader{svc: svc}
}

func (r *Reader) GetSessionByID(c *gin.Context) {
	details, err := r.svc.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		controller.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

func (r *Reader) GetPollByID(c *gin.Context) {
	poll, err := r.svc.GetPoll(c.Request.Context(), c.Param("id"))
	if err != nil {
		controller.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, poll)
}

func (r *Reader) GetResult(c *gin.Context) {
	res, err := r.svc.GetResult(c.Request.Context(), c.Param("id"))
	if err != nil {
		controller.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// StreamEvents pushes a "snapshot" server-sent event for the current state and
// after every committed change. The stream ends once the session is
// terminal or the client goes away.
func (r *Reader) StreamEvents(c *gin.Context) {
	sub, err := r.svc.Watch(c.Request.Context(), c.Param("id"))
	if err != nil {
		controller.RespondError(c, err)
		return
	}
	defer sub.Close()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	for view, err := range sub.Snapshots() {
		if err != nil {
			c.SSEvent("error", models.ErrorResponse{Error: "failed to read session", Kind: string(apperr.KindInternal)})
			c.Writer.Flush()
			return
		}
		c.SSEvent("snapshot", view)
		c.Writer.Flush()
		if view.Session.PollState.Terminal() {
			return
		}
	}
}
