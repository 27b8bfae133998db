package controller

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/saxenaaman628/trip-poll/internal/models"
)

// SessionService is the write side of the trip poll service.
type SessionService interface {
	CreateSession(ctx context.Context, callerID, category string) (models.CreateSessionResponse, error)
	JoinSession(ctx context.Context, sessionID string, req models.JoinSessionRequest, callerID string) (models.JoinSessionResponse, error)
	GenerateOptions(ctx context.Context, sessionID string) (models.ActionResponse, error)
	Vote(ctx context.Context, sessionID, callerID, optionID string) (models.ActionResponse, error)
	Close(ctx context.Context, sessionID, callerID string) (models.Result, error)
	Cancel(ctx context.Context, sessionID, callerID string) (models.ActionResponse, error)
}

type Controller struct {
	svc SessionService
}

func New(svc SessionService) *Controller {
	return &Controller{svc: svc}
}

func (ctl *Controller) CreateSessionHandler(c *gin.Context) {
	var req models.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	res, err := ctl.svc.CreateSession(c.Request.Context(), CallerID(c), req.Category)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (ctl *Controller) JoinSessionHandler(c *gin.Context) {
	var req models.JoinSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	res, err := ctl.svc.JoinSession(c.Request.Context(), c.Param("id"), req, CallerID(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (ctl *Controller) GenerateOptionsHandler(c *gin.Context) {
	res, err := ctl.svc.GenerateOptions(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// CloseSessionHandler ends voting. Only the host may close.
func (ctl *Controller) CloseSessionHandler(c *gin.Context) {
	res, err := ctl.svc.Close(c.Request.Context(), c.Param("id"), CallerID(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (ctl *Controller) CancelSessionHandler(c *gin.Context) {
	res, err := ctl.svc.Cancel(c.Request.Context(), c.Param("id"), CallerID(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
