package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/saxenaaman628/trip-poll/internal/models"
)

func (ctl *Controller) VoteHandler(c *gin.Context) {
	var payload models.VoteRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		bindError(c, err)
		return
	}

	res, err := ctl.svc.Vote(c.Request.Context(), c.Param("id"), CallerID(c), payload.OptionID)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
