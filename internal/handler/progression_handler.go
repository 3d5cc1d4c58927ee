package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "focusvillage/backend/internal/errors"
	"focusvillage/backend/internal/service"
)

type ProgressionHandler struct {
	sessions *service.Sessions
}

type harvestRequest struct {
	Tier int `json:"tier"`
}

func NewProgressionHandler(sessions *service.Sessions) *ProgressionHandler {
	return &ProgressionHandler{sessions: sessions}
}

func (h *ProgressionHandler) GetProfile(c *gin.Context) {
	session, ok := sessionFor(c, h.sessions)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": session.Progress.Snapshot()})
}

func (h *ProgressionHandler) GetHistory(c *gin.Context) {
	session, ok := sessionFor(c, h.sessions)
	if !ok {
		return
	}

	limit := 50
	if rawLimit := c.Query("limit"); rawLimit != "" {
		if parsed, err := strconv.Atoi(rawLimit); err == nil {
			limit = parsed
		}
	}
	c.JSON(http.StatusOK, gin.H{"sessions": session.Progress.History(limit)})
}

func (h *ProgressionHandler) Harvest(c *gin.Context) {
	var req harvestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeInvalidJSON(c)
		return
	}

	session, ok := sessionFor(c, h.sessions)
	if !ok {
		return
	}

	item, err := session.Progress.Harvest(c.Request.Context(), req.Tier)
	switch err {
	case nil:
	case apperrors.ErrInsufficientResources:
		writeError(c, apperrors.BadRequest("insufficient_resources", "not enough resource points for this tier"))
		return
	case apperrors.ErrAlreadyHarvested:
		writeError(c, apperrors.Conflict("already_harvested", "this item was already harvested", nil))
		return
	case apperrors.ErrNotFound:
		writeError(c, apperrors.BadRequest("invalid_tier", "unknown harvest tier"))
		return
	default:
		writeError(c, apperrors.Internal(""))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"item":    item,
		"profile": session.Progress.Snapshot(),
	})
}
