package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "focusvillage/backend/internal/errors"
	"focusvillage/backend/internal/model"
	"focusvillage/backend/internal/service"
)

type TimerHandler struct {
	sessions *service.Sessions
}

type switchModeRequest struct {
	Mode string `json:"mode"`
}

type customDurationRequest struct {
	Seconds int `json:"seconds"`
}

func NewTimerHandler(sessions *service.Sessions) *TimerHandler {
	return &TimerHandler{sessions: sessions}
}

func (h *TimerHandler) GetState(c *gin.Context) {
	session, ok := sessionFor(c, h.sessions)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": session.Clock.Snapshot()})
}

func (h *TimerHandler) Start(c *gin.Context) {
	session, ok := sessionFor(c, h.sessions)
	if !ok {
		return
	}
	session.Clock.Start()
	c.JSON(http.StatusOK, gin.H{"state": session.Clock.Snapshot()})
}

func (h *TimerHandler) Pause(c *gin.Context) {
	session, ok := sessionFor(c, h.sessions)
	if !ok {
		return
	}
	session.Clock.Pause()
	c.JSON(http.StatusOK, gin.H{"state": session.Clock.Snapshot()})
}

func (h *TimerHandler) Reset(c *gin.Context) {
	session, ok := sessionFor(c, h.sessions)
	if !ok {
		return
	}
	session.Clock.Reset(session.Clock.Snapshot().Mode)
	c.JSON(http.StatusOK, gin.H{"state": session.Clock.Snapshot()})
}

func (h *TimerHandler) SwitchMode(c *gin.Context) {
	var req switchModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeInvalidJSON(c)
		return
	}
	if !model.IsValidMode(req.Mode) {
		writeError(c, apperrors.BadRequest("invalid_mode", "mode must be one of focus, short_break, long_break"))
		return
	}

	session, ok := sessionFor(c, h.sessions)
	if !ok {
		return
	}
	session.Clock.Reset(req.Mode)
	c.JSON(http.StatusOK, gin.H{"state": session.Clock.Snapshot()})
}

func (h *TimerHandler) SetCustomDuration(c *gin.Context) {
	var req customDurationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeInvalidJSON(c)
		return
	}
	if req.Seconds <= 0 {
		writeError(c, apperrors.BadRequest("invalid_duration", "seconds must be positive"))
		return
	}

	session, ok := sessionFor(c, h.sessions)
	if !ok {
		return
	}
	session.Clock.SetCustomDuration(req.Seconds)
	c.JSON(http.StatusOK, gin.H{"state": session.Clock.Snapshot()})
}
