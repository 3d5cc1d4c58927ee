package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"focusvillage/backend/internal/coach"
	apperrors "focusvillage/backend/internal/errors"
	"focusvillage/backend/internal/service"
)

type CoachHandler struct {
	sessions *service.Sessions
	coach    *coach.Coach
}

type chatRequest struct {
	Messages []coach.Message `json:"messages"`
}

func NewCoachHandler(sessions *service.Sessions, coachService *coach.Coach) *CoachHandler {
	return &CoachHandler{sessions: sessions, coach: coachService}
}

func (h *CoachHandler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeInvalidJSON(c)
		return
	}
	if len(req.Messages) == 0 {
		writeError(c, apperrors.BadRequest("empty_conversation", "at least one message is required"))
		return
	}

	session, ok := sessionFor(c, h.sessions)
	if !ok {
		return
	}

	reply, apiErr := h.coach.Chat(c.Request.Context(), session.Progress.Snapshot(), req.Messages)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reply": reply})
}
