package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "focusvillage/backend/internal/errors"
	"focusvillage/backend/internal/service"
	"focusvillage/backend/internal/task"
)

type TaskHandler struct {
	sessions *service.Sessions
}

type newTaskRequest struct {
	Title              string `json:"title"`
	Priority           string `json:"priority"`
	Category           string `json:"category"`
	TargetSessionCount int    `json:"targetSessionCount"`
}

type patchTaskRequest struct {
	Title              *string `json:"title"`
	Status             *string `json:"status"`
	Priority           *string `json:"priority"`
	Category           *string `json:"category"`
	TargetSessionCount *int    `json:"targetSessionCount"`
}

func NewTaskHandler(sessions *service.Sessions) *TaskHandler {
	return &TaskHandler{sessions: sessions}
}

func (h *TaskHandler) List(c *gin.Context) {
	session, ok := sessionFor(c, h.sessions)
	if !ok {
		return
	}
	tasks, focusedID := session.Tasks.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"tasks":         tasks,
		"focusedTaskId": focusedID,
	})
}

func (h *TaskHandler) Create(c *gin.Context) {
	var req newTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeInvalidJSON(c)
		return
	}

	session, ok := sessionFor(c, h.sessions)
	if !ok {
		return
	}

	created, err := session.Tasks.AddTask(task.NewTaskInput{
		Title:              req.Title,
		Priority:           req.Priority,
		Category:           req.Category,
		TargetSessionCount: req.TargetSessionCount,
	})
	if err != nil {
		writeError(c, apperrors.BadRequest("invalid_title", "task title must not be empty"))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"task": created})
}

func (h *TaskHandler) Update(c *gin.Context) {
	var req patchTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeInvalidJSON(c)
		return
	}

	session, ok := sessionFor(c, h.sessions)
	if !ok {
		return
	}

	updated, found := session.Tasks.UpdateTask(c.Param("id"), task.Patch{
		Title:              req.Title,
		Status:             req.Status,
		Priority:           req.Priority,
		Category:           req.Category,
		TargetSessionCount: req.TargetSessionCount,
	})
	if !found {
		writeError(c, apperrors.NotFound("task_not_found", "task not found"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": updated})
}

func (h *TaskHandler) Delete(c *gin.Context) {
	session, ok := sessionFor(c, h.sessions)
	if !ok {
		return
	}
	if !session.Tasks.DeleteTask(c.Param("id")) {
		writeError(c, apperrors.NotFound("task_not_found", "task not found"))
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *TaskHandler) Focus(c *gin.Context) {
	session, ok := sessionFor(c, h.sessions)
	if !ok {
		return
	}
	selected, err := session.Tasks.SelectFocusedTask(c.Param("id"))
	if err != nil {
		writeError(c, apperrors.NotFound("task_not_found", "task not found"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": selected})
}
