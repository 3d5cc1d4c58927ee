package model

import "time"

const (
	TaskStatusTodo       = "todo"
	TaskStatusInProgress = "in_progress"
	TaskStatusDone       = "done"
)

const (
	PriorityToday  = "today"
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

type Task struct {
	ID                    string     `json:"id"`
	Title                 string     `json:"title"`
	Status                string     `json:"status"`
	Priority              string     `json:"priority"`
	Category              string     `json:"category"`
	TargetSessionCount    int        `json:"targetSessionCount"`
	CompletedSessionCount int        `json:"completedSessionCount"`
	CreatedAt             time.Time  `json:"createdAt"`
	CompletedAt           *time.Time `json:"completedAt,omitempty"`
}

// TaskDocument is the persisted shape of one identity's task state: the
// list plus the focused-task pointer, written as a single named field of the
// identity's document.
type TaskDocument struct {
	Tasks         []Task `json:"tasks"`
	FocusedTaskID string `json:"focusedTaskId,omitempty"`
}

func IsValidTaskStatus(status string) bool {
	return status == TaskStatusTodo || status == TaskStatusInProgress || status == TaskStatusDone
}

func IsValidPriority(priority string) bool {
	return priority == PriorityToday || priority == PriorityHigh ||
		priority == PriorityMedium || priority == PriorityLow
}
