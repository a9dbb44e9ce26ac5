package model

import (
	"encoding/json"
	"time"
)

// TaskState is the lifecycle state of a background task.
type TaskState string

const (
	TaskPending   TaskState = "PENDING"
	TaskStarted   TaskState = "STARTED"
	TaskProgress  TaskState = "PROGRESS"
	TaskSuccess   TaskState = "SUCCESS"
	TaskFailure   TaskState = "FAILURE"
	TaskCancelled TaskState = "CANCELLED"
)

// Terminal reports whether no further transitions are allowed.
func (s TaskState) Terminal() bool {
	return s == TaskSuccess || s == TaskFailure || s == TaskCancelled
}

// Task is a pollable handle to a unit of background work.
type Task struct {
	ID        string          `json:"task_id"`
	Kind      string          `json:"kind"`
	State     TaskState       `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	Progress  int             `json:"progress,omitempty"`
}
