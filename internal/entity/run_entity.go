package entity

import "time"

type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

func (s RunStatus) Terminal() bool {
	return s == RunStatusSucceeded || s == RunStatusFailed
}

// RunRecord tracks an asynchronous workflow run.
type RunRecord struct {
	Id        string
	Inquiry   Inquiry
	Status    RunStatus
	Result    *WorkflowResult
	Error     string
	Attempts  int
	CreatedAt time.Time
	UpdatedAt time.Time
}
