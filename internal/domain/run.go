package domain

import "time"

// RunStatus is the outcome of a rename run.
type RunStatus string

const (
	RunSuccess RunStatus = "success"
	RunError   RunStatus = "error"
)

// RunLog is a historical record of one rename run.
type RunLog struct {
	ID           string    `json:"id"`
	ManifestPath string    `json:"manifestPath"`
	TargetFolder string    `json:"targetFolder"`
	Trigger      string    `json:"trigger"` // "manual" | "watch" | "schedule" | "mcp"
	StartedAt    time.Time `json:"startedAt"`
	FinishedAt   time.Time `json:"finishedAt"`
	Status       RunStatus `json:"status"`
	FilesWritten int       `json:"filesWritten"`
	RowsWritten  int       `json:"rowsWritten"`
	Error        string    `json:"error,omitempty"`
}

// RunLogStore persists run history.
type RunLogStore interface {
	CreateRunLog(log *RunLog) error
	ListRunLogs(manifestPath string, limit int) ([]RunLog, error)
}
