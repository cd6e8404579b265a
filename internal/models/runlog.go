package models

import (
	"time"
)

// RunStatus is the lifecycle of an import run. Runs move from running to
// exactly one terminal state: completed (normal end, even with item errors)
// or failed (the fetch itself failed).
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// ImportRunLog is one record per orchestrator invocation. Created at run
// start, finalized exactly once at run end. ItemsFound always reconciles to
// ItemsImported + ItemsSkipped + ItemsErrored on a finalized run.
type ImportRunLog struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	SourceName    string     `gorm:"index;not null" json:"source_name"`
	Platform      Platform   `gorm:"index;not null" json:"platform"`
	Status        RunStatus  `gorm:"index;not null;default:'running'" json:"status"`
	ItemsFound    int        `json:"items_found"`
	ItemsImported int        `json:"items_imported"`
	ItemsSkipped  int        `json:"items_skipped"`
	ItemsErrored  int        `json:"items_errored"`
	ErrorMessage  string     `json:"error_message,omitempty"`
	StartedAt     time.Time  `gorm:"index;not null" json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}
