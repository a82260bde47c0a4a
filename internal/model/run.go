package model

import "time"

// RunStatus is the durable status of an import run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// ImportRun is the audit record of one import cycle.
type ImportRun struct {
	ID                   string     `json:"id" db:"id"`
	Status               RunStatus  `json:"status" db:"status"`
	StartedAt            time.Time  `json:"started_at" db:"started_at"`
	CompletedAt          *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	CompaniesInDirectory int64      `json:"companies_in_directory" db:"companies_in_directory"`
	CompaniesProcessed   int64      `json:"companies_processed" db:"companies_processed"`
	FactsInserted        int64      `json:"facts_inserted" db:"facts_inserted"`
	ProfilesWritten      int64      `json:"profiles_written" db:"profiles_written"`
	EntriesSkipped       int64      `json:"entries_skipped" db:"entries_skipped"`
	EntriesFailed        int64      `json:"entries_failed" db:"entries_failed"`
	Error                *string    `json:"error,omitempty" db:"error"`
}

// RunTotals are the counters written when a run is finalized.
type RunTotals struct {
	CompaniesInDirectory int64
	CompaniesProcessed   int64
	FactsInserted        int64
	ProfilesWritten      int64
	EntriesSkipped       int64
	EntriesFailed        int64
}
