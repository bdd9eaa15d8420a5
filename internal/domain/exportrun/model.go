package exportrun

import "time"

const (
	StatusSucceeded = "SUCCEEDED"
	StatusFailed    = "FAILED"
)

// Run is the audit entry written for one destination table per export run.
type Run struct {
	Statistic    string
	TableSchema  string
	TableName    string
	LeagueID     int64
	Season       int
	RowsWritten  int64
	Status       string
	ErrorMessage string
	ExportedAt   time.Time
}
