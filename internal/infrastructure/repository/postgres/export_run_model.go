package postgres

import "time"

type exportRunTableModel struct {
	ID           int64     `db:"id,readonly"`
	Statistic    string    `db:"statistic"`
	TableSchema  string    `db:"table_schema"`
	TableName    string    `db:"table_name"`
	LeagueID     int64     `db:"league_id"`
	Season       int       `db:"season"`
	RowsWritten  int64     `db:"rows_written"`
	Status       string    `db:"status"`
	ErrorMessage string    `db:"error_message"`
	ExportedAt   time.Time `db:"exported_at"`
	CreatedAt    time.Time `db:"created_at,readonly"`
}
