package leaguestats

import (
	"fmt"
	"time"

	"github.com/spf13/cast"
)

// StampExportedAt returns a copy of table whose exported_at column holds
// zone-less UTC instants.
//
// Without the column, every row gets now. With the column already present the
// existing values are coerced: zone-aware values are converted to UTC, values
// without a zone are kept as UTC wall clock, nil stays nil. A value that cannot
// be read as a timestamp fails the whole call.
func StampExportedAt(table Table, now time.Time) (Table, error) {
	out := table.clone()

	idx := out.columnIndex(ExportedAtColumn)
	if idx < 0 {
		stamp := toNaiveUTC(now)
		out.Columns = append(out.Columns, Column{Name: ExportedAtColumn, Type: ColumnTypeTimestamp})
		for _, row := range out.Rows {
			row[ExportedAtColumn] = stamp
		}
		return out, nil
	}

	out.Columns[idx].Type = ColumnTypeTimestamp
	for i, row := range out.Rows {
		value, err := NormalizeTimestamp(row[ExportedAtColumn])
		if err != nil {
			return Table{}, fmt.Errorf("row %d: %w", i, err)
		}
		row[ExportedAtColumn] = value
	}
	return out, nil
}

// NormalizeTimestamp coerces one datetime-like value into a UTC time.Time
// truncated to microseconds. nil is returned unchanged.
func NormalizeTimestamp(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return toNaiveUTC(v), nil
	case *time.Time:
		if v == nil {
			return nil, nil
		}
		return toNaiveUTC(*v), nil
	}

	parsed, err := cast.ToTimeInDefaultLocationE(value, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTimestamp, err)
	}
	return toNaiveUTC(parsed), nil
}

func toNaiveUTC(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
