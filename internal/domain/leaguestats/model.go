package leaguestats

import (
	"fmt"
	"sort"
	"strings"
)

// Statistic names one category of league data with its own fixed record shape.
type Statistic string

const (
	StatisticStandings  Statistic = "standings"
	StatisticTopScorers Statistic = "top_scorers"
	StatisticTopAssists Statistic = "top_assists"
)

// AllStatistics returns every statistic in export order.
func AllStatistics() []Statistic {
	return []Statistic{StatisticStandings, StatisticTopScorers, StatisticTopAssists}
}

func ParseStatistic(raw string) (Statistic, error) {
	value := Statistic(strings.ToLower(strings.TrimSpace(raw)))
	if !value.Valid() {
		return "", fmt.Errorf("unknown statistic %q", raw)
	}
	return value, nil
}

func (s Statistic) Valid() bool {
	switch s {
	case StatisticStandings, StatisticTopScorers, StatisticTopAssists:
		return true
	default:
		return false
	}
}

func (s Statistic) String() string {
	return string(s)
}

type ColumnType int

const (
	ColumnTypeText ColumnType = iota
	ColumnTypeInteger
	ColumnTypeReal
	ColumnTypeTimestamp
)

func (t ColumnType) String() string {
	switch t {
	case ColumnTypeInteger:
		return "integer"
	case ColumnTypeReal:
		return "real"
	case ColumnTypeTimestamp:
		return "timestamp"
	default:
		return "text"
	}
}

type Column struct {
	Name string
	Type ColumnType
}

// Record is one flat row keyed by column name. Values are nil, int64, float64,
// string or time.Time.
type Record map[string]any

// Table is an ordered sequence of records sharing one column set.
type Table struct {
	Statistic Statistic
	Columns   []Column
	Rows      []Record
}

// NewTable returns an empty table carrying the schema of the statistic.
func NewTable(stat Statistic) Table {
	return Table{
		Statistic: stat,
		Columns:   ColumnsFor(stat),
	}
}

func (t Table) Len() int {
	return len(t.Rows)
}

func (t Table) ColumnNames() []string {
	out := make([]string, 0, len(t.Columns))
	for _, col := range t.Columns {
		out = append(out, col.Name)
	}
	return out
}

func (t Table) HasColumn(name string) bool {
	return t.columnIndex(name) >= 0
}

func (t Table) columnIndex(name string) int {
	for i, col := range t.Columns {
		if col.Name == name {
			return i
		}
	}
	return -1
}

// Append adds a record after checking it carries exactly the table columns.
func (t *Table) Append(record Record) error {
	if err := t.checkRecord(record); err != nil {
		return fmt.Errorf("row %d: %w", len(t.Rows), err)
	}
	t.Rows = append(t.Rows, record)
	return nil
}

func (t Table) Validate() error {
	if len(t.Columns) == 0 {
		return fmt.Errorf("table has no columns")
	}
	seen := make(map[string]struct{}, len(t.Columns))
	for _, col := range t.Columns {
		if strings.TrimSpace(col.Name) == "" {
			return fmt.Errorf("table has an empty column name")
		}
		if _, ok := seen[col.Name]; ok {
			return fmt.Errorf("duplicate column %q", col.Name)
		}
		seen[col.Name] = struct{}{}
	}
	for i, row := range t.Rows {
		if err := t.checkRecord(row); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}
	return nil
}

func (t Table) checkRecord(record Record) error {
	if len(record) != len(t.Columns) {
		return fmt.Errorf("%w: got columns %v, want %v", ErrNonUniformRecord, sortedKeys(record), t.ColumnNames())
	}
	for _, col := range t.Columns {
		if _, ok := record[col.Name]; !ok {
			return fmt.Errorf("%w: missing column %q", ErrNonUniformRecord, col.Name)
		}
	}
	return nil
}

func (t Table) clone() Table {
	out := Table{
		Statistic: t.Statistic,
		Columns:   append([]Column(nil), t.Columns...),
		Rows:      make([]Record, 0, len(t.Rows)),
	}
	for _, row := range t.Rows {
		copied := make(Record, len(row)+1)
		for k, v := range row {
			copied[k] = v
		}
		out.Rows = append(out.Rows, copied)
	}
	return out
}

// Snapshot binds a table to the destination table name it replaces.
type Snapshot struct {
	TableName string
	Table     Table
}

func sortedKeys(record Record) []string {
	keys := make([]string, 0, len(record))
	for k := range record {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
