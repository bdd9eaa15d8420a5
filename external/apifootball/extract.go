package apifootball

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/riskibarqy/league-snapshot/internal/domain/leaguestats"
	"github.com/riskibarqy/league-snapshot/internal/usecase"
	"github.com/spf13/cast"
)

// field projects one value at a dotted path into a record column.
type field struct {
	column string
	path   []any
}

var standingFields = []field{
	{column: leaguestats.ColumnRank, path: []any{"rank"}},
	{column: leaguestats.ColumnTeam, path: []any{"team", "name"}},
	{column: leaguestats.ColumnPoints, path: []any{"points"}},
	{column: leaguestats.ColumnPlayed, path: []any{"all", "played"}},
	{column: leaguestats.ColumnWins, path: []any{"all", "win"}},
	{column: leaguestats.ColumnDraws, path: []any{"all", "draw"}},
	{column: leaguestats.ColumnLosses, path: []any{"all", "lose"}},
	{column: leaguestats.ColumnGoalsFor, path: []any{"all", "goals", "for"}},
	{column: leaguestats.ColumnGoalsAgainst, path: []any{"all", "goals", "against"}},
	{column: leaguestats.ColumnGoalDifference, path: []any{"goalsDiff"}},
}

var scorerFields = []field{
	{column: leaguestats.ColumnPlayer, path: []any{"player", "name"}},
	{column: leaguestats.ColumnTeam, path: []any{"statistics", 0, "team", "name"}},
	{column: leaguestats.ColumnGoals, path: []any{"statistics", 0, "goals", "total"}},
	{column: leaguestats.ColumnAppearances, path: []any{"statistics", 0, "games", "appearences"}},
}

var assistFields = []field{
	{column: leaguestats.ColumnPlayer, path: []any{"player", "name"}},
	{column: leaguestats.ColumnTeam, path: []any{"statistics", 0, "team", "name"}},
	{column: leaguestats.ColumnAssists, path: []any{"statistics", 0, "goals", "assists"}},
	{column: leaguestats.ColumnAppearances, path: []any{"statistics", 0, "games", "appearences"}},
}

func parseStandings(response any) (leaguestats.Table, error) {
	raw, err := lookup(response, "response", 0, "league", "standings", 0)
	if err != nil {
		return leaguestats.Table{}, err
	}
	entries, ok := raw.([]any)
	if !ok {
		return leaguestats.Table{}, fmt.Errorf("%w: response[0].league.standings[0] is %s, want array", usecase.ErrMalformedPayload, kindOf(raw))
	}
	return project(leaguestats.StatisticStandings, "response[0].league.standings[0]", entries, standingFields)
}

func parsePlayerLeaders(response any, stat leaguestats.Statistic) (leaguestats.Table, error) {
	entries, ok := response.([]any)
	if !ok {
		return leaguestats.Table{}, fmt.Errorf("%w: response is %s, want array", usecase.ErrMalformedPayload, kindOf(response))
	}
	fields := scorerFields
	if stat == leaguestats.StatisticTopAssists {
		fields = assistFields
	}
	return project(stat, "response", entries, fields)
}

func project(stat leaguestats.Statistic, prefix string, entries []any, fields []field) (leaguestats.Table, error) {
	table := leaguestats.NewTable(stat)
	types := make(map[string]leaguestats.ColumnType, len(table.Columns))
	for _, col := range table.Columns {
		types[col.Name] = col.Type
	}

	table.Rows = make([]leaguestats.Record, 0, len(entries))
	for i, entry := range entries {
		root := fmt.Sprintf("%s[%d]", prefix, i)
		record := make(leaguestats.Record, len(fields))
		for _, f := range fields {
			value, err := lookup(entry, root, f.path...)
			if err != nil {
				return leaguestats.Table{}, err
			}
			coerced, err := coerce(value, types[f.column])
			if err != nil {
				return leaguestats.Table{}, fmt.Errorf("%w: %s: %v", usecase.ErrMalformedPayload, joinPath(root, f.path), err)
			}
			record[f.column] = coerced
		}
		if err := table.Append(record); err != nil {
			return leaguestats.Table{}, err
		}
	}
	return table, nil
}

// lookup walks path from node. A null leaf is returned as nil; a missing key,
// an out-of-range index or a null container along the way is an error.
func lookup(node any, root string, path ...any) (any, error) {
	current := node
	for i, step := range path {
		switch key := step.(type) {
		case string:
			obj, ok := current.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: %s is %s, want object", usecase.ErrMalformedPayload, joinPath(root, path[:i]), kindOf(current))
			}
			next, ok := obj[key]
			if !ok {
				return nil, fmt.Errorf("%w: missing key %s", usecase.ErrMalformedPayload, joinPath(root, path[:i+1]))
			}
			current = next
		case int:
			arr, ok := current.([]any)
			if !ok {
				return nil, fmt.Errorf("%w: %s is %s, want array", usecase.ErrMalformedPayload, joinPath(root, path[:i]), kindOf(current))
			}
			if key < 0 || key >= len(arr) {
				return nil, fmt.Errorf("%w: missing index %s", usecase.ErrMalformedPayload, joinPath(root, path[:i+1]))
			}
			current = arr[key]
		}
	}
	return current, nil
}

func coerce(value any, colType leaguestats.ColumnType) (any, error) {
	if value == nil {
		return nil, nil
	}
	switch colType {
	case leaguestats.ColumnTypeInteger:
		if f, ok := value.(float64); ok {
			if f != math.Trunc(f) {
				return nil, fmt.Errorf("expected whole number, got %v", f)
			}
			return int64(f), nil
		}
		n, err := cast.ToInt64E(value)
		if err != nil {
			return nil, fmt.Errorf("expected integer, got %s", kindOf(value))
		}
		return n, nil
	case leaguestats.ColumnTypeReal:
		n, err := cast.ToFloat64E(value)
		if err != nil {
			return nil, fmt.Errorf("expected number, got %s", kindOf(value))
		}
		return n, nil
	default:
		switch value.(type) {
		case map[string]any, []any:
			return nil, fmt.Errorf("expected scalar, got %s", kindOf(value))
		}
		s, err := cast.ToStringE(value)
		if err != nil {
			return nil, fmt.Errorf("expected text, got %s", kindOf(value))
		}
		return s, nil
	}
}

func joinPath(root string, path []any) string {
	var b strings.Builder
	b.WriteString(root)
	for _, step := range path {
		switch key := step.(type) {
		case string:
			b.WriteByte('.')
			b.WriteString(key)
		case int:
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(key))
			b.WriteByte(']')
		}
	}
	return b.String()
}

func kindOf(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case float64, int64, int:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", value)
	}
}
