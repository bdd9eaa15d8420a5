package leaguestats

import "errors"

var (
	ErrNonUniformRecord = errors.New("record does not match table columns")
	ErrInvalidTimestamp = errors.New("invalid export timestamp")
)

const (
	ColumnRank           = "rank"
	ColumnTeam           = "team"
	ColumnPoints         = "points"
	ColumnPlayed         = "played"
	ColumnWins           = "wins"
	ColumnDraws          = "draws"
	ColumnLosses         = "losses"
	ColumnGoalsFor       = "goals_for"
	ColumnGoalsAgainst   = "goals_against"
	ColumnGoalDifference = "goal_difference"

	ColumnPlayer      = "player"
	ColumnGoals       = "goals"
	ColumnAssists     = "assists"
	ColumnAppearances = "appearances"

	// ExportedAtColumn is stamped on every row at export time.
	ExportedAtColumn = "exported_at"
)

var standingsColumns = []Column{
	{Name: ColumnRank, Type: ColumnTypeInteger},
	{Name: ColumnTeam, Type: ColumnTypeText},
	{Name: ColumnPoints, Type: ColumnTypeInteger},
	{Name: ColumnPlayed, Type: ColumnTypeInteger},
	{Name: ColumnWins, Type: ColumnTypeInteger},
	{Name: ColumnDraws, Type: ColumnTypeInteger},
	{Name: ColumnLosses, Type: ColumnTypeInteger},
	{Name: ColumnGoalsFor, Type: ColumnTypeInteger},
	{Name: ColumnGoalsAgainst, Type: ColumnTypeInteger},
	{Name: ColumnGoalDifference, Type: ColumnTypeInteger},
}

var topScorersColumns = []Column{
	{Name: ColumnPlayer, Type: ColumnTypeText},
	{Name: ColumnTeam, Type: ColumnTypeText},
	{Name: ColumnGoals, Type: ColumnTypeInteger},
	{Name: ColumnAppearances, Type: ColumnTypeInteger},
}

var topAssistsColumns = []Column{
	{Name: ColumnPlayer, Type: ColumnTypeText},
	{Name: ColumnTeam, Type: ColumnTypeText},
	{Name: ColumnAssists, Type: ColumnTypeInteger},
	{Name: ColumnAppearances, Type: ColumnTypeInteger},
}

// ColumnsFor returns a fresh copy of the column layout of a statistic.
func ColumnsFor(stat Statistic) []Column {
	switch stat {
	case StatisticStandings:
		return append([]Column(nil), standingsColumns...)
	case StatisticTopScorers:
		return append([]Column(nil), topScorersColumns...)
	case StatisticTopAssists:
		return append([]Column(nil), topAssistsColumns...)
	default:
		return nil
	}
}
