package postgres

import (
	"errors"
	"fmt"
	"regexp"

	crerr "github.com/cockroachdb/errors"
	"github.com/lib/pq"
	"github.com/riskibarqy/league-snapshot/internal/domain/leaguestats"
	"github.com/riskibarqy/league-snapshot/internal/usecase"
)

// maxIdentifierLen is NAMEDATALEN-1; longer names are silently truncated by
// PostgreSQL, which would make the swap tables collide.
const maxIdentifierLen = 63

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func validateIdentifier(kind, name string) error {
	if !identifierPattern.MatchString(name) {
		return crerr.Wrapf(usecase.ErrInvalidInput, "%s name %q must match %s", kind, name, identifierPattern.String())
	}
	if len(name) > maxIdentifierLen {
		return crerr.Wrapf(usecase.ErrInvalidInput, "%s name %q exceeds %d bytes", kind, name, maxIdentifierLen)
	}
	return nil
}

func qualifiedName(schema, table string) string {
	return pq.QuoteIdentifier(schema) + "." + pq.QuoteIdentifier(table)
}

func columnSQLType(t leaguestats.ColumnType) string {
	switch t {
	case leaguestats.ColumnTypeInteger:
		return "BIGINT"
	case leaguestats.ColumnTypeReal:
		return "DOUBLE PRECISION"
	case leaguestats.ColumnTypeTimestamp:
		return "TIMESTAMP"
	default:
		return "TEXT"
	}
}

// storageError tags err as a storage failure and surfaces the PostgreSQL
// condition name when the driver reports one.
func storageError(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return fmt.Errorf("%w: %s (%s): %w", usecase.ErrStorage, op, pqErr.Code.Name(), err)
	}
	return fmt.Errorf("%w: %s: %w", usecase.ErrStorage, op, err)
}
