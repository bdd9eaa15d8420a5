package usecase

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	// ErrTransport covers failures to reach the sport data provider at all.
	ErrTransport = errors.New("transport failure")
	// ErrProviderResponse covers non-success statuses and provider-reported errors.
	ErrProviderResponse = errors.New("provider returned an error")
	// ErrMalformedPayload covers bodies that cannot be decoded or lack expected keys.
	ErrMalformedPayload = errors.New("malformed provider payload")
	ErrStorage          = errors.New("storage failure")
)

type Stage string

const (
	StageFetch     Stage = "fetch"
	StageNormalize Stage = "normalize"
	StageExport    Stage = "export"
)

// StageError identifies which statistic and destination table a run failed on.
type StageError struct {
	Stage     Stage
	Statistic string
	Table     string
	Err       error
}

func (e *StageError) Error() string {
	switch e.Stage {
	case StageFetch:
		return fmt.Sprintf("fetch failed for statistic %s: %v", e.Statistic, e.Err)
	case StageNormalize:
		return fmt.Sprintf("normalize failed for statistic %s: %v", e.Statistic, e.Err)
	default:
		return fmt.Sprintf("export failed for table %s (statistic %s): %v", e.Table, e.Statistic, e.Err)
	}
}

func (e *StageError) Unwrap() error {
	return e.Err
}
