package engine

import (
	"errors"
	"time"
)

// OperationRecord summarises one finished batch operation.
type OperationRecord struct {
	ID          string    `json:"id"`
	Actor       string    `json:"actor"`
	Kind        string    `json:"kind"`
	Dimension   string    `json:"dimension"`
	Total       int       `json:"total"`
	Placed      int       `json:"placed"`
	Failed      int       `json:"failed"`
	Skipped     int       `json:"skipped"`
	Sync        bool      `json:"sync"`
	StartedTick uint64    `json:"started_tick"`
	EndedTick   uint64    `json:"ended_tick"`
	StartedAt   time.Time `json:"started_at"`
	EndedAt     time.Time `json:"ended_at"`
}

type BlueprintRecord struct {
	Actor      string    `json:"actor"`
	Name       string    `json:"name"`
	Shared     bool      `json:"shared"`
	Path       string    `json:"path"`
	Dimensions [3]int    `json:"dimensions"`
	BlockCount int       `json:"block_count"`
	SavedAt    time.Time `json:"saved_at"`
}

// Journal receives records from the engine goroutine. Implementations must
// return quickly.
type Journal interface {
	WriteOperation(OperationRecord) error
	RecordBlueprint(BlueprintRecord) error
}

type MultiJournal []Journal

func (m MultiJournal) WriteOperation(r OperationRecord) error {
	var errs []error
	for _, j := range m {
		if j == nil {
			continue
		}
		if err := j.WriteOperation(r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiJournal) RecordBlueprint(r BlueprintRecord) error {
	var errs []error
	for _, j := range m {
		if j == nil {
			continue
		}
		if err := j.RecordBlueprint(r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type nopJournal struct{}

func (nopJournal) WriteOperation(OperationRecord) error  { return nil }
func (nopJournal) RecordBlueprint(BlueprintRecord) error { return nil }
