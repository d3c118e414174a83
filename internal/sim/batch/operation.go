package batch

import (
	"time"

	"github.com/google/uuid"

	"onistone.build/internal/sim/undo"
)

type State int

const (
	Pending State = iota
	Running
	Completed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "PENDING"
	case Running:
		return "RUNNING"
	case Completed:
		return "COMPLETED"
	default:
		return "UNKNOWN"
	}
}

// Filter is checked against the live world at write time.
type Filter struct {
	IgnoreLiquids       bool
	ReplaceOnlySameType bool
}

// Operation is one actor's queued mutation.
type Operation struct {
	ID        string
	Actor     string
	Kind      string
	Dimension string
	Source    Source
	Filter    Filter

	// Record, when set, receives the old block of every successful write.
	Record *undo.Entry

	Total     int
	Processed int
	Placed    int
	Failed    int
	Skipped   int
	State     State

	StartedTick uint64
	EndedTick   uint64
	StartedAt   time.Time
	EndedAt     time.Time

	Ticks int
}

func NewOperation(actor, kind, dim string, src Source) *Operation {
	return &Operation{
		ID:        uuid.NewString(),
		Actor:     actor,
		Kind:      kind,
		Dimension: dim,
		Source:    src,
		Total:     src.Len(),
	}
}

// Percent is the share of elements processed, 100 once complete.
func (op *Operation) Percent() int {
	switch {
	case op.State == Completed:
		return 100
	case op.Total <= 0:
		return 0
	}
	return op.Processed * 100 / op.Total
}

// View is a copy of an operation's counters, safe to hand to other
// goroutines.
type View struct {
	ID        string `json:"id"`
	Actor     string `json:"actor"`
	Kind      string `json:"kind"`
	Dimension string `json:"dimension"`
	State     string `json:"state"`
	Total     int    `json:"total"`
	Processed int    `json:"processed"`
	Placed    int    `json:"placed"`
	Failed    int    `json:"failed"`
	Skipped   int    `json:"skipped"`
	Percent   int    `json:"percent"`
	Ticks     int    `json:"ticks"`
}

func (op *Operation) View() View {
	return View{
		ID:        op.ID,
		Actor:     op.Actor,
		Kind:      op.Kind,
		Dimension: op.Dimension,
		State:     op.State.String(),
		Total:     op.Total,
		Processed: op.Processed,
		Placed:    op.Placed,
		Failed:    op.Failed,
		Skipped:   op.Skipped,
		Percent:   op.Percent(),
		Ticks:     op.Ticks,
	}
}
