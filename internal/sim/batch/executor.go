package batch

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"onistone.build/internal/sim/voxel"
)

var ErrBusy = errors.New("batch: actor already has an operation in progress")

// Notifier delivers best-effort text to an actor. Implementations must not
// block.
type Notifier interface {
	Notify(actorID, text string)
}

type NopNotifier struct{}

func (NopNotifier) Notify(string, string) {}

// Executor advances at most one operation per actor, one batch per tick.
// It is not safe for concurrent use; the engine goroutine owns it.
type Executor struct {
	batchSize int
	ops       map[string]*Operation
	notify    Notifier
	log       logrus.FieldLogger
	tick      uint64
	now       func() time.Time
}

func NewExecutor(batchSize int, n Notifier, log logrus.FieldLogger) *Executor {
	if batchSize < 1 {
		batchSize = 1
	}
	if n == nil {
		n = NopNotifier{}
	}
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = l
	}
	return &Executor{
		batchSize: batchSize,
		ops:       map[string]*Operation{},
		notify:    n,
		log:       log,
		now:       time.Now,
	}
}

func (e *Executor) BatchSize() int      { return e.batchSize }
func (e *Executor) CurrentTick() uint64 { return e.tick }

func (e *Executor) Busy(actor string) bool {
	_, ok := e.ops[actor]
	return ok
}

func (e *Executor) Active(actor string) (*Operation, bool) {
	op, ok := e.ops[actor]
	return op, ok
}

// Submit queues op as Pending. An actor with a Pending or Running operation
// is rejected with ErrBusy.
func (e *Executor) Submit(op *Operation) error {
	if op == nil || op.Source == nil {
		return fmt.Errorf("batch: nil operation")
	}
	if cur, ok := e.ops[op.Actor]; ok {
		return fmt.Errorf("%w: %s %s at %d%%", ErrBusy, cur.Kind, cur.ID, cur.Percent())
	}
	op.State = Pending
	op.Total = op.Source.Len()
	e.ops[op.Actor] = op
	return nil
}

// Tick runs one batch of every active operation, actors in sorted order.
// Completed operations are removed and returned.
func (e *Executor) Tick(worlds voxel.Dimensions) []*Operation {
	e.tick++
	actors := make([]string, 0, len(e.ops))
	for a := range e.ops {
		actors = append(actors, a)
	}
	sort.Strings(actors)

	var done []*Operation
	for _, a := range actors {
		op := e.ops[a]
		e.step(op, worlds, e.batchSize)
		if op.Total > e.batchSize && op.State != Completed {
			e.notify.Notify(op.Actor, fmt.Sprintf("%s: %d%% (%d/%d)", op.Kind, op.Percent(), op.Processed, op.Total))
		}
		if op.State == Completed {
			delete(e.ops, a)
			done = append(done, op)
		}
	}
	return done
}

// Drain runs op to completion immediately. It is meant for operations small
// enough to finish within one tick.
func (e *Executor) Drain(op *Operation, worlds voxel.Dimensions) error {
	if cur, ok := e.ops[op.Actor]; ok && cur != op {
		return fmt.Errorf("%w: %s %s at %d%%", ErrBusy, cur.Kind, cur.ID, cur.Percent())
	}
	op.Total = op.Source.Len()
	for op.State != Completed {
		e.step(op, worlds, e.batchSize)
	}
	delete(e.ops, op.Actor)
	return nil
}

func (e *Executor) step(op *Operation, worlds voxel.Dimensions, limit int) {
	if op.State == Pending {
		op.State = Running
		op.StartedTick = e.tick
		op.StartedAt = e.now()
	}
	op.Ticks++
	log := e.log.WithFields(logrus.Fields{"op": op.ID, "actor": op.Actor, "kind": op.Kind})

	w, ok := worlds.Dimension(op.Dimension)
	if !ok && op.Ticks == 1 {
		log.WithField("dimension", op.Dimension).Warn("unknown dimension; every element will fail")
	}
	for n := 0; n < limit; n++ {
		pl, more := op.Source.Next()
		if !more {
			e.complete(op, log)
			return
		}
		op.Processed++
		if !ok {
			op.Failed++
			continue
		}
		e.apply(op, w, pl, log)
	}
	if op.Processed >= op.Total {
		e.complete(op, log)
	}
}

func (e *Executor) apply(op *Operation, w voxel.World, pl voxel.Placement, log logrus.FieldLogger) {
	cur, err := w.BlockAt(pl.Pos)
	if err != nil {
		op.Failed++
		log.WithField("pos", pl.Pos.String()).WithError(err).Debug("read failed")
		return
	}
	if op.Filter.IgnoreLiquids && cur.IsLiquid() {
		op.Skipped++
		return
	}
	if op.Filter.ReplaceOnlySameType && cur.Type != pl.Block.Type {
		op.Skipped++
		return
	}
	if err := w.SetBlock(pl.Pos, pl.Block); err != nil {
		op.Failed++
		log.WithField("pos", pl.Pos.String()).WithError(err).Debug("write failed")
		return
	}
	if op.Record != nil {
		op.Record.Record(pl.Pos, cur)
	}
	op.Placed++
}

func (e *Executor) complete(op *Operation, log logrus.FieldLogger) {
	op.State = Completed
	op.EndedTick = e.tick
	op.EndedAt = e.now()
	f := log.WithFields(logrus.Fields{
		"placed":  op.Placed,
		"failed":  op.Failed,
		"skipped": op.Skipped,
		"ticks":   op.Ticks,
	})
	if op.Failed > 0 {
		f.Warn("operation completed with failures")
	} else {
		f.Debug("operation completed")
	}
}

// Snapshot returns views of the active operations sorted by actor.
func (e *Executor) Snapshot() []View {
	out := make([]View, 0, len(e.ops))
	for _, op := range e.ops {
		out = append(out, op.View())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Actor < out[j].Actor })
	return out
}
