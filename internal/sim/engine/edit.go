package engine

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"onistone.build/internal/protocol"
	"onistone.build/internal/sim/batch"
	"onistone.build/internal/sim/session"
	"onistone.build/internal/sim/shapes"
	"onistone.build/internal/sim/transform"
	"onistone.build/internal/sim/undo"
	"onistone.build/internal/sim/voxel"
)

const (
	KindPaste = "paste"
	KindCut   = "cut"
	KindShape = "shape"
	KindUndo  = "undo"
	KindRedo  = "redo"
)

const redoPrefix = "redo: "

// opResult is the RESULT payload of a mutating command.
type opResult struct {
	ID       string `json:"op_id"`
	Kind     string `json:"kind"`
	Total    int    `json:"total"`
	Sync     bool   `json:"sync"`
	Placed   int    `json:"placed"`
	Failed   int    `json:"failed"`
	Skipped  int    `json:"skipped"`
	Queued   bool   `json:"queued,omitempty"`
	Batches  int    `json:"batches,omitempty"`
	Describe string `json:"description,omitempty"`
}

func (e *Engine) checkZone(s *session.Session, b voxel.Bounds, dim string) error {
	if !e.cfg.Zones.RequireZone {
		return nil
	}
	if !e.zones.CanBuildBox(s.Name, b, dim, s.Bypass) {
		return fmt.Errorf("%w: %s in %s is outside your builder zones", ErrDenied, b, dim)
	}
	return nil
}

func (e *Engine) checkConfirm(c protocol.CommandMsg, estimate int) error {
	if t := e.cfg.Limits.ConfirmThreshold; t > 0 && estimate > t && !c.Confirm {
		return fmt.Errorf("%w: %d blocks, resend with confirm", ErrConfirm, estimate)
	}
	return nil
}

func (e *Engine) checkIdle(s *session.Session) error {
	if op, ok := e.exec.Active(s.ActorID); ok {
		return fmt.Errorf("%w: %s %d%%", batch.ErrBusy, op.Kind, op.Percent())
	}
	return nil
}

// execute runs src for the actor. Small sources run to completion now with
// their undo entry captured up front; larger ones are queued and record undo
// as each write lands.
func (e *Engine) execute(s *session.Session, kind, dim, desc string, src batch.Source, positions func() []voxel.Vec3i, filter batch.Filter) (opResult, error) {
	op := batch.NewOperation(s.ActorID, kind, dim, src)
	op.Filter = filter

	if op.Total <= e.cfg.Performance.SyncThreshold {
		w, ok := e.worlds.Dimension(dim)
		if !ok {
			return opResult{}, badRequest("unknown dimension %q", dim)
		}
		rec, err := undo.Capture(w, dim, positions(), desc)
		if err != nil {
			return opResult{}, err
		}
		if err := e.exec.Drain(op, e.worlds); err != nil {
			return opResult{}, err
		}
		if op.Placed > 0 {
			s.History.Push(rec)
		}
		e.finish(op, true)
		return resultOf(op, true, desc), nil
	}

	op.Record = undo.NewEntry(desc, dim)
	if err := e.exec.Submit(op); err != nil {
		return opResult{}, err
	}
	e.log.WithFields(logrus.Fields{"actor": s.ActorID, "op": op.ID, "kind": kind, "total": op.Total}).Info("operation queued")
	res := resultOf(op, false, desc)
	res.Queued = true
	res.Batches = (op.Total + e.exec.BatchSize() - 1) / e.exec.BatchSize()
	return res, nil
}

// finish journals op and files its undo record with the actor's history.
// Operations of actors who have left are journaled only.
func (e *Engine) finish(op *batch.Operation, sync bool) {
	if err := e.journal.WriteOperation(recordOf(op, sync)); err != nil {
		e.log.WithError(err).WithField("op", op.ID).Warn("journal write failed")
	}
	if op.Record == nil {
		return
	}
	s, ok := e.sessions.Get(op.Actor)
	if !ok || op.Record.Len() == 0 {
		return
	}
	switch op.Kind {
	case KindUndo:
		s.History.PushRedo(op.Record)
	case KindRedo:
		s.History.PushRedone(op.Record)
	default:
		s.History.Push(op.Record)
	}
}

func recordOf(op *batch.Operation, sync bool) OperationRecord {
	return OperationRecord{
		ID:          op.ID,
		Actor:       op.Actor,
		Kind:        op.Kind,
		Dimension:   op.Dimension,
		Total:       op.Total,
		Placed:      op.Placed,
		Failed:      op.Failed,
		Skipped:     op.Skipped,
		Sync:        sync,
		StartedTick: op.StartedTick,
		EndedTick:   op.EndedTick,
		StartedAt:   op.StartedAt,
		EndedAt:     op.EndedAt,
	}
}

func resultOf(op *batch.Operation, sync bool, desc string) opResult {
	return opResult{
		ID:       op.ID,
		Kind:     op.Kind,
		Total:    op.Total,
		Sync:     sync,
		Placed:   op.Placed,
		Failed:   op.Failed,
		Skipped:  op.Skipped,
		Describe: desc,
	}
}

func completionText(op *batch.Operation) string {
	msg := fmt.Sprintf("%s complete: %d placed", op.Kind, op.Placed)
	if op.Skipped > 0 {
		msg += fmt.Sprintf(", %d skipped", op.Skipped)
	}
	if op.Failed > 0 {
		msg += fmt.Sprintf(", %d failed", op.Failed)
	}
	return msg
}

func placementPositions(ps []voxel.Placement) []voxel.Vec3i {
	out := make([]voxel.Vec3i, len(ps))
	for i, p := range ps {
		out[i] = p.Pos
	}
	return out
}

// Paste.

type pasteArgs struct {
	Pos                 *[3]int `json:"pos"`
	Dimension           string  `json:"dimension"`
	Index               *int    `json:"index"`
	Rotation            int     `json:"rotation"`
	FlipX               bool    `json:"flip_x"`
	FlipY               bool    `json:"flip_y"`
	FlipZ               bool    `json:"flip_z"`
	Offset              [3]int  `json:"offset"`
	PlaceAir            *bool   `json:"place_air"`
	IgnoreLiquids       bool    `json:"ignore_liquids"`
	ReplaceOnlySameType bool    `json:"replace_only_same_type"`
}

func (e *Engine) cmdPaste(s *session.Session, c protocol.CommandMsg) (any, error) {
	var a pasteArgs
	if err := decodeArgs(c, &a); err != nil {
		return nil, err
	}
	if a.Pos == nil {
		return nil, badRequest("PASTE needs pos")
	}
	ce, err := e.clipAt(s, a.Index)
	if err != nil {
		return nil, err
	}
	rot, err := transform.NormalizeRotation(a.Rotation)
	if err != nil {
		return nil, err
	}
	opts := transform.PasteOptions{
		Rotation:            rot,
		FlipX:               a.FlipX,
		FlipY:               a.FlipY,
		FlipZ:               a.FlipZ,
		Offset:              voxel.FromArray(a.Offset),
		PlaceAir:            ce.IncludeAir,
		IgnoreLiquids:       a.IgnoreLiquids,
		ReplaceOnlySameType: a.ReplaceOnlySameType,
	}
	if a.PlaceAir != nil {
		opts.PlaceAir = *a.PlaceAir
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	dim, _, err := e.dimensionOf(s, a.Dimension)
	if err != nil {
		return nil, err
	}
	target := voxel.FromArray(*a.Pos)
	plan := transform.BuildPlan(ce.Buffer, opts, target)

	if v := plan.AffectedVolume(); v > e.cfg.Limits.MaxPasteVolume {
		return nil, fmt.Errorf("%w: paste volume %d > %d", ErrLimit, v, e.cfg.Limits.MaxPasteVolume)
	}
	if err := e.checkZone(s, plan.Bounds(), dim); err != nil {
		return nil, err
	}
	if err := e.checkConfirm(c, plan.EstimateBlockCount()); err != nil {
		return nil, err
	}
	if err := e.checkIdle(s); err != nil {
		return nil, err
	}
	desc := fmt.Sprintf("paste %s at %s", ce.Label, target)
	filter := batch.Filter{IgnoreLiquids: opts.IgnoreLiquids, ReplaceOnlySameType: opts.ReplaceOnlySameType}
	return e.execute(s, KindPaste, dim, desc, plan.Cursor(),
		func() []voxel.Vec3i { return placementPositions(plan.Placements()) }, filter)
}

// cmdCut copies the selection to the clipboard and then clears it to air.
func (e *Engine) cmdCut(s *session.Session, c protocol.CommandMsg) (any, error) {
	var a copyArgs
	if err := decodeArgs(c, &a); err != nil {
		return nil, err
	}
	b, err := e.selectionBox(s)
	if err != nil {
		return nil, err
	}
	if v := b.Volume(); v > e.cfg.Limits.MaxSelectionVolume {
		return nil, fmt.Errorf("%w: selection volume %d > %d", ErrLimit, v, e.cfg.Limits.MaxSelectionVolume)
	}
	dim, w, err := e.dimensionOf(s, s.Selection.Dimension)
	if err != nil {
		return nil, err
	}
	if err := e.checkZone(s, b, dim); err != nil {
		return nil, err
	}
	if err := e.checkConfirm(c, b.Volume()); err != nil {
		return nil, err
	}
	if err := e.checkIdle(s); err != nil {
		return nil, err
	}
	ce, _, err := e.captureEntry(w, b, a)
	if err != nil {
		return nil, err
	}
	s.Clipboard.Push(ce)

	wd, ht, ln := b.Dims()
	positions := shapes.Cuboid(b.Min, wd, ht, ln, false)
	res, err := e.execute(s, KindCut, dim, "cut "+b.String(), batch.Fill(positions, voxel.Air),
		func() []voxel.Vec3i { return positions }, batch.Filter{})
	if err != nil {
		return nil, err
	}
	return struct {
		opResult
		Clipboard clipInfo `json:"clipboard"`
	}{res, describeClip(ce, s.Clipboard)}, nil
}

// Shapes.

type blockArg struct {
	Type string `json:"type"`
	Data int    `json:"data"`
}

func (b blockArg) block() (voxel.Block, error) {
	t := strings.TrimSpace(strings.ToLower(b.Type))
	if t == "" {
		return voxel.Block{}, badRequest("block type is required")
	}
	if !strings.Contains(t, ":") {
		t = "minecraft:" + t
	}
	return voxel.Block{Type: t, Data: b.Data}, nil
}

type shapeArgs struct {
	Kind      string   `json:"kind"`
	Block     blockArg `json:"block"`
	Pos       *[3]int  `json:"pos"`
	Dimension string   `json:"dimension"`
	Radius    int      `json:"radius"`
	Height    int      `json:"height"`
	Size      int      `json:"size"`
	Dims      [3]int   `json:"dims"`
	Hollow    bool     `json:"hollow"`
}

// shapeBox returns the bounding box a shape may touch, before generating it.
func (a shapeArgs) shapeBox(s *session.Session) (voxel.Bounds, error) {
	if shapes.Kind(a.Kind) == shapes.KindWalls {
		b, ok := s.Selection.Bounds()
		if !ok {
			return voxel.Bounds{}, ErrNoSelection
		}
		return b, nil
	}
	if a.Pos == nil {
		return voxel.Bounds{}, badRequest("%s needs pos", a.Kind)
	}
	p := voxel.FromArray(*a.Pos)
	switch shapes.Kind(a.Kind) {
	case shapes.KindSphere:
		if a.Radius < 1 {
			return voxel.Bounds{}, badRequest("radius must be positive")
		}
		r := voxel.V(a.Radius, a.Radius, a.Radius)
		return voxel.Bounds{Min: p.Sub(r), Max: p.Add(r)}, nil
	case shapes.KindCylinder:
		if a.Radius < 1 || a.Height < 1 {
			return voxel.Bounds{}, badRequest("radius and height must be positive")
		}
		return voxel.Bounds{Min: p.Sub(voxel.V(a.Radius, 0, a.Radius)), Max: p.Add(voxel.V(a.Radius, a.Height-1, a.Radius))}, nil
	case shapes.KindPyramid:
		if a.Size < 1 {
			return voxel.Bounds{}, badRequest("size must be positive")
		}
		return voxel.Bounds{Min: p.Sub(voxel.V(a.Size, 0, a.Size)), Max: p.Add(voxel.V(a.Size, a.Size-1, a.Size))}, nil
	case shapes.KindCuboid:
		if a.Dims[0] < 1 || a.Dims[1] < 1 || a.Dims[2] < 1 {
			return voxel.Bounds{}, badRequest("dims must be positive")
		}
		return voxel.Bounds{Min: p, Max: p.Add(voxel.V(a.Dims[0]-1, a.Dims[1]-1, a.Dims[2]-1))}, nil
	}
	return voxel.Bounds{}, badRequest("unknown shape %q", a.Kind)
}

func (a shapeArgs) positions(b voxel.Bounds) []voxel.Vec3i {
	switch shapes.Kind(a.Kind) {
	case shapes.KindSphere:
		return shapes.Sphere(voxel.FromArray(*a.Pos), a.Radius, a.Hollow)
	case shapes.KindCylinder:
		return shapes.Cylinder(voxel.FromArray(*a.Pos), a.Radius, a.Height, a.Hollow)
	case shapes.KindPyramid:
		return shapes.Pyramid(voxel.FromArray(*a.Pos), a.Size, a.Hollow)
	case shapes.KindCuboid:
		return shapes.Cuboid(voxel.FromArray(*a.Pos), a.Dims[0], a.Dims[1], a.Dims[2], a.Hollow)
	default:
		return shapes.Walls(b)
	}
}

func (e *Engine) cmdShape(s *session.Session, c protocol.CommandMsg) (any, error) {
	var a shapeArgs
	if err := decodeArgs(c, &a); err != nil {
		return nil, err
	}
	a.Kind = strings.ToLower(a.Kind)
	blk, err := a.Block.block()
	if err != nil {
		return nil, err
	}
	dimArg := a.Dimension
	if shapes.Kind(a.Kind) == shapes.KindWalls && dimArg == "" {
		dimArg = s.Selection.Dimension
	}
	dim, _, err := e.dimensionOf(s, dimArg)
	if err != nil {
		return nil, err
	}
	box, err := a.shapeBox(s)
	if err != nil {
		return nil, err
	}
	if v := box.Volume(); v > e.cfg.Limits.MaxSelectionVolume {
		return nil, fmt.Errorf("%w: shape extent %d > %d", ErrLimit, v, e.cfg.Limits.MaxSelectionVolume)
	}
	positions := a.positions(box)
	if len(positions) > e.cfg.Limits.MaxPasteVolume {
		return nil, fmt.Errorf("%w: %d blocks > %d", ErrLimit, len(positions), e.cfg.Limits.MaxPasteVolume)
	}
	if len(positions) == 0 {
		return nil, badRequest("shape is empty")
	}
	if err := e.checkZone(s, box, dim); err != nil {
		return nil, err
	}
	if err := e.checkConfirm(c, len(positions)); err != nil {
		return nil, err
	}
	if err := e.checkIdle(s); err != nil {
		return nil, err
	}
	desc := fmt.Sprintf("%s of %s", a.Kind, blk.Type)
	return e.execute(s, KindShape, dim, desc, batch.Fill(positions, blk),
		func() []voxel.Vec3i { return positions }, batch.Filter{})
}

// History.

func (e *Engine) cmdUndo(s *session.Session, _ protocol.CommandMsg) (any, error) {
	if err := e.checkIdle(s); err != nil {
		return nil, err
	}
	ent := s.History.PeekUndo()
	if ent == nil {
		return nil, ErrNothingToUndo
	}
	w, ok := e.worlds.Dimension(ent.Dimension)
	if !ok {
		return nil, badRequest("unknown dimension %q", ent.Dimension)
	}
	if ent.Len() > e.cfg.Performance.SyncThreshold {
		s.History.PopUndo()
		return e.restoreQueued(s, KindUndo, ent, redoPrefix+ent.Description)
	}
	op := e.syncRestoreOp(s, KindUndo, ent)
	_, res := s.History.Undo(w)
	return e.settleRestore(op, res, ent.Description), nil
}

func (e *Engine) cmdRedo(s *session.Session, _ protocol.CommandMsg) (any, error) {
	if err := e.checkIdle(s); err != nil {
		return nil, err
	}
	ent := s.History.PeekRedo()
	if ent == nil {
		return nil, ErrNothingToRedo
	}
	w, ok := e.worlds.Dimension(ent.Dimension)
	if !ok {
		return nil, badRequest("unknown dimension %q", ent.Dimension)
	}
	if ent.Len() > e.cfg.Performance.SyncThreshold {
		s.History.PopRedo()
		return e.restoreQueued(s, KindRedo, ent, strings.TrimPrefix(ent.Description, redoPrefix))
	}
	op := e.syncRestoreOp(s, KindRedo, ent)
	_, res := s.History.Redo(w)
	return e.settleRestore(op, res, ent.Description), nil
}

// restoreQueued replays a large entry through the executor. Its record
// becomes the inverse entry once the operation completes.
func (e *Engine) restoreQueued(s *session.Session, kind string, ent *undo.Entry, inverseDesc string) (any, error) {
	op := batch.NewOperation(s.ActorID, kind, ent.Dimension, undo.NewRestoreSource(ent))
	op.Record = undo.NewEntry(inverseDesc, ent.Dimension)
	if err := e.exec.Submit(op); err != nil {
		return nil, err
	}
	res := resultOf(op, false, ent.Description)
	res.Queued = true
	res.Batches = (op.Total + e.exec.BatchSize() - 1) / e.exec.BatchSize()
	return res, nil
}

// syncRestoreOp stands in for an in-place restore so it can be journaled
// like any other operation.
func (e *Engine) syncRestoreOp(s *session.Session, kind string, ent *undo.Entry) *batch.Operation {
	op := batch.NewOperation(s.ActorID, kind, ent.Dimension, undo.NewRestoreSource(ent))
	op.State = batch.Completed
	op.StartedTick = e.exec.CurrentTick()
	op.EndedTick = op.StartedTick
	op.StartedAt = e.now()
	return op
}

func (e *Engine) settleRestore(op *batch.Operation, res undo.Result, desc string) opResult {
	op.Processed = op.Total
	op.Placed = res.Restored
	op.Failed = res.Failed
	op.Skipped = res.Skipped
	op.EndedAt = e.now()
	e.finish(op, true)
	return resultOf(op, true, desc)
}
