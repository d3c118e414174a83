package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"onistone.build/internal/protocol"
	"onistone.build/internal/sim/capture"
	"onistone.build/internal/sim/clipboard"
	"onistone.build/internal/sim/session"
	"onistone.build/internal/sim/transform"
	"onistone.build/internal/sim/voxel"
)

type handler func(e *Engine, s *session.Session, c protocol.CommandMsg) (any, error)

var handlers = map[string]handler{
	"POS1":      (*Engine).cmdPos1,
	"POS2":      (*Engine).cmdPos2,
	"SEL_CLEAR": (*Engine).cmdSelClear,
	"SEL_INFO":  (*Engine).cmdSelInfo,

	"COPY":       (*Engine).cmdCopy,
	"CUT":        (*Engine).cmdCut,
	"PASTE":      (*Engine).cmdPaste,
	"ROTATE":     (*Engine).cmdRotate,
	"FLIP":       (*Engine).cmdFlip,
	"CLIP_CLEAR": (*Engine).cmdClipClear,

	"UNDO": (*Engine).cmdUndo,
	"REDO": (*Engine).cmdRedo,

	"BP_SAVE":   (*Engine).cmdBlueprintSave,
	"BP_LOAD":   (*Engine).cmdBlueprintLoad,
	"BP_LIST":   (*Engine).cmdBlueprintList,
	"BP_DELETE": (*Engine).cmdBlueprintDelete,

	"SHAPE": (*Engine).cmdShape,

	"ZONE_CREATE":         (*Engine).cmdZoneCreate,
	"ZONE_DELETE":         (*Engine).cmdZoneDelete,
	"ZONE_ADD_BUILDER":    (*Engine).cmdZoneAddBuilder,
	"ZONE_REMOVE_BUILDER": (*Engine).cmdZoneRemoveBuilder,
	"ZONE_LIST":           (*Engine).cmdZoneList,
	"ZONE_INFO":           (*Engine).cmdZoneInfo,
}

// decodeArgs rejects unknown fields so typos surface as bad requests rather
// than silently ignored options.
func decodeArgs(c protocol.CommandMsg, v any) error {
	if len(bytes.TrimSpace(c.Args)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(c.Args))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest("%s args: %v", c.Cmd, err)
	}
	return nil
}

func (e *Engine) dimensionOf(s *session.Session, dim string) (string, voxel.World, error) {
	if dim == "" {
		dim = s.Dimension
	}
	dim = strings.ToLower(dim)
	w, ok := e.worlds.Dimension(dim)
	if !ok {
		return dim, nil, badRequest("unknown dimension %q", dim)
	}
	return dim, w, nil
}

func (e *Engine) selectionBox(s *session.Session) (voxel.Bounds, error) {
	b, ok := s.Selection.Bounds()
	if !ok {
		return voxel.Bounds{}, ErrNoSelection
	}
	return b, nil
}

// Selection.

type posArgs struct {
	Pos       *[3]int `json:"pos"`
	Dimension string  `json:"dimension"`
}

type selectionInfo struct {
	Pos1      *[3]int `json:"pos1,omitempty"`
	Pos2      *[3]int `json:"pos2,omitempty"`
	Dimension string  `json:"dimension,omitempty"`
	Complete  bool    `json:"complete"`
	Size      [3]int  `json:"size,omitempty"`
	Volume    int     `json:"volume"`
}

func describeSelection(sel *voxel.Selection) selectionInfo {
	info := selectionInfo{Dimension: sel.Dimension, Complete: sel.Complete(), Volume: sel.Volume()}
	if sel.Pos1 != nil {
		a := sel.Pos1.ToArray()
		info.Pos1 = &a
	}
	if sel.Pos2 != nil {
		a := sel.Pos2.ToArray()
		info.Pos2 = &a
	}
	if b, ok := sel.Bounds(); ok {
		w, h, l := b.Dims()
		info.Size = [3]int{w, h, l}
	}
	return info
}

func (e *Engine) cmdPos1(s *session.Session, c protocol.CommandMsg) (any, error) {
	return e.setCorner(s, c, 1)
}

func (e *Engine) cmdPos2(s *session.Session, c protocol.CommandMsg) (any, error) {
	return e.setCorner(s, c, 2)
}

func (e *Engine) setCorner(s *session.Session, c protocol.CommandMsg, which int) (any, error) {
	var a posArgs
	if err := decodeArgs(c, &a); err != nil {
		return nil, err
	}
	if a.Pos == nil {
		return nil, badRequest("%s needs pos", c.Cmd)
	}
	dim, _, err := e.dimensionOf(s, a.Dimension)
	if err != nil {
		return nil, err
	}
	// Corners from different dimensions never form a selection.
	if s.Selection.Dimension != "" && s.Selection.Dimension != dim {
		s.Selection.Clear()
	}
	p := voxel.FromArray(*a.Pos)
	if which == 1 {
		s.Selection.SetPos1(p, dim)
	} else {
		s.Selection.SetPos2(p, dim)
	}
	info := describeSelection(&s.Selection)
	if info.Volume > e.cfg.Limits.MaxSelectionVolume {
		// The corner is kept; COPY and CUT enforce the limit.
		e.notify.Notify(s.ActorID, "selection exceeds the maximum volume")
	}
	return info, nil
}

func (e *Engine) cmdSelClear(s *session.Session, _ protocol.CommandMsg) (any, error) {
	s.Selection.Clear()
	return describeSelection(&s.Selection), nil
}

func (e *Engine) cmdSelInfo(s *session.Session, _ protocol.CommandMsg) (any, error) {
	return describeSelection(&s.Selection), nil
}

// Clipboard.

type copyArgs struct {
	IncludeAir *bool  `json:"include_air"`
	Label      string `json:"label"`
}

type clipInfo struct {
	Label     string `json:"label"`
	Size      [3]int `json:"size"`
	Origin    [3]int `json:"origin"`
	NonAir    int    `json:"non_air"`
	Air       bool   `json:"include_air"`
	Dimension string `json:"dimension"`
	Entries   int    `json:"entries"`
}

func describeClip(ce *clipboard.Entry, ring *clipboard.Ring) clipInfo {
	w, h, l := ce.Buffer.Dims()
	return clipInfo{
		Label:     ce.Label,
		Size:      [3]int{w, h, l},
		Origin:    ce.Buffer.Origin().ToArray(),
		NonAir:    ce.NonAirCount(),
		Air:       ce.IncludeAir,
		Dimension: ce.Dimension,
		Entries:   ring.Len(),
	}
}

// copySelection validates the selection and captures it without touching
// the clipboard.
func (e *Engine) copySelection(s *session.Session, a copyArgs) (*clipboard.Entry, voxel.Bounds, error) {
	b, err := e.selectionBox(s)
	if err != nil {
		return nil, b, err
	}
	if v := b.Volume(); v > e.cfg.Limits.MaxSelectionVolume {
		return nil, b, fmt.Errorf("%w: selection volume %d > %d", ErrLimit, v, e.cfg.Limits.MaxSelectionVolume)
	}
	_, w, err := e.dimensionOf(s, s.Selection.Dimension)
	if err != nil {
		return nil, b, err
	}
	return e.captureEntry(w, b, a)
}

func (e *Engine) captureEntry(w voxel.World, b voxel.Bounds, a copyArgs) (*clipboard.Entry, voxel.Bounds, error) {
	buf, err := capture.Capture(w, b, b.Min)
	if err != nil {
		return nil, b, err
	}
	ce := &clipboard.Entry{
		Buffer:     buf,
		IncludeAir: a.IncludeAir == nil || *a.IncludeAir,
		Dimension:  w.DimensionID(),
		Label:      a.Label,
	}
	if ce.Label == "" {
		ce.Label = b.String()
	}
	return ce, b, nil
}

func (e *Engine) cmdCopy(s *session.Session, c protocol.CommandMsg) (any, error) {
	var a copyArgs
	if err := decodeArgs(c, &a); err != nil {
		return nil, err
	}
	ce, _, err := e.copySelection(s, a)
	if err != nil {
		return nil, err
	}
	s.Clipboard.Push(ce)
	return describeClip(ce, s.Clipboard), nil
}

func (e *Engine) clipAt(s *session.Session, index *int) (*clipboard.Entry, error) {
	var (
		ce *clipboard.Entry
		ok bool
	)
	if index == nil {
		ce, ok = s.Clipboard.Latest()
	} else {
		ce, ok = s.Clipboard.At(*index)
	}
	if !ok {
		return nil, ErrEmptyClipboard
	}
	return ce, nil
}

type transformArgs struct {
	Index    *int `json:"index"`
	Rotation int  `json:"rotation"`
	FlipX    bool `json:"flip_x"`
	FlipY    bool `json:"flip_y"`
	FlipZ    bool `json:"flip_z"`
}

func (e *Engine) cmdRotate(s *session.Session, c protocol.CommandMsg) (any, error) {
	var a transformArgs
	if err := decodeArgs(c, &a); err != nil {
		return nil, err
	}
	if a.FlipX || a.FlipY || a.FlipZ {
		return nil, badRequest("ROTATE takes no flips")
	}
	return e.transformClip(s, a)
}

func (e *Engine) cmdFlip(s *session.Session, c protocol.CommandMsg) (any, error) {
	var a transformArgs
	if err := decodeArgs(c, &a); err != nil {
		return nil, err
	}
	if a.Rotation != 0 {
		return nil, badRequest("FLIP takes no rotation")
	}
	if !a.FlipX && !a.FlipY && !a.FlipZ {
		return nil, badRequest("FLIP needs at least one axis")
	}
	return e.transformClip(s, a)
}

// transformClip pushes a rotated or flipped copy of a clipboard entry. The
// source entry is left as is.
func (e *Engine) transformClip(s *session.Session, a transformArgs) (any, error) {
	ce, err := e.clipAt(s, a.Index)
	if err != nil {
		return nil, err
	}
	rot, err := transform.NormalizeRotation(a.Rotation)
	if err != nil {
		return nil, err
	}
	opts := transform.PasteOptions{Rotation: rot, FlipX: a.FlipX, FlipY: a.FlipY, FlipZ: a.FlipZ}
	buf, err := transform.Apply(ce.Buffer, opts)
	if err != nil {
		return nil, err
	}
	out := &clipboard.Entry{
		Buffer:     buf,
		IncludeAir: ce.IncludeAir,
		Dimension:  ce.Dimension,
		Label:      ce.Label,
		Entities:   ce.Entities,
	}
	if len(ce.BlockEntities) > 0 {
		plan := transform.BuildPlan(ce.Buffer, opts, voxel.Vec3i{})
		out.BlockEntities = make(map[voxel.Vec3i]map[string]any, len(ce.BlockEntities))
		for p, v := range ce.BlockEntities {
			out.BlockEntities[plan.Local(p.X, p.Y, p.Z)] = v
		}
	}
	s.Clipboard.Push(out)
	return describeClip(out, s.Clipboard), nil
}

func (e *Engine) cmdClipClear(s *session.Session, _ protocol.CommandMsg) (any, error) {
	n := s.Clipboard.Len()
	s.Clipboard.Clear()
	return map[string]int{"cleared": n}, nil
}
