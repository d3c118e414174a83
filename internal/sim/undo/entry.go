package undo

import (
	"fmt"
	"time"

	"onistone.build/internal/sim/voxel"
)

type Change struct {
	Pos       voxel.Vec3i `json:"pos"`
	Old       voxel.Block `json:"old"`
	Dimension string      `json:"dimension"`
}

// Entry is the pre-mutation state of every position one operation touched,
// in the order the positions were written.
type Entry struct {
	Description string    `json:"description"`
	Dimension   string    `json:"dimension"`
	Changes     []Change  `json:"changes"`
	CreatedAt   time.Time `json:"created_at"`
}

func NewEntry(desc, dim string) *Entry {
	return &Entry{Description: desc, Dimension: dim, CreatedAt: time.Now()}
}

func (e *Entry) Record(pos voxel.Vec3i, old voxel.Block) {
	e.Changes = append(e.Changes, Change{Pos: pos, Old: old, Dimension: e.Dimension})
}

func (e *Entry) Len() int {
	if e == nil {
		return 0
	}
	return len(e.Changes)
}

// Capture reads the current block at each position before the caller
// mutates them. Any read failure aborts; nothing is recorded.
func Capture(r voxel.BlockReader, dim string, positions []voxel.Vec3i, desc string) (*Entry, error) {
	e := NewEntry(desc, dim)
	e.Changes = make([]Change, 0, len(positions))
	for _, p := range positions {
		b, err := r.BlockAt(p)
		if err != nil {
			return nil, fmt.Errorf("undo capture %s: %w", p, err)
		}
		e.Record(p, b)
	}
	return e, nil
}

// RestoreSource yields an entry's changes newest first, as placements of the
// old blocks. It satisfies batch.Source.
type RestoreSource struct {
	e *Entry
	i int
}

func NewRestoreSource(e *Entry) *RestoreSource {
	return &RestoreSource{e: e, i: len(e.Changes) - 1}
}

func (s *RestoreSource) Len() int { return len(s.e.Changes) }

func (s *RestoreSource) Next() (voxel.Placement, bool) {
	if s.i < 0 {
		return voxel.Placement{}, false
	}
	c := s.e.Changes[s.i]
	s.i--
	return voxel.Placement{Pos: c.Pos, Block: c.Old}, true
}
