package clipboard

import (
	"onistone.build/internal/sim/voxel"
)

// Entry is one copied region. BlockEntities and Entities are carried
// opaquely and never compared.
type Entry struct {
	Buffer        *voxel.Buffer
	IncludeAir    bool
	Dimension     string
	Label         string
	BlockEntities map[voxel.Vec3i]map[string]any
	Entities      []map[string]any
}

func (e *Entry) NonAirCount() int { return e.Buffer.NonAirCount() }

// Ring keeps the newest N entries of one actor.
type Ring struct {
	capacity int
	items    []*Entry
}

func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{capacity: capacity}
}

func (r *Ring) Capacity() int { return r.capacity }
func (r *Ring) Len() int      { return len(r.items) }

// Push appends e, evicting the oldest entry when the ring is full.
func (r *Ring) Push(e *Entry) {
	if len(r.items) == r.capacity {
		copy(r.items, r.items[1:])
		r.items[len(r.items)-1] = nil
		r.items = r.items[:len(r.items)-1]
	}
	r.items = append(r.items, e)
}

func (r *Ring) Latest() (*Entry, bool) {
	if len(r.items) == 0 {
		return nil, false
	}
	return r.items[len(r.items)-1], true
}

// At indexes from the oldest entry; negative indexes count back from the
// newest, so -1 is Latest.
func (r *Ring) At(i int) (*Entry, bool) {
	if i < 0 {
		i += len(r.items)
	}
	if i < 0 || i >= len(r.items) {
		return nil, false
	}
	return r.items[i], true
}

func (r *Ring) Clear() { r.items = nil }
