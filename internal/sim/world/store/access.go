package store

import (
	"fmt"
	"sort"

	"onistone.build/internal/sim/voxel"
)

func floorDiv(a, b int) int {
	q := a / b
	if a%b < 0 {
		q--
	}
	return q
}

func mod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

func (w *World) InBounds(p voxel.Vec3i) bool {
	if p.Y < w.limits.MinY || p.Y > w.limits.MaxY {
		return false
	}
	if r := w.limits.BoundaryR; r > 0 {
		if p.X < -r || p.X > r || p.Z < -r || p.Z > r {
			return false
		}
	}
	return true
}

func keyFor(p voxel.Vec3i) (ChunkKey, int, int, int) {
	k := ChunkKey{CX: floorDiv(p.X, ChunkSize), CY: floorDiv(p.Y, ChunkSize), CZ: floorDiv(p.Z, ChunkSize)}
	return k, mod(p.X, ChunkSize), mod(p.Y, ChunkSize), mod(p.Z, ChunkSize)
}

func (w *World) BlockAt(p voxel.Vec3i) (voxel.Block, error) {
	w.reads++
	if !w.InBounds(p) {
		return voxel.Block{}, fmt.Errorf("%w: %s outside %s", voxel.ErrAccess, p, w.id)
	}
	if w.FailReads != nil && w.FailReads(p) {
		return voxel.Block{}, fmt.Errorf("%w: %s not loaded", voxel.ErrAccess, p)
	}
	k, x, y, z := keyFor(p)
	ch, ok := w.chunks[k]
	if !ok {
		return voxel.Air, nil
	}
	b := w.palette[ch.Get(x, y, z)]
	if aux, ok := w.aux[p]; ok {
		b.Aux = aux
	}
	return b, nil
}

func (w *World) SetBlock(p voxel.Vec3i, b voxel.Block) error {
	if b.Type == "" {
		return fmt.Errorf("%w: empty block type at %s", voxel.ErrWrite, p)
	}
	if !w.InBounds(p) {
		return fmt.Errorf("%w: %s outside %s", voxel.ErrWrite, p, w.id)
	}
	if w.FailWrites != nil && w.FailWrites(p, b) {
		return fmt.Errorf("%w: host refused %s at %s", voxel.ErrWrite, b, p)
	}
	w.writes++
	id := w.paletteID(b)
	k, x, y, z := keyFor(p)
	ch, ok := w.chunks[k]
	if !ok {
		if id == 0 {
			delete(w.aux, p)
			return nil
		}
		ch = newChunk(k)
		w.chunks[k] = ch
	}
	ch.Set(x, y, z, id)
	if ch.Empty() {
		delete(w.chunks, k)
	}
	if len(b.Aux) > 0 {
		w.aux[p] = b.Aux
	} else {
		delete(w.aux, p)
	}
	return nil
}

func (w *World) paletteID(b voxel.Block) uint16 {
	k := b.Key()
	if id, ok := w.index[k]; ok {
		return id
	}
	id := uint16(len(w.palette))
	w.palette = append(w.palette, voxel.Block{Type: b.Type, Data: b.Data})
	w.index[k] = id
	return id
}

func (w *World) LoadedChunkKeys() []ChunkKey {
	keys := make([]ChunkKey, 0, len(w.chunks))
	for k := range w.chunks {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CX != keys[j].CX {
			return keys[i].CX < keys[j].CX
		}
		if keys[i].CY != keys[j].CY {
			return keys[i].CY < keys[j].CY
		}
		return keys[i].CZ < keys[j].CZ
	})
	return keys
}

type Stats struct {
	Dimension string `json:"dimension"`
	Chunks    int    `json:"chunks"`
	Palette   int    `json:"palette"`
	Reads     int    `json:"reads"`
	Writes    int    `json:"writes"`
}

func (w *World) Stats() Stats {
	return Stats{Dimension: w.id, Chunks: len(w.chunks), Palette: len(w.palette), Reads: w.reads, Writes: w.writes}
}
