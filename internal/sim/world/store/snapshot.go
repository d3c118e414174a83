package store

import (
	"fmt"

	"onistone.build/internal/persistence/snapshot"
	"onistone.build/internal/sim/voxel"
)

// Export copies the world's blocks into a snapshot. Empty chunks are skipped.
func (w *World) Export(tick uint64, savedAtMS int64) snapshot.WorldV1 {
	snap := snapshot.WorldV1{
		Header: snapshot.Header{Version: snapshot.Version, Dimension: w.id, Tick: tick, SavedAtMS: savedAtMS},
		Limits: snapshot.LimitsV1{BoundaryR: w.limits.BoundaryR, MinY: w.limits.MinY, MaxY: w.limits.MaxY},
	}
	for _, b := range w.palette {
		snap.Palette = append(snap.Palette, snapshot.BlockV1{Type: b.Type, Data: b.Data})
	}
	for _, k := range w.LoadedChunkKeys() {
		ch := w.chunks[k]
		if ch.Empty() {
			continue
		}
		blocks := make([]uint16, len(ch.Blocks))
		copy(blocks, ch.Blocks)
		snap.Chunks = append(snap.Chunks, snapshot.ChunkV1{CX: k.CX, CY: k.CY, CZ: k.CZ, Blocks: blocks})
	}
	for p, v := range w.aux {
		snap.Aux = append(snap.Aux, snapshot.AuxV1{Pos: p.ToArray(), Data: v})
	}
	return snap
}

// Import rebuilds a world from a snapshot. Palette ids are kept as is.
func Import(snap snapshot.WorldV1) (*World, error) {
	w := New(snap.Header.Dimension, Limits{BoundaryR: snap.Limits.BoundaryR, MinY: snap.Limits.MinY, MaxY: snap.Limits.MaxY})
	if len(snap.Palette) == 0 || !blockOf(snap.Palette[0]).IsAir() {
		return nil, fmt.Errorf("snapshot %s: palette must start with air", snap.Header.Dimension)
	}
	w.palette = w.palette[:0]
	w.index = map[voxel.BlockKey]uint16{}
	for i, pb := range snap.Palette {
		b := blockOf(pb)
		w.palette = append(w.palette, b)
		if _, dup := w.index[b.Key()]; !dup {
			w.index[b.Key()] = uint16(i)
		}
	}
	const size = ChunkSize * ChunkSize * ChunkSize
	for _, sc := range snap.Chunks {
		if len(sc.Blocks) != size {
			return nil, fmt.Errorf("snapshot chunk %d,%d,%d: %d blocks, want %d", sc.CX, sc.CY, sc.CZ, len(sc.Blocks), size)
		}
		k := ChunkKey{CX: sc.CX, CY: sc.CY, CZ: sc.CZ}
		ch := newChunk(k)
		for i, id := range sc.Blocks {
			if int(id) >= len(w.palette) {
				return nil, fmt.Errorf("snapshot chunk %d,%d,%d: palette id %d out of range", sc.CX, sc.CY, sc.CZ, id)
			}
			ch.Blocks[i] = id
			if id != 0 {
				ch.nonAir++
			}
		}
		w.chunks[k] = ch
	}
	for _, a := range snap.Aux {
		w.aux[voxel.FromArray(a.Pos)] = a.Data
	}
	return w, nil
}

func blockOf(b snapshot.BlockV1) voxel.Block { return voxel.Block{Type: b.Type, Data: b.Data} }
