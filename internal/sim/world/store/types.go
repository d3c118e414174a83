package store

import (
	"onistone.build/internal/sim/voxel"
)

const ChunkSize = 16

type ChunkKey struct {
	CX, CY, CZ int
}

// Chunk is a 16x16x16 section of palette ids. Id 0 is always air.
type Chunk struct {
	Key    ChunkKey
	Blocks []uint16
	nonAir int
}

func newChunk(k ChunkKey) *Chunk {
	return &Chunk{Key: k, Blocks: make([]uint16, ChunkSize*ChunkSize*ChunkSize)}
}

func (c *Chunk) index(x, y, z int) int {
	return x + z*ChunkSize + y*ChunkSize*ChunkSize
}

func (c *Chunk) Get(x, y, z int) uint16 {
	return c.Blocks[c.index(x, y, z)]
}

func (c *Chunk) Set(x, y, z int, b uint16) {
	i := c.index(x, y, z)
	old := c.Blocks[i]
	if old == b {
		return
	}
	if old == 0 {
		c.nonAir++
	} else if b == 0 {
		c.nonAir--
	}
	c.Blocks[i] = b
}

func (c *Chunk) Empty() bool { return c.nonAir == 0 }

type Limits struct {
	BoundaryR int // |x|,|z| <= BoundaryR when > 0
	MinY      int
	MaxY      int
}

// World is an in-memory dimension. It stands in for the host's block
// storage in the standalone server and in tests.
type World struct {
	id     string
	limits Limits

	palette []voxel.Block
	index   map[voxel.BlockKey]uint16
	aux     map[voxel.Vec3i]map[string]any
	chunks  map[ChunkKey]*Chunk

	// FailReads and FailWrites inject host failures for the given position.
	FailReads  func(p voxel.Vec3i) bool
	FailWrites func(p voxel.Vec3i, b voxel.Block) bool

	reads, writes int
}

func New(id string, limits Limits) *World {
	if limits.MaxY <= limits.MinY {
		limits.MinY, limits.MaxY = -64, 319
	}
	return &World{
		id:      id,
		limits:  limits,
		palette: []voxel.Block{voxel.Air},
		index:   map[voxel.BlockKey]uint16{voxel.Air.Key(): 0},
		aux:     map[voxel.Vec3i]map[string]any{},
		chunks:  map[ChunkKey]*Chunk{},
	}
}

func (w *World) DimensionID() string { return w.id }

// Worlds maps dimension ids to worlds.
type Worlds map[string]*World

func (ws Worlds) Dimension(id string) (voxel.World, bool) {
	w, ok := ws[id]
	if !ok {
		return nil, false
	}
	return w, true
}
