package voxel

type BlockReader interface {
	BlockAt(p Vec3i) (Block, error)
}

type BlockWriter interface {
	SetBlock(p Vec3i, b Block) error
}

// World is one dimension of the host. Implementations are only ever called
// from the engine goroutine.
type World interface {
	BlockReader
	BlockWriter
	DimensionID() string
}

type Dimensions interface {
	Dimension(id string) (World, bool)
}
