package encoding

import "onistone.build/internal/sim/voxel"

// Palette maps distinct blocks (by Type and Data) to indices in first-seen
// order.
type Palette struct {
	blocks []voxel.Block
	index  map[voxel.BlockKey]int
}

func NewPalette() *Palette {
	return &Palette{index: map[voxel.BlockKey]int{}}
}

// Add returns the index of b, appending it when unseen. The first instance
// seen wins, including its Aux payload.
func (p *Palette) Add(b voxel.Block) int {
	k := b.Key()
	if i, ok := p.index[k]; ok {
		return i
	}
	i := len(p.blocks)
	p.blocks = append(p.blocks, b)
	p.index[k] = i
	return i
}

func (p *Palette) Index(b voxel.Block) (int, bool) {
	i, ok := p.index[b.Key()]
	return i, ok
}

func (p *Palette) Blocks() []voxel.Block { return p.blocks }
func (p *Palette) Len() int              { return len(p.blocks) }

// BuildPalette returns the palette of cells and the per-cell index stream.
func BuildPalette(cells []voxel.Block) (*Palette, []int) {
	p := NewPalette()
	ids := make([]int, len(cells))
	for i, c := range cells {
		ids[i] = p.Add(c)
	}
	return p, ids
}
