package voxel

import "fmt"

// Buffer is a dense W*H*L block array. Cells are ordered Y-major, then Z,
// then X: index = x + z*W + y*W*L. Capture and the palette codec rely on
// this exact order.
//
// A Buffer is never mutated after NewBuffer returns.
type Buffer struct {
	w, h, l int
	cells   []Block
	origin  Vec3i
}

// NewBuffer copies cells, which must hold exactly w*h*l blocks in index order.
func NewBuffer(w, h, l int, cells []Block, origin Vec3i) (*Buffer, error) {
	if w < 1 || h < 1 || l < 1 {
		return nil, fmt.Errorf("%w: dimensions %dx%dx%d", ErrOutOfRange, w, h, l)
	}
	if len(cells) != w*h*l {
		return nil, fmt.Errorf("%w: %d cells for %dx%dx%d", ErrOutOfRange, len(cells), w, h, l)
	}
	cp := make([]Block, len(cells))
	copy(cp, cells)
	return &Buffer{w: w, h: h, l: l, cells: cp, origin: origin}, nil
}

func (b *Buffer) Dims() (w, h, l int) { return b.w, b.h, b.l }
func (b *Buffer) Width() int          { return b.w }
func (b *Buffer) Height() int         { return b.h }
func (b *Buffer) Length() int         { return b.l }
func (b *Buffer) Origin() Vec3i       { return b.origin }
func (b *Buffer) Len() int            { return len(b.cells) }

// Cells returns a copy of the cell slice in index order.
func (b *Buffer) Cells() []Block {
	out := make([]Block, len(b.cells))
	copy(out, b.cells)
	return out
}

// Index returns the cell offset of (x, y, z) or ErrOutOfRange.
func (b *Buffer) Index(x, y, z int) (int, error) {
	if x < 0 || y < 0 || z < 0 || x >= b.w || y >= b.h || z >= b.l {
		return 0, fmt.Errorf("%w: (%d,%d,%d) in %dx%dx%d", ErrOutOfRange, x, y, z, b.w, b.h, b.l)
	}
	return x + z*b.w + y*b.w*b.l, nil
}

// At returns the block at a buffer-local coordinate.
func (b *Buffer) At(x, y, z int) (Block, error) {
	i, err := b.Index(x, y, z)
	if err != nil {
		return Block{}, err
	}
	return b.cells[i], nil
}

// cell skips bounds checks; callers iterate within Dims.
func (b *Buffer) cell(x, y, z int) Block {
	return b.cells[x+z*b.w+y*b.w*b.l]
}

// BlockCount counts cells matching pred.
func (b *Buffer) BlockCount(pred func(Block) bool) int {
	n := 0
	for _, c := range b.cells {
		if pred(c) {
			n++
		}
	}
	return n
}

func (b *Buffer) NonAirCount() int { return b.BlockCount(IsNonAir) }

// Each visits every cell in index order.
func (b *Buffer) Each(fn func(x, y, z int, blk Block)) {
	for y := 0; y < b.h; y++ {
		for z := 0; z < b.l; z++ {
			for x := 0; x < b.w; x++ {
				fn(x, y, z, b.cell(x, y, z))
			}
		}
	}
}

// CellAt returns the cell at flat index i along with its local coordinates.
func (b *Buffer) CellAt(i int) (x, y, z int, blk Block) {
	plane := b.w * b.l
	y = i / plane
	rem := i % plane
	z = rem / b.w
	x = rem % b.w
	return x, y, z, b.cells[i]
}
