package voxel

import "fmt"

type Selection struct {
	Pos1      *Vec3i
	Pos2      *Vec3i
	Dimension string
}

// SetPos1 sets the first corner. The dimension is taken from the first corner
// set and kept until Clear.
func (s *Selection) SetPos1(p Vec3i, dim string) {
	s.Pos1 = &p
	if s.Dimension == "" {
		s.Dimension = dim
	}
}

func (s *Selection) SetPos2(p Vec3i, dim string) {
	s.Pos2 = &p
	if s.Dimension == "" {
		s.Dimension = dim
	}
}

func (s *Selection) Complete() bool { return s.Pos1 != nil && s.Pos2 != nil }

func (s *Selection) Bounds() (Bounds, bool) {
	if !s.Complete() {
		return Bounds{}, false
	}
	return NewBounds(*s.Pos1, *s.Pos2), true
}

// Volume is 0 for an incomplete selection.
func (s *Selection) Volume() int {
	b, ok := s.Bounds()
	if !ok {
		return 0
	}
	return b.Volume()
}

func (s *Selection) Clear() {
	s.Pos1 = nil
	s.Pos2 = nil
	s.Dimension = ""
}

func (s *Selection) String() string {
	b, ok := s.Bounds()
	if !ok {
		return "incomplete selection"
	}
	w, h, l := b.Dims()
	return fmt.Sprintf("%dx%dx%d (%d blocks)", w, h, l, b.Volume())
}
