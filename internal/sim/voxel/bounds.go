package voxel

import "fmt"

// Bounds is an inclusive cuboid.
type Bounds struct {
	Min Vec3i `json:"min"`
	Max Vec3i `json:"max"`
}

func NewBounds(a, b Vec3i) Bounds {
	return Bounds{Min: MinVec(a, b), Max: MaxVec(a, b)}
}

func (b Bounds) Dims() (w, h, l int) {
	return b.Max.X - b.Min.X + 1, b.Max.Y - b.Min.Y + 1, b.Max.Z - b.Min.Z + 1
}

func (b Bounds) Volume() int {
	w, h, l := b.Dims()
	return w * h * l
}

func (b Bounds) Contains(p Vec3i) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

func (b Bounds) ContainsBounds(o Bounds) bool {
	return b.Contains(o.Min) && b.Contains(o.Max)
}

func (b Bounds) Center() Vec3i {
	return Vec3i{
		X: floorHalf(b.Min.X + b.Max.X),
		Y: floorHalf(b.Min.Y + b.Max.Y),
		Z: floorHalf(b.Min.Z + b.Max.Z),
	}
}

func (b Bounds) String() string {
	w, h, l := b.Dims()
	return fmt.Sprintf("%s-%s %dx%dx%d", b.Min, b.Max, w, h, l)
}

func floorHalf(v int) int {
	if v < 0 && v%2 != 0 {
		return v/2 - 1
	}
	return v / 2
}
