package transform

import (
	"fmt"

	"onistone.build/internal/config"
	"onistone.build/internal/sim/voxel"
)

// PasteOptions controls how a buffer is laid into the world. The zero value
// skips air; use DefaultPasteOptions for the usual paste behaviour.
type PasteOptions struct {
	Rotation Rotation
	FlipX    bool
	FlipY    bool
	FlipZ    bool
	Offset   voxel.Vec3i

	PlaceAir            bool
	IgnoreLiquids       bool
	ReplaceOnlySameType bool
}

func DefaultPasteOptions() PasteOptions {
	return PasteOptions{PlaceAir: true}
}

func (o PasteOptions) Flipped() bool { return o.FlipX || o.FlipY || o.FlipZ }

func (o PasteOptions) Validate() error {
	if o.Rotation < Rot0 || o.Rotation > Rot270 {
		return fmt.Errorf("%w: rotation must be one of 0, 90, 180, 270", config.ErrConfiguration)
	}
	return nil
}
