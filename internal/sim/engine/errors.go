package engine

import (
	"errors"
	"fmt"

	"onistone.build/internal/config"
	"onistone.build/internal/persistence/blueprint"
	"onistone.build/internal/protocol"
	"onistone.build/internal/sim/batch"
	"onistone.build/internal/sim/capture"
	"onistone.build/internal/sim/encoding"
	"onistone.build/internal/sim/voxel"
	"onistone.build/internal/sim/zones"
)

var (
	ErrNotJoined      = errors.New("actor has not joined")
	ErrNoSelection    = errors.New("selection is incomplete")
	ErrEmptyClipboard = errors.New("clipboard is empty")
	ErrNothingToUndo  = errors.New("nothing to undo")
	ErrNothingToRedo  = errors.New("nothing to redo")
	ErrLimit          = errors.New("limit exceeded")
	ErrConfirm        = errors.New("confirmation required")
	ErrDenied         = errors.New("not permitted")
)

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", config.ErrConfiguration, fmt.Sprintf(format, args...))
}

// Code maps an error to its protocol code.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, config.ErrConfiguration):
		return protocol.ErrBadRequest
	case errors.Is(err, ErrLimit):
		return protocol.ErrLimit
	case errors.Is(err, ErrConfirm):
		return protocol.ErrConfirmRequired
	case errors.Is(err, ErrDenied):
		return protocol.ErrNoPermission
	case errors.Is(err, batch.ErrBusy):
		return protocol.ErrBusy
	case errors.Is(err, ErrNoSelection):
		return protocol.ErrNoSelection
	case errors.Is(err, ErrEmptyClipboard):
		return protocol.ErrEmptyClipboard
	case errors.Is(err, ErrNothingToUndo), errors.Is(err, ErrNothingToRedo):
		return protocol.ErrNothingToUndo
	case errors.Is(err, blueprint.ErrNotFound), errors.Is(err, zones.ErrZoneNotFound):
		return protocol.ErrNotFound
	case errors.Is(err, zones.ErrZoneExists):
		return protocol.ErrConflict
	case errors.Is(err, encoding.ErrCorruptData):
		return protocol.ErrCorrupt
	case errors.Is(err, capture.ErrCaptureFailed), errors.Is(err, voxel.ErrAccess):
		return protocol.ErrAccess
	default:
		return protocol.ErrInternal
	}
}
