package voxel

import "errors"

var (
	// ErrOutOfRange is returned for local coordinates outside a buffer.
	ErrOutOfRange = errors.New("voxel: coordinate out of range")
	// ErrAccess is returned by readers for unloaded or out-of-bounds positions.
	ErrAccess = errors.New("voxel: block access failed")
	// ErrWrite is returned by writers that refuse a block.
	ErrWrite = errors.New("voxel: block write failed")
)
