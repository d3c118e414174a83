package voxel

import (
	"strconv"
	"strings"
)

const AirType = "minecraft:air"

// Block is a single block record. Equality only looks at Type and Data;
// Aux carries opaque host payloads (NBT and similar) and is never compared.
type Block struct {
	Type string         `json:"type"`
	Data int            `json:"data"`
	Aux  map[string]any `json:"nbt,omitempty"`
}

var Air = Block{Type: AirType}

// BlockKey is the comparable identity of a Block.
type BlockKey struct {
	Type string
	Data int
}

func (b Block) Key() BlockKey { return BlockKey{Type: b.Type, Data: b.Data} }

func (b Block) Equal(o Block) bool { return b.Type == o.Type && b.Data == o.Data }

func (b Block) IsAir() bool { return b.Type == AirType || b.Type == "" }

func (b Block) IsLiquid() bool {
	return strings.Contains(b.Type, "water") || strings.Contains(b.Type, "lava")
}

func (b Block) String() string {
	if b.Data == 0 {
		return b.Type
	}
	return b.Type + ":" + strconv.Itoa(b.Data)
}

func IsAir(b Block) bool    { return b.IsAir() }
func IsNonAir(b Block) bool { return !b.IsAir() }

// Placement pairs a world position with the block to write there.
type Placement struct {
	Pos   Vec3i
	Block Block
}
