package encoding

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"

	"onistone.build/internal/sim/voxel"
)

// ErrCorruptData reports a block payload that cannot be decoded.
var ErrCorruptData = errors.New("encoding: corrupt block data")

// MaxCells caps decompression output so a hostile payload cannot expand
// without bound.
const MaxCells = 1 << 26

// maxPayloadBytes bounds the inflated JSON document.
const maxPayloadBytes = 64 << 20

type paletteEntry struct {
	Type string         `json:"type"`
	Data int            `json:"data"`
	NBT  map[string]any `json:"nbt,omitempty"`
}

// payload is the structured form before zlib: {"palette": [...], "rle": [[idx, count], ...]}.
type payload struct {
	Palette *[]paletteEntry `json:"palette"`
	RLE     *[][2]uint64    `json:"rle"`
}

// Compress encodes cells as a palette plus run-length index stream and
// zlib-compresses the JSON form. An empty input encodes to an empty output.
func Compress(cells []voxel.Block) ([]byte, error) {
	if len(cells) == 0 {
		return []byte{}, nil
	}
	pal, ids := BuildPalette(cells)
	entries := make([]paletteEntry, 0, pal.Len())
	for _, b := range pal.Blocks() {
		entries = append(entries, paletteEntry{Type: b.Type, Data: b.Data, NBT: b.Aux})
	}
	runs := EncodeRuns(ids)
	pairs := make([][2]uint64, 0, len(runs))
	for _, r := range runs {
		pairs = append(pairs, [2]uint64{uint64(r.Index), r.Length})
	}
	raw, err := json.Marshal(payload{Palette: &entries, RLE: &pairs})
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(raw); err != nil {
		_ = zw.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decompress is the inverse of Compress. Any malformed input yields
// ErrCorruptData.
func Decompress(b []byte) ([]voxel.Block, error) {
	return DecompressLimit(b, MaxCells)
}

// DecompressLimit is Decompress with a caller-chosen cell cap. Runs summing
// past limit are rejected before any cell slice is allocated. A zero limit
// means MaxCells.
func DecompressLimit(b []byte, limit uint64) ([]voxel.Block, error) {
	if limit == 0 || limit > MaxCells {
		limit = MaxCells
	}
	if len(b) == 0 {
		return []voxel.Block{}, nil
	}
	zr, err := zlib.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptData, err)
	}
	defer zr.Close()
	raw, err := io.ReadAll(io.LimitReader(zr, maxPayloadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptData, err)
	}
	if len(raw) > maxPayloadBytes {
		return nil, fmt.Errorf("%w: payload exceeds %d bytes", ErrCorruptData, maxPayloadBytes)
	}

	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptData, err)
	}
	if p.Palette == nil || p.RLE == nil {
		return nil, fmt.Errorf("%w: missing palette or rle", ErrCorruptData)
	}
	palette := make([]voxel.Block, 0, len(*p.Palette))
	for _, e := range *p.Palette {
		if e.Type == "" {
			e.Type = voxel.AirType
		}
		palette = append(palette, voxel.Block{Type: e.Type, Data: e.Data, Aux: e.NBT})
	}
	runs := make([]Run, 0, len(*p.RLE))
	for _, pr := range *p.RLE {
		if pr[0] > uint64(len(palette)) {
			return nil, fmt.Errorf("%w: palette index %d", ErrCorruptData, pr[0])
		}
		runs = append(runs, Run{Index: int(pr[0]), Length: pr[1]})
	}
	ids, err := ExpandRuns(runs, len(palette), limit)
	if err != nil {
		return nil, err
	}
	out := make([]voxel.Block, len(ids))
	for i, id := range ids {
		out[i] = palette[id]
	}
	return out, nil
}
