// Package blueprint reads and writes .bp files: a JSON document whose
// "blocks" field is the hex form of the palette codec's output.
package blueprint

import (
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"onistone.build/internal/sim/clipboard"
	"onistone.build/internal/sim/encoding"
	"onistone.build/internal/sim/voxel"
)

//go:embed blueprint.schema.json
var schemaJSON string

var schema = jsonschema.MustCompileString("blueprint.schema.json", schemaJSON)

type Metadata struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Author      string `json:"author"`
	CreatedAt   string `json:"createdAt"`
	Dimensions  [3]int `json:"dimensions"`
	BlockCount  int    `json:"blockCount"`
}

type Document struct {
	Metadata      Metadata                  `json:"metadata"`
	Dimensions    [3]int                    `json:"dimensions"`
	Origin        [3]int                    `json:"origin"`
	IncludeAir    bool                      `json:"includeAir"`
	Blocks        string                    `json:"blocks"`
	BlockEntities map[string]map[string]any `json:"blockEntities"`
	Entities      []map[string]any          `json:"entities"`
}

// Encode fills in the derived metadata fields and compresses the buffer.
func Encode(meta Metadata, e *clipboard.Entry) (Document, error) {
	buf := e.Buffer
	w, h, l := buf.Dims()
	raw, err := encoding.Compress(buf.Cells())
	if err != nil {
		return Document{}, err
	}
	if meta.CreatedAt == "" {
		meta.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	meta.Dimensions = [3]int{w, h, l}
	meta.BlockCount = buf.NonAirCount()

	doc := Document{
		Metadata:      meta,
		Dimensions:    meta.Dimensions,
		Origin:        buf.Origin().ToArray(),
		IncludeAir:    e.IncludeAir,
		Blocks:        hex.EncodeToString(raw),
		BlockEntities: map[string]map[string]any{},
		Entities:      e.Entities,
	}
	for p, v := range e.BlockEntities {
		doc.BlockEntities[fmt.Sprintf("%d,%d,%d", p.X, p.Y, p.Z)] = v
	}
	if doc.Entities == nil {
		doc.Entities = []map[string]any{}
	}
	return doc, nil
}

// Decode rebuilds a clipboard entry. The decompressed cell count must match
// the declared dimensions.
func Decode(doc Document) (*clipboard.Entry, Metadata, error) {
	return DecodeLimit(doc, encoding.MaxCells)
}

// DecodeLimit is Decode with a cap on the declared volume. Decompression
// never expands past the declared volume.
func DecodeLimit(doc Document, limit int) (*clipboard.Entry, Metadata, error) {
	w, h, l := doc.Dimensions[0], doc.Dimensions[1], doc.Dimensions[2]
	if w < 1 || h < 1 || l < 1 {
		return nil, Metadata{}, fmt.Errorf("%w: dimensions %v", encoding.ErrCorruptData, doc.Dimensions)
	}
	volume := uint64(w) * uint64(h) * uint64(l)
	if limit > 0 && volume > uint64(limit) {
		return nil, Metadata{}, fmt.Errorf("%w: volume %d exceeds %d", encoding.ErrCorruptData, volume, limit)
	}
	raw, err := hex.DecodeString(doc.Blocks)
	if err != nil {
		return nil, Metadata{}, fmt.Errorf("%w: blocks: %v", encoding.ErrCorruptData, err)
	}
	cells, err := encoding.DecompressLimit(raw, volume)
	if err != nil {
		return nil, Metadata{}, err
	}
	if uint64(len(cells)) != volume {
		return nil, Metadata{}, fmt.Errorf("%w: %d cells for dimensions %v", encoding.ErrCorruptData, len(cells), doc.Dimensions)
	}
	buf, err := voxel.NewBuffer(w, h, l, cells, voxel.FromArray(doc.Origin))
	if err != nil {
		return nil, Metadata{}, fmt.Errorf("%w: %v", encoding.ErrCorruptData, err)
	}
	e := &clipboard.Entry{
		Buffer:     buf,
		IncludeAir: doc.IncludeAir,
		Entities:   doc.Entities,
		Label:      doc.Metadata.Name,
	}
	if len(doc.BlockEntities) > 0 {
		e.BlockEntities = make(map[voxel.Vec3i]map[string]any, len(doc.BlockEntities))
		for k, v := range doc.BlockEntities {
			p, err := parseKey(k)
			if err != nil {
				return nil, Metadata{}, err
			}
			e.BlockEntities[p] = v
		}
	}
	meta := doc.Metadata
	if meta.Name == "" {
		meta.Name = "Unnamed"
	}
	return e, meta, nil
}

func parseKey(k string) (voxel.Vec3i, error) {
	parts := strings.Split(k, ",")
	if len(parts) != 3 {
		return voxel.Vec3i{}, fmt.Errorf("%w: block entity key %q", encoding.ErrCorruptData, k)
	}
	var a [3]int
	for i, s := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return voxel.Vec3i{}, fmt.Errorf("%w: block entity key %q", encoding.ErrCorruptData, k)
		}
		a[i] = n
	}
	return voxel.FromArray(a), nil
}

func Marshal(doc Document) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}

// Parse validates raw against the blueprint schema before decoding it.
// Documents written by older tools may omit origin, includeAir and the
// entity maps; includeAir then defaults to true.
func Parse(raw []byte) (Document, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return Document{}, fmt.Errorf("%w: %v", encoding.ErrCorruptData, err)
	}
	if err := schema.Validate(v); err != nil {
		return Document{}, fmt.Errorf("%w: %v", encoding.ErrCorruptData, err)
	}
	doc := Document{IncludeAir: true}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Document{}, fmt.Errorf("%w: %v", encoding.ErrCorruptData, err)
	}
	return doc, nil
}
