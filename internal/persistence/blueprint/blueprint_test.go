package blueprint

import (
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"onistone.build/internal/config"
	"onistone.build/internal/sim/clipboard"
	"onistone.build/internal/sim/encoding"
	"onistone.build/internal/sim/voxel"
)

func sampleEntry(t *testing.T) *clipboard.Entry {
	t.Helper()
	a := voxel.Block{Type: "minecraft:oak_planks"}
	b := voxel.Block{Type: "minecraft:stone", Data: 2}
	cells := []voxel.Block{a, a, b, voxel.Air, a, b}
	buf, err := voxel.NewBuffer(3, 1, 2, cells, voxel.V(-5, 64, 12))
	if err != nil {
		t.Fatal(err)
	}
	return &clipboard.Entry{
		Buffer:        buf,
		IncludeAir:    false,
		BlockEntities: map[voxel.Vec3i]map[string]any{voxel.V(1, 0, 1): {"id": "chest"}},
		Entities:      []map[string]any{{"type": "minecraft:armor_stand"}},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	e := sampleEntry(t)
	doc, err := Encode(Metadata{Name: "hut", Author: "alex"}, e)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Metadata.BlockCount != 5 || doc.Metadata.Dimensions != [3]int{3, 1, 2} {
		t.Fatalf("metadata=%+v", doc.Metadata)
	}
	if doc.BlockEntities["1,0,1"]["id"] != "chest" {
		t.Fatalf("block entities=%v", doc.BlockEntities)
	}
	raw, err := Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	parsed, err := Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	got, meta, err := Decode(parsed)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if meta.Author != "alex" || meta.CreatedAt == "" {
		t.Fatalf("meta=%+v", meta)
	}
	if got.IncludeAir || got.Buffer.Origin() != voxel.V(-5, 64, 12) {
		t.Fatalf("entry fields lost: %+v", got)
	}
	want := e.Buffer.Cells()
	for i, c := range got.Buffer.Cells() {
		if !c.Equal(want[i]) {
			t.Fatalf("cell %d: %s want %s", i, c, want[i])
		}
	}
	if got.BlockEntities[voxel.V(1, 0, 1)]["id"] != "chest" || len(got.Entities) != 1 {
		t.Fatalf("opaque payloads lost")
	}
}

func TestParseRejectsInvalidDocuments(t *testing.T) {
	cases := map[string]string{
		"not json":       `{`,
		"no blocks":      `{"metadata":{},"dimensions":[1,1,1]}`,
		"zero dim":       `{"metadata":{},"dimensions":[0,1,1],"blocks":""}`,
		"short dims":     `{"metadata":{},"dimensions":[1,1],"blocks":""}`,
		"odd hex":        `{"metadata":{},"dimensions":[1,1,1],"blocks":"abc"}`,
		"bad entity key": `{"metadata":{},"dimensions":[1,1,1],"blocks":"","blockEntities":{"a,b":{}}}`,
	}
	for name, raw := range cases {
		if _, err := Parse([]byte(raw)); !errors.Is(err, encoding.ErrCorruptData) {
			t.Fatalf("%s: expected ErrCorruptData, got %v", name, err)
		}
	}
}

func TestDecodeRejectsLengthMismatch(t *testing.T) {
	raw, err := encoding.Compress([]voxel.Block{voxel.Air, voxel.Air})
	if err != nil {
		t.Fatal(err)
	}
	doc := Document{Dimensions: [3]int{2, 2, 1}, Blocks: hex.EncodeToString(raw)}
	if _, _, err := Decode(doc); !errors.Is(err, encoding.ErrCorruptData) {
		t.Fatalf("expected ErrCorruptData, got %v", err)
	}
}

func TestDecodeLimitRejectsOversizedVolume(t *testing.T) {
	raw, err := encoding.Compress([]voxel.Block{voxel.Air})
	if err != nil {
		t.Fatal(err)
	}
	doc := Document{Dimensions: [3]int{100, 100, 100}, Blocks: hex.EncodeToString(raw)}
	if _, _, err := DecodeLimit(doc, 1000); !errors.Is(err, encoding.ErrCorruptData) {
		t.Fatalf("expected ErrCorruptData, got %v", err)
	}
}

func TestDecodeStopsAtDeclaredVolume(t *testing.T) {
	cells := make([]voxel.Block, 4096)
	for i := range cells {
		cells[i] = voxel.Air
	}
	raw, err := encoding.Compress(cells)
	if err != nil {
		t.Fatal(err)
	}
	doc := Document{Dimensions: [3]int{1, 1, 1}, Blocks: hex.EncodeToString(raw)}
	if _, _, err := DecodeLimit(doc, 0); !errors.Is(err, encoding.ErrCorruptData) {
		t.Fatalf("expected ErrCorruptData, got %v", err)
	}
}

func TestStoreLoadHonoursMaxCells(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(filepath.Join(dir, "bp"), filepath.Join(dir, "shared"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Save("actor-1", "hut", sampleEntry(t), Metadata{}, false); err != nil {
		t.Fatal(err)
	}
	s.SetMaxCells(5)
	if _, _, err := s.Load("actor-1", "hut"); !errors.Is(err, encoding.ErrCorruptData) {
		t.Fatalf("expected ErrCorruptData for 6 cells over cap 5, got %v", err)
	}
	s.SetMaxCells(6)
	if _, _, err := s.Load("actor-1", "hut"); err != nil {
		t.Fatalf("load at cap: %v", err)
	}
}

func TestParseDefaultsIncludeAirForOlderFiles(t *testing.T) {
	raw, _ := encoding.Compress([]voxel.Block{{Type: "minecraft:stone"}})
	doc, err := Parse([]byte(`{"metadata":{"name":"old"},"dimensions":[1,1,1],"blocks":"` + hex.EncodeToString(raw) + `"}`))
	if err != nil {
		t.Fatal(err)
	}
	e, _, err := Decode(doc)
	if err != nil {
		t.Fatal(err)
	}
	if !e.IncludeAir || e.Buffer.Origin() != (voxel.Vec3i{}) {
		t.Fatalf("defaults not applied: %+v", e)
	}
}

func TestStoreSaveLoadListDelete(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(filepath.Join(dir, "bp"), filepath.Join(dir, "bp", "shared"))
	if err != nil {
		t.Fatal(err)
	}
	e := sampleEntry(t)
	path, err := s.Save("actor-1", "hut", e, Metadata{Description: "small"}, false)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(path, filepath.Join("personal", "actor-1", "hut.bp")) {
		t.Fatalf("path=%s", path)
	}
	if _, err := s.Save("actor-1", "tower", e, Metadata{}, true); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "bp", "shared", "tower.bp")); err != nil {
		t.Fatalf("shared file missing: %v", err)
	}

	names, err := s.List("actor-1", true)
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 || names[0] != "[Shared] tower" || names[1] != "hut" {
		t.Fatalf("names=%v", names)
	}
	if own, _ := s.List("actor-1", false); len(own) != 1 {
		t.Fatalf("personal=%v", own)
	}

	got, meta, err := s.Load("actor-1", "[Shared] tower")
	if err != nil {
		t.Fatal(err)
	}
	if meta.Name != "tower" || got.Buffer.Len() != 6 {
		t.Fatalf("meta=%+v len=%d", meta, got.Buffer.Len())
	}
	if _, _, err := s.Load("actor-2", "hut"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("other actor's blueprint visible: %v", err)
	}

	if err := s.Delete("actor-1", "hut"); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete("actor-1", "hut"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: %v", err)
	}
}

func TestStoreRejectsTraversal(t *testing.T) {
	s, err := NewStore(filepath.Join(t.TempDir(), "bp"), filepath.Join(t.TempDir(), "shared"))
	if err != nil {
		t.Fatal(err)
	}
	e := sampleEntry(t)
	for _, name := range []string{"../evil", "a/b", "", ".hidden", "x..y"} {
		if _, err := s.Save("actor-1", name, e, Metadata{}, false); !errors.Is(err, config.ErrConfiguration) {
			t.Fatalf("%q: expected ErrConfiguration, got %v", name, err)
		}
	}
	if _, _, err := s.Load("../../etc", "passwd"); !errors.Is(err, config.ErrConfiguration) {
		t.Fatalf("actor traversal: %v", err)
	}
}
