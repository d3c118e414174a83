package store

import (
	"testing"

	"onistone.build/internal/persistence/snapshot"
	"onistone.build/internal/sim/voxel"
)

func TestExportImportRoundTrip(t *testing.T) {
	w := New("overworld", Limits{BoundaryR: 100, MinY: -64, MaxY: 319})
	chest := voxel.Block{Type: "minecraft:chest", Aux: map[string]any{"items": "none"}}
	blocks := map[voxel.Vec3i]voxel.Block{
		voxel.V(0, 0, 0):    {Type: "minecraft:stone"},
		voxel.V(-20, 70, 5): {Type: "minecraft:oak_log", Data: 2},
		voxel.V(3, -10, 40): chest,
	}
	for p, b := range blocks {
		if err := w.SetBlock(p, b); err != nil {
			t.Fatal(err)
		}
	}

	snap := w.Export(9, 1234)
	if snap.Header.Dimension != "overworld" || snap.Header.Version != snapshot.Version || len(snap.Chunks) != 3 {
		t.Fatalf("header=%+v chunks=%d", snap.Header, len(snap.Chunks))
	}
	got, err := Import(snap)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if got.DimensionID() != "overworld" || got.limits != w.limits {
		t.Fatalf("dimension=%s limits=%+v", got.DimensionID(), got.limits)
	}
	for p, want := range blocks {
		b, err := got.BlockAt(p)
		if err != nil {
			t.Fatal(err)
		}
		if !b.Equal(want) {
			t.Fatalf("%s: got %s want %s", p, b, want)
		}
	}
	if b, _ := got.BlockAt(voxel.V(3, -10, 40)); b.Aux["items"] != "none" {
		t.Fatalf("aux lost: %+v", b.Aux)
	}

	// New blocks after import must not collide with imported palette ids.
	dirt := voxel.Block{Type: "minecraft:dirt"}
	if err := got.SetBlock(voxel.V(1, 0, 0), dirt); err != nil {
		t.Fatal(err)
	}
	if b, _ := got.BlockAt(voxel.V(0, 0, 0)); b.Type != "minecraft:stone" {
		t.Fatalf("stone became %s", b)
	}
}

func TestImportRejectsBadChunks(t *testing.T) {
	air := snapshot.BlockV1{Type: voxel.AirType}
	cases := []snapshot.WorldV1{
		{Header: snapshot.Header{Dimension: "x"}},
		{Header: snapshot.Header{Dimension: "x"}, Palette: []snapshot.BlockV1{air}, Chunks: []snapshot.ChunkV1{{Blocks: []uint16{0}}}},
		{Header: snapshot.Header{Dimension: "x"}, Palette: []snapshot.BlockV1{air}, Chunks: []snapshot.ChunkV1{{Blocks: make([]uint16, ChunkSize*ChunkSize*ChunkSize-1)}}},
	}
	full := make([]uint16, ChunkSize*ChunkSize*ChunkSize)
	full[0] = 7
	cases = append(cases, snapshot.WorldV1{Header: snapshot.Header{Dimension: "x"}, Palette: []snapshot.BlockV1{air}, Chunks: []snapshot.ChunkV1{{Blocks: full}}})
	for i, c := range cases {
		if _, err := Import(c); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}
