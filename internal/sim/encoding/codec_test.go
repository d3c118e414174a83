package encoding

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/klauspost/compress/zlib"

	"onistone.build/internal/sim/voxel"
)

var (
	stone = voxel.Block{Type: "minecraft:stone"}
	dirt  = voxel.Block{Type: "minecraft:dirt"}
)

func assertSameBlocks(t *testing.T, got, want []voxel.Block) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("len mismatch: got %d want %d", len(got), len(want))
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Fatalf("mismatch at %d: got %v want %v", i, got[i], want[i])
		}
	}
}

func TestCodec_RoundTrip(t *testing.T) {
	highCard := make([]voxel.Block, 0, 300)
	for i := 0; i < 300; i++ {
		highCard = append(highCard, voxel.Block{Type: fmt.Sprintf("test:block_%d", i%97), Data: i % 4})
	}
	air := make([]voxel.Block, 250_000)
	for i := range air {
		air[i] = voxel.Air
	}
	air[123_456] = stone

	cases := map[string][]voxel.Block{
		"single":           {stone},
		"single run":       {dirt, dirt, dirt, dirt},
		"alternating":      {stone, dirt, stone, dirt, stone},
		"high cardinality": highCard,
		"long air run":     air,
	}
	for name, in := range cases {
		enc, err := Compress(in)
		if err != nil {
			t.Fatalf("%s: Compress: %v", name, err)
		}
		out, err := Decompress(enc)
		if err != nil {
			t.Fatalf("%s: Decompress: %v", name, err)
		}
		assertSameBlocks(t, out, in)
	}
}

func TestCodec_EmptyShortCircuits(t *testing.T) {
	enc, err := Compress(nil)
	if err != nil || len(enc) != 0 {
		t.Fatalf("Compress(nil)=%v,%v want empty", enc, err)
	}
	out, err := Decompress(enc)
	if err != nil || len(out) != 0 {
		t.Fatalf("Decompress(empty)=%v,%v want empty", out, err)
	}
}

func TestCodec_PaletteAndRunsForTwoByTwo(t *testing.T) {
	a := voxel.Block{Type: "test:a"}
	b := voxel.Block{Type: "test:b"}
	cells := []voxel.Block{a, a, b, b}

	pal, ids := BuildPalette(cells)
	if pal.Len() != 2 || !pal.Blocks()[0].Equal(a) || !pal.Blocks()[1].Equal(b) {
		t.Fatalf("palette=%v", pal.Blocks())
	}
	runs := EncodeRuns(ids)
	want := []Run{{Index: 0, Length: 2}, {Index: 1, Length: 2}}
	if len(runs) != len(want) || runs[0] != want[0] || runs[1] != want[1] {
		t.Fatalf("runs=%+v want %+v", runs, want)
	}

	enc, err := Compress(cells)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	out, err := Decompress(enc)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	assertSameBlocks(t, out, cells)
}

func TestCodec_AuxDoesNotSplitPalette(t *testing.T) {
	withAux := voxel.Block{Type: "minecraft:chest", Aux: map[string]any{"CustomName": "loot"}}
	plain := voxel.Block{Type: "minecraft:chest"}
	pal, _ := BuildPalette([]voxel.Block{withAux, plain})
	if pal.Len() != 1 {
		t.Fatalf("palette len=%d want 1", pal.Len())
	}
	enc, _ := Compress([]voxel.Block{withAux, plain})
	out, err := Decompress(enc)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if out[1].Aux["CustomName"] != "loot" {
		t.Fatalf("first-seen aux should be carried by the palette entry, got %v", out[1].Aux)
	}
}

func zlibJSON(t *testing.T, v any) []byte {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	_, _ = zw.Write(raw)
	_ = zw.Close()
	return buf.Bytes()
}

func TestCodec_CorruptInputs(t *testing.T) {
	cases := map[string][]byte{
		"not zlib":      []byte("definitely not zlib"),
		"not json":      zlibJSON(t, "just a string"),
		"missing rle":   zlibJSON(t, map[string]any{"palette": []any{map[string]any{"type": "a"}}}),
		"missing pal":   zlibJSON(t, map[string]any{"rle": [][2]int{{0, 1}}}),
		"index range":   zlibJSON(t, map[string]any{"palette": []any{map[string]any{"type": "a"}}, "rle": [][2]int{{1, 1}}}),
		"zero run":      zlibJSON(t, map[string]any{"palette": []any{map[string]any{"type": "a"}}, "rle": [][2]int{{0, 0}}}),
		"negative run":  zlibJSON(t, map[string]any{"palette": []any{map[string]any{"type": "a"}}, "rle": [][2]int{{0, -3}}}),
		"truncated zip": zlibJSON(t, map[string]any{"palette": []any{}, "rle": []any{}})[:6],
	}
	for name, in := range cases {
		if _, err := Decompress(in); !errors.Is(err, ErrCorruptData) {
			t.Fatalf("%s: got %v want ErrCorruptData", name, err)
		}
	}
}

func TestCodec_ReadsArrayRunPayload(t *testing.T) {
	// Payloads from older writers store runs as JSON arrays.
	enc := zlibJSON(t, map[string]any{
		"palette": []any{
			map[string]any{"type": "minecraft:air", "data": 0},
			map[string]any{"type": "minecraft:wool", "data": 14},
		},
		"rle": [][2]int{{0, 3}, {1, 1}},
	})
	out, err := Decompress(enc)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	want := []voxel.Block{voxel.Air, voxel.Air, voxel.Air, {Type: "minecraft:wool", Data: 14}}
	assertSameBlocks(t, out, want)
}

func TestCodec_LimitRejectsRunsPastCap(t *testing.T) {
	enc := zlibJSON(t, map[string]any{
		"palette": []any{map[string]any{"type": "minecraft:stone"}},
		"rle":     [][2]int{{0, 1 << 20}},
	})
	if _, err := DecompressLimit(enc, 1000); !errors.Is(err, ErrCorruptData) {
		t.Fatalf("got %v want ErrCorruptData", err)
	}
	out, err := DecompressLimit(enc, 1<<20)
	if err != nil || len(out) != 1<<20 {
		t.Fatalf("at cap: len=%d err=%v", len(out), err)
	}
}

func TestCodec_MissingTypeIsAir(t *testing.T) {
	enc := zlibJSON(t, map[string]any{
		"palette": []any{map[string]any{"data": 0}, map[string]any{"type": "minecraft:stone"}},
		"rle":     [][2]int{{0, 2}, {1, 1}},
	})
	out, err := Decompress(enc)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	for i := 0; i < 2; i++ {
		if out[i].Type != voxel.AirType || !out[i].IsAir() {
			t.Fatalf("cell %d = %+v, want air", i, out[i])
		}
	}
	if out[2].Type != "minecraft:stone" {
		t.Fatalf("cell 2 = %+v", out[2])
	}
}
