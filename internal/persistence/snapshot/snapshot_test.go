package snapshot

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteRead(t *testing.T) {
	dir := t.TempDir()
	path := PathFor(dir, 1700000000000)
	in := WorldV1{
		Header:  Header{Version: Version, Dimension: "nether", Tick: 42, SavedAtMS: 1700000000000},
		Limits:  LimitsV1{MinY: 0, MaxY: 127},
		Palette: []BlockV1{{Type: "minecraft:air"}, {Type: "minecraft:netherrack"}},
		Chunks:  []ChunkV1{{CX: -1, CY: 2, CZ: 3, Blocks: []uint16{0, 1, 1}}},
		Aux:     []AuxV1{{Pos: [3]int{1, 2, 3}, Data: map[string]any{"id": "chest"}}},
	}
	if err := Write(path, in); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}
	out, err := Read(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if out.Header != in.Header || out.Limits != in.Limits {
		t.Fatalf("header=%+v limits=%+v", out.Header, out.Limits)
	}
	if len(out.Chunks) != 1 || out.Chunks[0].CX != -1 || out.Chunks[0].Blocks[2] != 1 {
		t.Fatalf("chunks=%+v", out.Chunks)
	}
	if len(out.Aux) != 1 || out.Aux[0].Data["id"] != "chest" {
		t.Fatalf("aux=%+v", out.Aux)
	}
}

func TestReadRejectsUnknownVersion(t *testing.T) {
	path := PathFor(t.TempDir(), 1)
	if err := Write(path, WorldV1{Header: Header{Version: 9}}); err != nil {
		t.Fatal(err)
	}
	if _, err := Read(path); err == nil {
		t.Fatalf("expected version error")
	}
}

func TestListLatestPrune(t *testing.T) {
	dir := t.TempDir()
	for _, ms := range []int64{300, 100, 200} {
		if err := Write(PathFor(dir, ms), WorldV1{Header: Header{Version: Version, SavedAtMS: ms}}); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	latest, err := Latest(dir)
	if err != nil || latest != PathFor(dir, 300) {
		t.Fatalf("latest=%q err=%v", latest, err)
	}
	if err := Prune(dir, 2); err != nil {
		t.Fatal(err)
	}
	list, err := List(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[1] != PathFor(dir, 200) {
		t.Fatalf("after prune: %v", list)
	}

	missing, err := Latest(filepath.Join(dir, "nope"))
	if err != nil || missing != "" {
		t.Fatalf("missing dir: %q %v", missing, err)
	}
}
