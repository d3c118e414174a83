// Package snapshot persists the standalone server's block storage as
// zstd-compressed files: one JSON header line followed by a JSON body.
package snapshot

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
)

const (
	Version = 1
	Ext     = ".snap.zst"
)

type Header struct {
	Version   int    `json:"version"`
	Dimension string `json:"dimension"`
	Tick      uint64 `json:"tick"`
	SavedAtMS int64  `json:"saved_at_ms"`
}

type WorldV1 struct {
	Header  Header    `json:"header"`
	Limits  LimitsV1  `json:"limits"`
	Palette []BlockV1 `json:"palette"`
	Chunks  []ChunkV1 `json:"chunks"`
	Aux     []AuxV1   `json:"aux,omitempty"`
}

type LimitsV1 struct {
	BoundaryR int `json:"boundary_r"`
	MinY      int `json:"min_y"`
	MaxY      int `json:"max_y"`
}

type BlockV1 struct {
	Type string `json:"type"`
	Data int    `json:"data,omitempty"`
}

// ChunkV1 holds palette ids for a 16^3 section.
type ChunkV1 struct {
	CX     int      `json:"cx"`
	CY     int      `json:"cy"`
	CZ     int      `json:"cz"`
	Blocks []uint16 `json:"blocks"`
}

// AuxV1 is the opaque block-entity payload stored at a position.
type AuxV1 struct {
	Pos  [3]int         `json:"pos"`
	Data map[string]any `json:"data"`
}

// Write stores snap at path through a temp file, so a crash mid-write never
// leaves a truncated snapshot behind.
func Write(path string, snap WorldV1) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		f.Close()
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(append(hb, '\n')); err != nil {
		enc.Close()
		f.Close()
		return err
	}
	if err := json.NewEncoder(bw).Encode(&snap); err != nil {
		enc.Close()
		f.Close()
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		f.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func Read(path string) (WorldV1, error) {
	var snap WorldV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)
	// The body repeats the header.
	if _, err := br.ReadBytes('\n'); err != nil {
		return snap, fmt.Errorf("read snapshot header: %w", err)
	}
	if err := json.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Header.Version != Version {
		return snap, fmt.Errorf("snapshot %s: unsupported version %d", filepath.Base(path), snap.Header.Version)
	}
	return snap, nil
}

// PathFor names a snapshot file after its save time.
func PathFor(dir string, savedAtMS int64) string {
	return filepath.Join(dir, strconv.FormatInt(savedAtMS, 10)+Ext)
}

// List returns the snapshot files in dir, newest first.
func List(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	type item struct {
		path string
		ms   int64
	}
	var items []item
	for _, e := range ents {
		if e.IsDir() || !strings.HasSuffix(e.Name(), Ext) {
			continue
		}
		ms, err := strconv.ParseInt(strings.TrimSuffix(e.Name(), Ext), 10, 64)
		if err != nil {
			continue
		}
		items = append(items, item{filepath.Join(dir, e.Name()), ms})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ms > items[j].ms })
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.path
	}
	return out, nil
}

func Latest(dir string) (string, error) {
	list, err := List(dir)
	if err != nil || len(list) == 0 {
		return "", err
	}
	return list[0], nil
}

// Prune deletes all but the newest keep snapshots in dir.
func Prune(dir string, keep int) error {
	list, err := List(dir)
	if err != nil {
		return err
	}
	for i := keep; i < len(list); i++ {
		if err := os.Remove(list[i]); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
