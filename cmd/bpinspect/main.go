// Command bpinspect decodes .bp files and checks that their metadata agrees
// with the block payload.
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/fatih/color"

	"onistone.build/internal/persistence/blueprint"
	"onistone.build/internal/sim/voxel"
)

func main() {
	palette := flag.Bool("palette", false, "print a block histogram per file")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: bpinspect [-palette] file.bp...")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	failed := 0
	for _, path := range flag.Args() {
		if err := inspect(path, *palette); err != nil {
			color.Red("%s: %v", path, err)
			failed++
		}
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func inspect(path string, showPalette bool) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	doc, err := blueprint.Parse(raw)
	if err != nil {
		return err
	}
	entry, meta, err := blueprint.Decode(doc)
	if err != nil {
		return err
	}

	w, h, l := entry.Buffer.Dims()
	color.Green("%s", path)
	fmt.Printf("  name=%q author=%q created=%s\n", meta.Name, meta.Author, meta.CreatedAt)
	fmt.Printf("  size=%dx%dx%d origin=%v include_air=%v\n", w, h, l, doc.Origin, entry.IncludeAir)
	fmt.Printf("  block_entities=%d entities=%d\n", len(entry.BlockEntities), len(entry.Entities))

	if n := entry.NonAirCount(); n != meta.BlockCount {
		color.Yellow("  blockCount mismatch: metadata=%d payload=%d", meta.BlockCount, n)
	} else {
		fmt.Printf("  blocks=%d\n", n)
	}
	if meta.Dimensions != [3]int{w, h, l} {
		color.Yellow("  dimensions mismatch: metadata=%v payload=%v", meta.Dimensions, [3]int{w, h, l})
	}

	if showPalette {
		for _, c := range histogram(entry.Buffer) {
			fmt.Printf("  %8d  %s\n", c.n, c.key)
		}
	}
	return nil
}

type count struct {
	key string
	n   int
}

// histogram counts cells per block state, most common first.
func histogram(buf *voxel.Buffer) []count {
	m := map[string]int{}
	buf.Each(func(_, _, _ int, b voxel.Block) { m[b.String()]++ })
	out := make([]count, 0, len(m))
	for k, n := range m {
		out = append(out, count{k, n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].n != out[j].n {
			return out[i].n > out[j].n
		}
		return out[i].key < out[j].key
	})
	return out
}
