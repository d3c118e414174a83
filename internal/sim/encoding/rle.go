package encoding

import "fmt"

// Run is one maximal repetition of a palette index.
type Run struct {
	Index  int
	Length uint64
}

// EncodeRuns collapses consecutive equal indices. Order is preserved and
// nothing is sorted.
func EncodeRuns(ids []int) []Run {
	var out []Run
	i := 0
	for i < len(ids) {
		b := ids[i]
		run := 1
		for j := i + 1; j < len(ids) && ids[j] == b; j++ {
			run++
		}
		out = append(out, Run{Index: b, Length: uint64(run)})
		i += run
	}
	return out
}

// ExpandRuns is the inverse of EncodeRuns. paletteLen bounds the indices and
// limit (if > 0) bounds the total expanded length.
func ExpandRuns(runs []Run, paletteLen int, limit uint64) ([]int, error) {
	var total uint64
	for i, r := range runs {
		if r.Index < 0 || r.Index >= paletteLen {
			return nil, fmt.Errorf("%w: run %d index %d outside palette of %d", ErrCorruptData, i, r.Index, paletteLen)
		}
		if r.Length < 1 {
			return nil, fmt.Errorf("%w: run %d has length %d", ErrCorruptData, i, r.Length)
		}
		total += r.Length
		if total < r.Length || (limit > 0 && total > limit) {
			return nil, fmt.Errorf("%w: runs expand past %d cells", ErrCorruptData, limit)
		}
	}
	out := make([]int, 0, total)
	for _, r := range runs {
		for k := uint64(0); k < r.Length; k++ {
			out = append(out, r.Index)
		}
	}
	return out, nil
}
