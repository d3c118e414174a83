package undo

import (
	"onistone.build/internal/sim/voxel"
)

// History is one actor's bounded undo stack with a redo stack beside it.
type History struct {
	depth int
	undo  []*Entry
	redo  []*Entry
}

func NewHistory(depth int) *History {
	if depth < 1 {
		depth = 1
	}
	return &History{depth: depth}
}

func (h *History) Depth() int    { return h.depth }
func (h *History) Len() int      { return len(h.undo) }
func (h *History) RedoLen() int  { return len(h.redo) }
func (h *History) CanUndo() bool { return len(h.undo) > 0 }
func (h *History) CanRedo() bool { return len(h.redo) > 0 }

// Push records a fresh mutation. The oldest entry is evicted past depth and
// the redo stack is cleared.
func (h *History) Push(e *Entry) {
	h.pushUndo(e)
	h.redo = nil
}

// PushRedone records the inverse of a redo without clearing the redo stack.
func (h *History) PushRedone(e *Entry) { h.pushUndo(e) }

func (h *History) PushRedo(e *Entry) {
	h.redo = pushBounded(h.redo, e, h.depth)
}

func (h *History) pushUndo(e *Entry) {
	h.undo = pushBounded(h.undo, e, h.depth)
}

func pushBounded(stack []*Entry, e *Entry, depth int) []*Entry {
	stack = append(stack, e)
	if over := len(stack) - depth; over > 0 {
		copy(stack, stack[over:])
		for i := len(stack) - over; i < len(stack); i++ {
			stack[i] = nil
		}
		stack = stack[:len(stack)-over]
	}
	return stack
}

func (h *History) PopUndo() *Entry { return pop(&h.undo) }
func (h *History) PopRedo() *Entry { return pop(&h.redo) }

func (h *History) PeekUndo() *Entry {
	if len(h.undo) == 0 {
		return nil
	}
	return h.undo[len(h.undo)-1]
}

func (h *History) PeekRedo() *Entry {
	if len(h.redo) == 0 {
		return nil
	}
	return h.redo[len(h.redo)-1]
}

func pop(stack *[]*Entry) *Entry {
	s := *stack
	if len(s) == 0 {
		return nil
	}
	e := s[len(s)-1]
	s[len(s)-1] = nil
	*stack = s[:len(s)-1]
	return e
}

func (h *History) Clear() {
	h.undo = nil
	h.redo = nil
}

type Result struct {
	Restored int
	Failed   int
	Skipped  int
}

// Undo pops the newest entry and restores it in reverse order. The state it
// overwrites becomes a redo entry. It returns nil when there is nothing to
// undo; callers check CanUndo first.
func (h *History) Undo(w voxel.World) (*Entry, Result) {
	e := h.PopUndo()
	if e == nil {
		return nil, Result{}
	}
	inverse, res := Restore(w, e, "redo: "+e.Description)
	if inverse.Len() > 0 {
		h.PushRedo(inverse)
	}
	return e, res
}

// Redo re-applies the newest undone entry and records a new undo entry
// for it.
func (h *History) Redo(w voxel.World) (*Entry, Result) {
	e := h.PopRedo()
	if e == nil {
		return nil, Result{}
	}
	inverse, res := Restore(w, e, trimRedo(e.Description))
	if inverse.Len() > 0 {
		h.PushRedone(inverse)
	}
	return e, res
}

func trimRedo(desc string) string {
	const p = "redo: "
	if len(desc) >= len(p) && desc[:len(p)] == p {
		return desc[len(p):]
	}
	return desc
}

// Restore writes e's old blocks back newest first. Each position's current
// block is captured into the returned inverse entry only when its write
// succeeds. Changes from another dimension are skipped; per-position
// failures do not stop the rest.
func Restore(w voxel.World, e *Entry, desc string) (*Entry, Result) {
	var res Result
	inverse := NewEntry(desc, e.Dimension)
	for i := len(e.Changes) - 1; i >= 0; i-- {
		c := e.Changes[i]
		if c.Dimension != w.DimensionID() {
			res.Skipped++
			continue
		}
		cur, err := w.BlockAt(c.Pos)
		if err != nil {
			res.Failed++
			continue
		}
		if err := w.SetBlock(c.Pos, c.Old); err != nil {
			res.Failed++
			continue
		}
		inverse.Record(c.Pos, cur)
		res.Restored++
	}
	return inverse, res
}
