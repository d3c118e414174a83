package session

import "testing"

func TestRegistryLifecycle(t *testing.T) {
	r := NewRegistry(2, 3)
	s := r.Ensure("a1", "Alex")
	if s.Clipboard.Capacity() != 2 || s.History.Depth() != 3 {
		t.Fatalf("capacities clipboard=%d undo=%d", s.Clipboard.Capacity(), s.History.Depth())
	}
	if again := r.Ensure("a1", ""); again != s || again.Name != "Alex" {
		t.Fatalf("Ensure must return the existing session")
	}
	r.Ensure("z9", "")
	r.Ensure("b2", "Bo")
	if got := r.Actors(); len(got) != 3 || got[0] != "a1" || got[2] != "z9" {
		t.Fatalf("actors=%v", got)
	}
	if s, _ := r.Get("z9"); s.Name != "z9" {
		t.Fatalf("default name=%q", s.Name)
	}

	for _, id := range r.Actors() {
		if id != "b2" {
			r.Evict(id)
		}
	}
	if r.Len() != 1 {
		t.Fatalf("len=%d", r.Len())
	}
	if _, ok := r.Get("a1"); ok {
		t.Fatal("a1 should be evicted")
	}
	if r.Evict("a1") {
		t.Fatal("second evict should report false")
	}
}
