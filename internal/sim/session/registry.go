package session

import (
	"sort"
	"time"

	"onistone.build/internal/sim/clipboard"
	"onistone.build/internal/sim/undo"
	"onistone.build/internal/sim/voxel"
)

// Session is everything the engine tracks for one connected actor.
type Session struct {
	ActorID   string
	SessionID string
	Name      string
	Dimension string
	Bypass    bool
	JoinedAt  time.Time

	Selection voxel.Selection
	Clipboard *clipboard.Ring
	History   *undo.History
}

type Registry struct {
	clipboardLimit int
	undoDepth      int
	sessions       map[string]*Session
	now            func() time.Time
}

func NewRegistry(clipboardLimit, undoDepth int) *Registry {
	return &Registry{
		clipboardLimit: clipboardLimit,
		undoDepth:      undoDepth,
		sessions:       map[string]*Session{},
		now:            time.Now,
	}
}

// Ensure returns the actor's session, creating it on first use. A non-empty
// name replaces the stored one.
func (r *Registry) Ensure(actorID, name string) *Session {
	s, ok := r.sessions[actorID]
	if !ok {
		s = &Session{
			ActorID:   actorID,
			Name:      name,
			JoinedAt:  r.now(),
			Clipboard: clipboard.NewRing(r.clipboardLimit),
			History:   undo.NewHistory(r.undoDepth),
		}
		if s.Name == "" {
			s.Name = actorID
		}
		r.sessions[actorID] = s
		return s
	}
	if name != "" {
		s.Name = name
	}
	return s
}

func (r *Registry) Get(actorID string) (*Session, bool) {
	s, ok := r.sessions[actorID]
	return s, ok
}

// Evict drops the actor's selection, clipboard and history.
func (r *Registry) Evict(actorID string) bool {
	if _, ok := r.sessions[actorID]; !ok {
		return false
	}
	delete(r.sessions, actorID)
	return true
}

func (r *Registry) Len() int { return len(r.sessions) }

// Actors returns a sorted snapshot of the actor ids, safe to range over while
// sessions are evicted.
func (r *Registry) Actors() []string {
	out := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
