// Package httpapi serves the read-only admin API: health, operation history,
// active operations, zones and blueprint saves.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"onistone.build/internal/sim/batch"
	"onistone.build/internal/sim/engine"
	"onistone.build/internal/sim/zones"
)

const engineTimeout = 2 * time.Second

type OperationIndex interface {
	RecentOperations(ctx context.Context, actor string, limit int) ([]engine.OperationRecord, error)
	BlueprintSaves(ctx context.Context, actor string) ([]engine.BlueprintRecord, error)
}

// StatsSource reports connection counters for /v1/stats.
type StatsSource interface {
	Connected() int
	Dropped() uint64
}

type Server struct {
	eng   *engine.Engine
	index OperationIndex
	conns StatsSource
	log   logrus.FieldLogger
}

func New(eng *engine.Engine, index OperationIndex, conns StatsSource, log logrus.FieldLogger) *Server {
	return &Server{eng: eng, index: index, conns: conns, log: log.WithField("component", "httpapi")}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/stats", s.handleStats)
		r.Get("/operations", s.handleOperations)
		r.Get("/operations/active", s.handleActive)
		r.Get("/zones", s.handleZones)
		r.Get("/blueprints/{actor}", s.handleBlueprints)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"ok": true, "tick": s.eng.CurrentTick()})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	out := map[string]any{"tick": s.eng.CurrentTick()}
	if s.conns != nil {
		out["connected"] = s.conns.Connected()
		out["notify_dropped"] = s.conns.Dropped()
	}
	var active int
	if err := s.onEngine(r.Context(), func(e *engine.Engine) { active = len(e.ActiveOperations()) }); err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	out["active_operations"] = active
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleOperations(w http.ResponseWriter, r *http.Request) {
	if s.index == nil {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "operation index disabled"})
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad limit"})
			return
		}
		limit = n
	}
	ops, err := s.index.RecentOperations(r.Context(), r.URL.Query().Get("actor"), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if ops == nil {
		ops = []engine.OperationRecord{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"operations": ops})
}

func (s *Server) handleActive(w http.ResponseWriter, r *http.Request) {
	var views []batch.View
	if err := s.onEngine(r.Context(), func(e *engine.Engine) { views = e.ActiveOperations() }); err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	if views == nil {
		views = []batch.View{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"operations": views})
}

func (s *Server) handleZones(w http.ResponseWriter, r *http.Request) {
	var list []zones.Zone
	if err := s.onEngine(r.Context(), func(e *engine.Engine) { list = e.Zones() }); err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	if list == nil {
		list = []zones.Zone{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"zones": list})
}

func (s *Server) handleBlueprints(w http.ResponseWriter, r *http.Request) {
	if s.index == nil {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "operation index disabled"})
		return
	}
	saves, err := s.index.BlueprintSaves(r.Context(), chi.URLParam(r, "actor"))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if saves == nil {
		saves = []engine.BlueprintRecord{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"blueprints": saves})
}

// onEngine runs fn on the engine goroutine.
func (s *Server) onEngine(ctx context.Context, fn func(*engine.Engine)) error {
	ctx, cancel := context.WithTimeout(ctx, engineTimeout)
	defer cancel()
	return s.eng.Do(ctx, fn)
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.log.WithError(err).Warn("request failed")
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.WithError(err).Debug("encode response")
	}
}
