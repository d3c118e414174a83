package main

import (
	"context"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"onistone.build/internal/config"
	"onistone.build/internal/persistence/snapshot"
	"onistone.build/internal/sim/engine"
	"onistone.build/internal/sim/world/store"
)

const keepSnapshots = 3

func snapshotDir(cfg config.Config, dim string) string {
	return filepath.Join(cfg.Paths.DataDir, "worlds", dim, "snapshots")
}

// loadWorlds resumes each configured dimension from its newest snapshot,
// falling back to an empty world.
func loadWorlds(cfg config.Config, log logrus.FieldLogger) (store.Worlds, error) {
	limits := store.Limits{BoundaryR: cfg.World.BoundaryR, MinY: cfg.World.MinY, MaxY: cfg.World.MaxY}
	worlds := store.Worlds{}
	for _, dim := range cfg.World.Dimensions {
		path, err := snapshot.Latest(snapshotDir(cfg, dim))
		if err != nil {
			return nil, err
		}
		if path == "" {
			worlds[dim] = store.New(dim, limits)
			continue
		}
		snap, err := snapshot.Read(path)
		if err != nil {
			return nil, err
		}
		w, err := store.Import(snap)
		if err != nil {
			return nil, err
		}
		worlds[dim] = w
		log.WithFields(logrus.Fields{"dimension": dim, "snapshot": filepath.Base(path), "chunks": len(snap.Chunks)}).Info("world resumed")
	}
	return worlds, nil
}

// saveWorlds exports every dimension. Call it on the engine goroutine or
// after Run has returned.
func saveWorlds(cfg config.Config, worlds store.Worlds, tick uint64, log logrus.FieldLogger) {
	snaps := make([]snapshot.WorldV1, 0, len(worlds))
	now := time.Now().UnixMilli()
	for _, w := range worlds {
		snaps = append(snaps, w.Export(tick, now))
	}
	writeSnapshots(cfg, snaps, log)
}

func writeSnapshots(cfg config.Config, snaps []snapshot.WorldV1, log logrus.FieldLogger) {
	for _, snap := range snaps {
		dir := snapshotDir(cfg, snap.Header.Dimension)
		if err := snapshot.Write(snapshot.PathFor(dir, snap.Header.SavedAtMS), snap); err != nil {
			log.WithError(err).WithField("dimension", snap.Header.Dimension).Error("snapshot write")
			continue
		}
		if err := snapshot.Prune(dir, keepSnapshots); err != nil {
			log.WithError(err).Warn("snapshot prune")
		}
	}
}

// snapshotLoop exports on the engine goroutine and writes the files off it.
func snapshotLoop(ctx context.Context, cfg config.Config, eng *engine.Engine, worlds store.Worlds, every time.Duration, log logrus.FieldLogger) {
	if every <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		var snaps []snapshot.WorldV1
		err := eng.Do(ctx, func(e *engine.Engine) {
			now := time.Now().UnixMilli()
			for _, w := range worlds {
				snaps = append(snaps, w.Export(e.CurrentTick(), now))
			}
		})
		if err != nil {
			continue
		}
		writeSnapshots(cfg, snaps, log)
	}
}
