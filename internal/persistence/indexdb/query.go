package indexdb

import (
	"context"
	"time"

	"onistone.build/internal/sim/engine"
)

// RecentOperations returns the newest operations, optionally for one actor.
func (s *SQLiteIndex) RecentOperations(ctx context.Context, actor string, limit int) ([]engine.OperationRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	q := `SELECT id,actor,kind,dimension,total,placed,failed,skipped,sync,started_tick,ended_tick,started_at,ended_at
		FROM operations`
	args := []any{}
	if actor != "" {
		q += ` WHERE actor = ?`
		args = append(args, actor)
	}
	q += ` ORDER BY ended_at DESC, id LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []engine.OperationRecord
	for rows.Next() {
		var (
			r                  engine.OperationRecord
			sync               int
			startTick, endTick int64
			startAt, endAt     string
		)
		if err := rows.Scan(&r.ID, &r.Actor, &r.Kind, &r.Dimension, &r.Total, &r.Placed, &r.Failed, &r.Skipped,
			&sync, &startTick, &endTick, &startAt, &endAt); err != nil {
			return nil, err
		}
		r.Sync = sync != 0
		r.StartedTick = uint64(startTick)
		r.EndedTick = uint64(endTick)
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, startAt)
		r.EndedAt, _ = time.Parse(time.RFC3339Nano, endAt)
		out = append(out, r)
	}
	return out, rows.Err()
}

// BlueprintSaves lists an actor's saves, newest first.
func (s *SQLiteIndex) BlueprintSaves(ctx context.Context, actor string) ([]engine.BlueprintRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT actor,name,shared,path,width,height,length,block_count,saved_at
		FROM blueprint_saves WHERE actor = ? ORDER BY seq DESC`, actor)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []engine.BlueprintRecord
	for rows.Next() {
		var (
			r       engine.BlueprintRecord
			shared  int
			savedAt string
		)
		if err := rows.Scan(&r.Actor, &r.Name, &shared, &r.Path,
			&r.Dimensions[0], &r.Dimensions[1], &r.Dimensions[2], &r.BlockCount, &savedAt); err != nil {
			return nil, err
		}
		r.Shared = shared != 0
		r.SavedAt, _ = time.Parse(time.RFC3339Nano, savedAt)
		out = append(out, r)
	}
	return out, rows.Err()
}
