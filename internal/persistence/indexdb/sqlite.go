package indexdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"onistone.build/internal/sim/engine"
)

// SQLiteIndex is a queryable secondary index of the operation journal. Writes
// are queued to one writer goroutine and dropped when the queue is full;
// the JSONL journal remains the source of truth.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropOps       atomic.Uint64
	dropBlueprint atomic.Uint64
}

type reqKind int

const (
	reqOperation reqKind = iota + 1
	reqBlueprint
)

type req struct {
	kind reqKind

	op engine.OperationRecord
	bp engine.BlueprintRecord
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	return openSQLite(path, 65536)
}

func openSQLite(path string, queue int) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, queue),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS operations (
			id TEXT PRIMARY KEY,
			actor TEXT NOT NULL,
			kind TEXT NOT NULL,
			dimension TEXT NOT NULL,
			total INTEGER NOT NULL,
			placed INTEGER NOT NULL,
			failed INTEGER NOT NULL,
			skipped INTEGER NOT NULL,
			sync INTEGER NOT NULL,
			started_tick INTEGER NOT NULL,
			ended_tick INTEGER NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_operations_actor_ended ON operations(actor, ended_at);`,
		`CREATE TABLE IF NOT EXISTS blueprint_saves (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			actor TEXT NOT NULL,
			name TEXT NOT NULL,
			shared INTEGER NOT NULL,
			path TEXT NOT NULL,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			length INTEGER NOT NULL,
			block_count INTEGER NOT NULL,
			saved_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_blueprint_saves_actor ON blueprint_saves(actor, saved_at);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Close drains the queue, commits, and closes the database.
func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) WriteOperation(r engine.OperationRecord) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqOperation, op: r}:
	default:
		s.dropOps.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) RecordBlueprint(r engine.BlueprintRecord) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqBlueprint, bp: r}:
	default:
		s.dropBlueprint.Add(1)
	}
	return nil
}

type Stats struct {
	QueueDepth         int    `json:"queue_depth"`
	QueueCapacity      int    `json:"queue_capacity"`
	DropOperationTotal uint64 `json:"drop_operation_total"`
	DropBlueprintTotal uint64 `json:"drop_blueprint_total"`
}

func (s *SQLiteIndex) Stats() Stats {
	return Stats{
		QueueDepth:         len(s.ch),
		QueueCapacity:      cap(s.ch),
		DropOperationTotal: s.dropOps.Load(),
		DropBlueprintTotal: s.dropBlueprint.Load(),
	}
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertOp, _ := s.db.Prepare(`INSERT OR REPLACE INTO operations(id,actor,kind,dimension,total,placed,failed,skipped,sync,started_tick,ended_tick,started_at,ended_at) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	insertBP, _ := s.db.Prepare(`INSERT INTO blueprint_saves(actor,name,shared,path,width,height,length,block_count,saved_at) VALUES(?,?,?,?,?,?,?,?,?)`)
	defer func() {
		if insertOp != nil {
			_ = insertOp.Close()
		}
		if insertBP != nil {
			_ = insertBP.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 256
		commitMaxWait = time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqOperation:
			o := r.op
			if insertOp == nil {
				break
			}
			if _, err := tx.Stmt(insertOp).Exec(
				o.ID, o.Actor, o.Kind, o.Dimension,
				o.Total, o.Placed, o.Failed, o.Skipped, boolInt(o.Sync),
				int64(o.StartedTick), int64(o.EndedTick),
				o.StartedAt.UTC().Format(time.RFC3339Nano),
				o.EndedAt.UTC().Format(time.RFC3339Nano),
			); err != nil {
				rollback()
				continue
			}
			opCount++

		case reqBlueprint:
			b := r.bp
			if insertBP == nil {
				break
			}
			if _, err := tx.Stmt(insertBP).Exec(
				b.Actor, b.Name, boolInt(b.Shared), b.Path,
				b.Dimensions[0], b.Dimensions[1], b.Dimensions[2],
				b.BlockCount,
				b.SavedAt.UTC().Format(time.RFC3339Nano),
			); err != nil {
				rollback()
				continue
			}
			opCount++
		}
		// Commit when the queue goes idle so readers see fresh rows.
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait || len(s.ch) == 0 {
			commit()
		}
	}

	commit()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
