// Package indexdb is an optional sqlite read model over the worker's run
// history. It is written from a single background goroutine and never feeds
// back into environment semantics.
package indexdb

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"meshgym.ai/internal/sim/env"
)

type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

type reqKind int

const (
	reqEpisode reqKind = iota + 1
	reqStep
	reqSave
)

type req struct {
	kind reqKind

	episode env.EpisodeStart
	step    env.StepLogEntry
	save    env.SaveLogEntry
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
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
		ch: make(chan req, 4096),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads.
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
		`CREATE TABLE IF NOT EXISTS episodes (
			episode INTEGER PRIMARY KEY,
			started_at TEXT NOT NULL,
			asset TEXT,
			start_objs INTEGER NOT NULL,
			start_tris INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS steps (
			episode INTEGER NOT NULL,
			step INTEGER NOT NULL,
			action INTEGER NOT NULL,
			reward REAL NOT NULL,
			done INTEGER NOT NULL,
			n_objs INTEGER NOT NULL,
			n_tris INTEGER NOT NULL,
			failed_ops INTEGER NOT NULL,
			outcomes_json TEXT,
			at TEXT NOT NULL,
			PRIMARY KEY (episode, step)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_steps_action ON steps(action);`,
		`CREATE TABLE IF NOT EXISTS saves (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			path TEXT NOT NULL,
			ok INTEGER NOT NULL,
			error TEXT,
			at TEXT NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

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

// env.DiagSink. Enqueues never block: if the indexer falls behind, entries
// are dropped and the JSONL logs remain the source of truth.

func (s *SQLiteIndex) WriteEpisodeStart(v env.EpisodeStart) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqEpisode, episode: v}:
	default:
	}
}

func (s *SQLiteIndex) WriteStep(v env.StepLogEntry) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqStep, step: v}:
	default:
	}
}

func (s *SQLiteIndex) WriteSave(v env.SaveLogEntry) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqSave, save: v}:
	default:
	}
}

func (s *SQLiteIndex) loop() {
	for r := range s.ch {
		switch r.kind {
		case reqEpisode:
			_, _ = s.db.Exec(
				`INSERT OR REPLACE INTO episodes(episode, started_at, asset, start_objs, start_tris) VALUES(?,?,?,?,?)`,
				r.episode.Episode,
				r.episode.At.Format(time.RFC3339Nano),
				r.episode.Asset,
				r.episode.NObjs,
				r.episode.NTris,
			)
		case reqStep:
			var failed int
			for _, oc := range r.step.Outcomes {
				if !oc.OK {
					failed++
				}
			}
			var outcomes []byte
			if failed > 0 {
				outcomes, _ = json.Marshal(r.step.Outcomes)
			}
			_, _ = s.db.Exec(
				`INSERT OR REPLACE INTO steps(episode, step, action, reward, done, n_objs, n_tris, failed_ops, outcomes_json, at)
				 VALUES(?,?,?,?,?,?,?,?,?,?)`,
				r.step.Episode,
				r.step.Step,
				r.step.Action,
				r.step.Reward,
				boolInt(r.step.Done),
				r.step.NObjs,
				r.step.NTris,
				failed,
				nullableString(outcomes),
				r.step.At.Format(time.RFC3339Nano),
			)
		case reqSave:
			_, _ = s.db.Exec(
				`INSERT INTO saves(path, ok, error, at) VALUES(?,?,?,?)`,
				r.save.Path,
				boolInt(r.save.OK),
				r.save.Err,
				r.save.At.Format(time.RFC3339Nano),
			)
		}
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableString(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
