// Package indexdb keeps a queryable SQLite index of runs, their command
// journal, tick summaries and snapshots. The JSONL journal stays the source
// of truth; the index may drop rows when its writer falls behind.
package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	plog "factorycraft.ai/internal/persistence/log"
	"factorycraft.ai/internal/persistence/snapshot"
	"factorycraft.ai/internal/sim/factory"
)

type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	// mu orders sends on ch against close(ch); writers hold it shared.
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
}

type reqKind int

const (
	reqCommand reqKind = iota + 1
	reqTick
	reqSnapshot
)

type req struct {
	kind  reqKind
	runID string

	command  plog.JournalEntry
	tick     plog.TickEntry
	snapshot snapshotRow
}

type snapshotRow struct {
	Tick       uint64
	Path       string
	Digest     string
	Credits    int
	Machines   int
	Generators int
}

// Run is one row of the runs table.
type Run struct {
	ID          string
	Seed        uint32
	RulesDigest string
	StartedAt   time.Time
	LastTick    uint64
	Commands    int
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
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL suits the append-only workload; NORMAL is enough for a secondary index.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
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
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			seed INTEGER NOT NULL,
			rules_digest TEXT NOT NULL,
			started_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS commands (
			run_id TEXT NOT NULL REFERENCES runs(run_id),
			seq INTEGER NOT NULL,
			tick INTEGER NOT NULL,
			type TEXT NOT NULL,
			ok INTEGER NOT NULL,
			code TEXT,
			digest TEXT NOT NULL,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (run_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_commands_type ON commands(run_id, type);`,
		`CREATE TABLE IF NOT EXISTS ticks (
			run_id TEXT NOT NULL REFERENCES runs(run_id),
			tick INTEGER NOT NULL,
			digest TEXT NOT NULL,
			credits INTEGER NOT NULL,
			completions INTEGER NOT NULL,
			discovered TEXT,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (run_id, tick)
		);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			run_id TEXT NOT NULL REFERENCES runs(run_id),
			tick INTEGER NOT NULL,
			path TEXT NOT NULL,
			digest TEXT NOT NULL,
			credits INTEGER NOT NULL,
			machines INTEGER NOT NULL,
			generators INTEGER NOT NULL,
			PRIMARY KEY (run_id, tick)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Close drains the writer queue and closes the database.
func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// Dropped counts rows discarded because the queue was full.
func (s *SQLiteIndex) Dropped() uint64 { return s.dropped.Load() }

func (s *SQLiteIndex) enqueue(r req) {
	if s == nil {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- r:
	default:
		s.dropped.Add(1)
	}
}

// StartRun registers a new run synchronously and returns its id.
func (s *SQLiteIndex) StartRun(ctx context.Context, seed uint32, rulesDigest string) (string, error) {
	id := uuid.NewString()
	if err := s.RegisterRun(ctx, id, seed, rulesDigest); err != nil {
		return "", err
	}
	return id, nil
}

// RegisterRun records a run created elsewhere, e.g. when resuming from a snapshot.
func (s *SQLiteIndex) RegisterRun(ctx context.Context, runID string, seed uint32, rulesDigest string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO runs(run_id,seed,rules_digest,started_at) VALUES(?,?,?,?)`,
		runID, int64(seed), rulesDigest, time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

func (s *SQLiteIndex) WriteCommand(runID string, e plog.JournalEntry) {
	s.enqueue(req{kind: reqCommand, runID: runID, command: e})
}

func (s *SQLiteIndex) WriteTick(e plog.TickEntry) {
	s.enqueue(req{kind: reqTick, runID: e.RunID, tick: e})
}

func (s *SQLiteIndex) RecordSnapshot(path string, h snapshot.Header, st factory.State) {
	s.enqueue(req{kind: reqSnapshot, runID: h.RunID, snapshot: snapshotRow{
		Tick:       h.Tick,
		Path:       path,
		Digest:     h.StateDigest,
		Credits:    st.Credits,
		Machines:   len(st.Machines),
		Generators: len(st.Generators),
	}})
}

// UpsertCatalogs stores the rule tables the run was started with, so a
// database can be read without the config directory at hand.
func (s *SQLiteIndex) UpsertCatalogs(ctx context.Context, rules *factory.Rules) error {
	if s == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	cats := rules.Catalogs

	type kv struct {
		name   string
		digest string
		v      any
	}
	rows := []kv{
		{"materials", cats.Materials.Digest, cats.Materials.ByID},
		{"recipes", cats.Recipes.Digest, cats.Recipes.Order},
		{"generators", cats.Generators.Digest, cats.Generators.ByType},
	}
	tb, _ := json.Marshal(rules.Tuning)
	sum := sha256.Sum256(tb)
	rows = append(rows, kv{"tuning", hex.EncodeToString(sum[:]), rules.Tuning})

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		b, err := json.Marshal(r.v)
		if err != nil {
			return fmt.Errorf("catalog %s: %w", r.name, err)
		}
		if _, err := stmt.ExecContext(ctx, r.name, r.digest, string(b), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Runs lists every run, newest first.
func (s *SQLiteIndex) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.run_id, r.seed, r.rules_digest, r.started_at,
			COALESCE((SELECT MAX(tick) FROM ticks t WHERE t.run_id = r.run_id), 0),
			(SELECT COUNT(*) FROM commands c WHERE c.run_id = r.run_id)
		FROM runs r ORDER BY r.started_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r       Run
			seed    int64
			started string
			last    int64
		)
		if err := rows.Scan(&r.ID, &seed, &r.RulesDigest, &started, &last, &r.Commands); err != nil {
			return nil, err
		}
		r.Seed = uint32(seed)
		r.LastTick = uint64(last)
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		out = append(out, r)
	}
	return out, rows.Err()
}

// CommandCounts tallies a run's commands by type and outcome.
func (s *SQLiteIndex) CommandCounts(ctx context.Context, runID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT type, ok, COUNT(*) FROM commands WHERE run_id = ? GROUP BY type, ok`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var (
			typ string
			ok  bool
			n   int
		)
		if err := rows.Scan(&typ, &ok, &n); err != nil {
			return nil, err
		}
		key := typ + ":ok"
		if !ok {
			key = typ + ":rejected"
		}
		out[key] = n
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertCommand, _ := s.db.Prepare(`INSERT OR REPLACE INTO commands(run_id,seq,tick,type,ok,code,digest,raw_json) VALUES(?,?,?,?,?,?,?,?)`)
	insertTick, _ := s.db.Prepare(`INSERT OR REPLACE INTO ticks(run_id,tick,digest,credits,completions,discovered,raw_json) VALUES(?,?,?,?,?,?,?)`)
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(run_id,tick,path,digest,credits,machines,generators) VALUES(?,?,?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertCommand, insertTick, insertSnapshot} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 1000
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
	exec := func(stmt *sql.Stmt, args ...any) {
		if stmt == nil || tx == nil {
			return
		}
		if _, err := tx.Stmt(stmt).Exec(args...); err != nil {
			rollback()
			return
		}
		opCount++
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqCommand:
			c := r.command
			raw, _ := json.Marshal(c.Command)
			exec(insertCommand, r.runID, int64(c.Seq), int64(c.Tick), c.Command.Type, c.OK, c.Code, c.Digest, string(raw))
		case reqTick:
			t := r.tick
			raw, _ := json.Marshal(t.Report)
			exec(insertTick, r.runID, int64(t.Report.Tick), t.Digest, t.Credits, t.Report.Completions, t.Report.Discovered, string(raw))
		case reqSnapshot:
			sn := r.snapshot
			exec(insertSnapshot, r.runID, int64(sn.Tick), sn.Path, sn.Digest, sn.Credits, sn.Machines, sn.Generators)
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	commit()
}
