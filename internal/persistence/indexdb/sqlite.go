// Package indexdb keeps a queryable sqlite index of sessions and
// their request/response exchanges. It is a secondary index: writes
// are funneled through a buffered channel to one writer goroutine and
// dropped when the indexer falls behind, because the compressed
// transcript log remains the source of truth.
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

	_ "modernc.org/sqlite"

	"cropcraft.ai/internal/protocol"
	"cropcraft.ai/internal/sim/crops"
	"cropcraft.ai/internal/sim/tuning"
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
	reqStart reqKind = iota + 1
	reqExchange
	reqEnd
)

type req struct {
	kind     reqKind
	start    startRow
	exchange exchangeRow
	end      endRow
}

type startRow struct {
	SessionID string
	Remote    string
	StartedAt string
}

type exchangeRow struct {
	SessionID string
	Action    string
	OK        bool
	Code      string
	Error     string
	TS        string
	RawJSON   string
}

type endRow struct {
	SessionID string
	EndedAt   string
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
	// WAL is much faster for append-style workloads.
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
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			remote TEXT NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS exchanges (
			session_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			action TEXT NOT NULL,
			ok INTEGER NOT NULL,
			code TEXT,
			error TEXT,
			ts TEXT NOT NULL,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (session_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_exchanges_action ON exchanges(action, session_id);`,
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

func (s *SQLiteIndex) SessionStarted(sessionID, remote string) {
	if s == nil || s.closed.Load() {
		return
	}
	r := startRow{
		SessionID: sessionID,
		Remote:    remote,
		StartedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	select {
	case s.ch <- req{kind: reqStart, start: r}:
	default:
	}
}

func (s *SQLiteIndex) Exchange(sessionID, action string, request []byte, resp protocol.Response) {
	if s == nil || s.closed.Load() {
		return
	}
	raw := string(request)
	if !json.Valid(request) {
		quoted, _ := json.Marshal(raw)
		raw = string(quoted)
	}
	r := exchangeRow{
		SessionID: sessionID,
		Action:    action,
		OK:        resp.OK,
		Code:      resp.Code,
		Error:     resp.Error,
		TS:        time.Now().UTC().Format(time.RFC3339Nano),
		RawJSON:   raw,
	}
	select {
	case s.ch <- req{kind: reqExchange, exchange: r}:
	default:
	}
}

func (s *SQLiteIndex) SessionEnded(sessionID string) {
	if s == nil || s.closed.Load() {
		return
	}
	r := endRow{
		SessionID: sessionID,
		EndedAt:   time.Now().UTC().Format(time.RFC3339Nano),
	}
	select {
	case s.ch <- req{kind: reqEnd, end: r}:
	default:
	}
}

// UpsertCatalog records the crop catalog and applied tuning so a
// session's inputs can be reconstructed later.
func (s *SQLiteIndex) UpsertCatalog(catalog *crops.Catalog, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	if catalog != nil {
		if b, _ := json.Marshal(catalog.ByName); len(b) > 0 {
			rows = append(rows, kv{name: "crops", digest: catalog.Digest, json: b})
		}
	}
	{
		b, _ := json.Marshal(tune)
		sum := sha256.Sum256(b)
		rows = append(rows, kv{name: "tuning", digest: hex.EncodeToString(sum[:]), json: b})
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if r.name == "" || r.digest == "" || len(r.json) == 0 {
			continue
		}
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertSession, _ := s.db.Prepare(`INSERT OR REPLACE INTO sessions(session_id,remote,started_at,ended_at) VALUES(?,?,?,NULL)`)
	insertExchange, _ := s.db.Prepare(`INSERT OR REPLACE INTO exchanges(session_id,seq,action,ok,code,error,ts,raw_json) VALUES(?,?,?,?,?,?,?,?)`)
	endSession, _ := s.db.Prepare(`UPDATE sessions SET ended_at=? WHERE session_id=?`)
	defer func() {
		if insertSession != nil {
			_ = insertSession.Close()
		}
		if insertExchange != nil {
			_ = insertExchange.Close()
		}
		if endSession != nil {
			_ = endSession.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = 2 * time.Second

		seqBySession = map[string]int{}
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

	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqStart:
			if insertSession == nil {
				continue
			}
			if _, err := tx.Stmt(insertSession).Exec(r.start.SessionID, r.start.Remote, r.start.StartedAt); err != nil {
				rollback()
				continue
			}
			opCount++

		case reqExchange:
			if insertExchange == nil {
				continue
			}
			e := r.exchange
			seq := seqBySession[e.SessionID]
			seqBySession[e.SessionID] = seq + 1
			if _, err := tx.Stmt(insertExchange).Exec(
				e.SessionID,
				seq,
				e.Action,
				boolToInt(e.OK),
				e.Code,
				e.Error,
				e.TS,
				e.RawJSON,
			); err != nil {
				rollback()
				continue
			}
			opCount++

		case reqEnd:
			if endSession == nil {
				continue
			}
			if _, err := tx.Stmt(endSession).Exec(r.end.EndedAt, r.end.SessionID); err != nil {
				rollback()
				continue
			}
			delete(seqBySession, r.end.SessionID)
			opCount++
		}
		flushIfNeeded()
	}

	commit()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
