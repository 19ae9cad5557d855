package indexdb

import (
	"database/sql"
	"path/filepath"
	"testing"

	"cropcraft.ai/internal/protocol"
	"cropcraft.ai/internal/sim/tuning"
)

func TestSQLiteIndex_SessionsAndExchanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index", "sessions.db")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	if err := idx.UpsertCatalog(nil, tuning.Defaults()); err != nil {
		t.Fatalf("upsert catalog: %v", err)
	}

	idx.SessionStarted("s-1", "127.0.0.1:9999")
	idx.Exchange("s-1", "init", []byte(`{"action":"init","date":"0501"}`), protocol.Success(nil))
	idx.Exchange("s-1", "tick", []byte(`{"action":"tick"}`), protocol.Failure(protocol.ErrPrecondition, "no game"))
	idx.SessionEnded("s-1")

	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()

	var remote string
	var ended sql.NullString
	if err := db.QueryRow(`SELECT remote, ended_at FROM sessions WHERE session_id='s-1'`).Scan(&remote, &ended); err != nil {
		t.Fatalf("query session: %v", err)
	}
	if remote != "127.0.0.1:9999" || !ended.Valid {
		t.Fatalf("session row = %q / %v", remote, ended)
	}

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM exchanges WHERE session_id='s-1'`).Scan(&n); err != nil {
		t.Fatalf("count exchanges: %v", err)
	}
	if n != 2 {
		t.Fatalf("exchanges = %d, want 2", n)
	}

	var code string
	var ok int
	if err := db.QueryRow(`SELECT ok, code FROM exchanges WHERE session_id='s-1' AND seq=1`).Scan(&ok, &code); err != nil {
		t.Fatalf("query exchange: %v", err)
	}
	if ok != 0 || code != protocol.ErrPrecondition {
		t.Fatalf("exchange = ok=%d code=%q", ok, code)
	}

	var tuningJSON string
	if err := db.QueryRow(`SELECT json FROM catalogs WHERE name='tuning'`).Scan(&tuningJSON); err != nil {
		t.Fatalf("query tuning: %v", err)
	}
	if tuningJSON == "" {
		t.Fatalf("tuning json empty")
	}
}
