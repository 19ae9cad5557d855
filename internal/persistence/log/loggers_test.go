package log

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"

	"cropcraft.ai/internal/protocol"
)

func TestTranscriptLogger_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	l := NewTranscriptLogger(dir, 0)

	req := []byte(`{"action":"tick","steps":2}`)
	if err := l.WriteExchange("s-1", "tick", req, protocol.Success(map[string]any{"tick": 2})); err != nil {
		t.Fatalf("write exchange: %v", err)
	}
	if err := l.WriteExchange("s-1", "", []byte("not json"), protocol.Failure(protocol.ErrBadRequest, "boom")); err != nil {
		t.Fatalf("write exchange: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "transcripts", "transcripts-*.jsonl.zst"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("glob: %v %v", matches, err)
	}
	if base := filepath.Base(matches[0]); len(base) != len("transcripts-20060102T150405.jsonl.zst") {
		t.Fatalf("segment name = %s", base)
	}
	f, err := os.Open(matches[0])
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd reader: %v", err)
	}
	defer dec.Close()

	var entries []TranscriptEntry
	sc := bufio.NewScanner(dec)
	for sc.Scan() {
		var e TranscriptEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].SessionID != "s-1" || entries[0].Action != "tick" || !entries[0].OK {
		t.Fatalf("first entry = %+v", entries[0])
	}
	if string(entries[0].Request) != string(req) {
		t.Fatalf("request = %s", entries[0].Request)
	}
	if entries[1].OK || entries[1].Code != protocol.ErrBadRequest {
		t.Fatalf("second entry = %+v", entries[1])
	}
}
