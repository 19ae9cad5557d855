package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"cropcraft.ai/internal/protocol"
)

// JSONLZstdWriter appends JSON lines to zstd-compressed segment
// files, starting a new segment every rotate period.
type JSONLZstdWriter struct {
	baseDir string
	prefix  string
	rotate  time.Duration

	mu         sync.Mutex
	curSegment string
	f          *os.File
	enc        *zstd.Encoder
	w          *bufio.Writer
}

// NewJSONLZstdWriter creates a writer rotating every rotate period;
// rotate <= 0 means hourly.
func NewJSONLZstdWriter(baseDir, prefix string, rotate time.Duration) *JSONLZstdWriter {
	if rotate <= 0 {
		rotate = time.Hour
	}
	return &JSONLZstdWriter{
		baseDir: baseDir,
		prefix:  prefix,
		rotate:  rotate,
	}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	segment := time.Now().UTC().Truncate(w.rotate).Format("20060102T150405")
	if segment != w.curSegment {
		if err := w.rotateLocked(segment); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *JSONLZstdWriter) rotateLocked(segment string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	dir := filepath.Dir(w.pathForSegment(segment))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.pathForSegment(segment), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 128*1024)
	w.curSegment = segment
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	return err1
}

func (w *JSONLZstdWriter) pathForSegment(segment string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, segment))
}

// TranscriptEntry is one request/response exchange as it went over
// the wire.
type TranscriptEntry struct {
	TS        string          `json:"ts"`
	SessionID string          `json:"session_id"`
	Action    string          `json:"action,omitempty"`
	Request   json.RawMessage `json:"request"`
	OK        bool            `json:"ok"`
	Code      string          `json:"code,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// TranscriptLogger writes one compressed JSONL entry per exchange.
type TranscriptLogger struct{ w *JSONLZstdWriter }

func NewTranscriptLogger(dataDir string, rotate time.Duration) *TranscriptLogger {
	return &TranscriptLogger{w: NewJSONLZstdWriter(filepath.Join(dataDir, "transcripts"), "transcripts", rotate)}
}

func (l *TranscriptLogger) WriteExchange(sessionID, action string, request []byte, resp protocol.Response) error {
	var raw json.RawMessage
	if json.Valid(request) {
		raw = append(raw, request...)
	} else {
		quoted, _ := json.Marshal(string(request))
		raw = quoted
	}
	return l.w.Write(TranscriptEntry{
		TS:        time.Now().UTC().Format(time.RFC3339Nano),
		SessionID: sessionID,
		Action:    action,
		Request:   raw,
		OK:        resp.OK,
		Code:      resp.Code,
		Error:     resp.Error,
	})
}

func (l *TranscriptLogger) Close() error { return l.w.Close() }
