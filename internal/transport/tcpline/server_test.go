package tcpline

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log"
	"net"
	"path/filepath"
	"testing"
	"time"

	"cropcraft.ai/internal/protocol"
	"cropcraft.ai/internal/server"
	"cropcraft.ai/internal/sim/crops"
	"cropcraft.ai/internal/sim/engine"
	"cropcraft.ai/internal/sim/tuning"
	"cropcraft.ai/internal/sim/weather"
)

func startServer(t *testing.T) net.Addr {
	t.Helper()
	catalog, err := crops.Load(filepath.Join("..", "..", "..", "configs", "crops"))
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	logger := log.New(io.Discard, "", 0)
	deps := server.Deps{
		Catalog:   catalog,
		Oracle:    weather.NewOracle(nil, logger),
		NewEngine: engine.New,
		Tuning:    tuning.Defaults(),
		Logger:    logger,
	}
	srv := NewServer(func() *server.Session { return server.NewSession(deps) }, nil, logger)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = srv.Serve(ctx, ln) }()
	return ln.Addr()
}

func TestServe_GreetingThenOrderedResponses(t *testing.T) {
	addr := startServer(t)

	conn, err := net.DialTimeout("tcp", addr.String(), 2*time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(10 * time.Second))

	r := bufio.NewReader(conn)
	readJSON := func(v any) {
		t.Helper()
		line, err := r.ReadBytes('\n')
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if err := json.Unmarshal(line, v); err != nil {
			t.Fatalf("unmarshal %s: %v", line, err)
		}
	}

	var greeting protocol.Greeting
	readJSON(&greeting)
	if !greeting.OK || greeting.Message != "ready" || greeting.SessionID == "" {
		t.Fatalf("greeting = %+v", greeting)
	}

	// Blank lines are skipped, not answered.
	if _, err := conn.Write([]byte("\n\n{\"action\":\"init\",\"date\":\"0501\",\"fertilizer\":\"medium\"}\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	var initResp protocol.Response
	readJSON(&initResp)
	if !initResp.OK {
		t.Fatalf("init failed: %+v", initResp)
	}
	result := initResp.Result.(map[string]any)
	if result["fertilizer_applied"] != 40.0 {
		t.Fatalf("fertilizer_applied = %v", result["fertilizer_applied"])
	}

	// A failing request keeps the connection usable.
	if _, err := conn.Write([]byte("{\"action\":\"water\"}\n{\"action\":\"tick\",\"steps\":2}\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	var waterResp, tickResp protocol.Response
	readJSON(&waterResp)
	if waterResp.OK || waterResp.Code != protocol.ErrBadRequest {
		t.Fatalf("water resp = %+v", waterResp)
	}
	readJSON(&tickResp)
	if !tickResp.OK {
		t.Fatalf("tick failed: %+v", tickResp)
	}
	tick := tickResp.Result.(map[string]any)
	if tick["steps"] != 2.0 || tick["day"] != "2024-05-02" {
		t.Fatalf("tick result = %v", tick)
	}
}

func TestServe_SessionsAreIndependent(t *testing.T) {
	addr := startServer(t)

	open := func() (net.Conn, *bufio.Reader) {
		t.Helper()
		conn, err := net.DialTimeout("tcp", addr.String(), 2*time.Second)
		if err != nil {
			t.Fatalf("dial: %v", err)
		}
		t.Cleanup(func() { _ = conn.Close() })
		_ = conn.SetDeadline(time.Now().Add(10 * time.Second))
		r := bufio.NewReader(conn)
		if _, err := r.ReadBytes('\n'); err != nil {
			t.Fatalf("greeting: %v", err)
		}
		return conn, r
	}

	first, firstR := open()
	second, secondR := open()

	if _, err := first.Write([]byte("{\"action\":\"init\",\"date\":\"0501\"}\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	line, err := firstR.ReadBytes('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var resp protocol.Response
	if err := json.Unmarshal(line, &resp); err != nil || !resp.OK {
		t.Fatalf("init on first conn: %s %v", line, err)
	}

	if _, err := second.Write([]byte("{\"action\":\"status\"}\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	line, err = secondR.ReadBytes('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := json.Unmarshal(line, &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	status := resp.Result.(map[string]any)
	if status["initialized"] != false {
		t.Fatalf("second session saw first session's game: %v", status)
	}
}
