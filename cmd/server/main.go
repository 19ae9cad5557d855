package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"cropcraft.ai/internal/persistence/indexdb"
	persistlog "cropcraft.ai/internal/persistence/log"
	"cropcraft.ai/internal/protocol"
	"cropcraft.ai/internal/server"
	"cropcraft.ai/internal/sim/crops"
	"cropcraft.ai/internal/sim/engine"
	"cropcraft.ai/internal/sim/tuning"
	"cropcraft.ai/internal/sim/weather"
	"cropcraft.ai/internal/transport/tcpline"
	"cropcraft.ai/internal/transport/ws"
)

func main() {
	var (
		tcpAddr    = flag.String("tcp_addr", ":5005", "tcp line-protocol listen address (empty to disable)")
		httpAddr   = flag.String("http_addr", ":8080", "http listen address (healthz, metrics, websocket)")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite session index")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Printf("tuning not found (%s); using defaults", tp)
			tune = tuning.Defaults()
		} else {
			logger.Fatalf("load tuning: %v", err)
		}
	}

	catalog, err := crops.Load(filepath.Join(*configDir, "crops"))
	if err != nil {
		logger.Fatalf("load crop catalog: %v", err)
	}
	logger.Printf("crop catalog: %d crops, digest %.12s", len(catalog.Names), catalog.Digest)

	_ = os.MkdirAll(*dataDir, 0o755)

	var remote *weather.PowerClient
	if tune.RemoteWeather {
		remote = weather.NewPowerClient(time.Duration(tune.WeatherTimeoutSeconds) * time.Second)
	} else {
		logger.Printf("remote weather disabled; synthesis only")
	}
	oracle := weather.NewOracle(remote, logger)

	transcripts := persistlog.NewTranscriptLogger(*dataDir, time.Duration(tune.TranscriptRotateMinutes)*time.Minute)
	defer transcripts.Close()

	var index *indexdb.SQLiteIndex
	if !*disableDB {
		index, err = indexdb.OpenSQLite(filepath.Join(*dataDir, "index", "sessions.db"))
		if err != nil {
			logger.Fatalf("open session index: %v", err)
		}
		defer index.Close()
		if err := index.UpsertCatalog(catalog, tune); err != nil {
			logger.Printf("session index: upsert catalog: %v", err)
		}
	}

	stats := &server.Stats{}
	journal := &journalFan{
		stats:       stats,
		transcripts: transcripts,
		index:       index,
		logger:      logger,
	}

	deps := server.Deps{
		Catalog:   catalog,
		Oracle:    oracle,
		NewEngine: engine.New,
		Tuning:    tune,
		Logger:    logger,
		Journal:   journal,
	}
	factory := func() *server.Session { return server.NewSession(deps) }

	ctx, cancel := signalContext()
	defer cancel()

	if strings.TrimSpace(*tcpAddr) != "" {
		ln, err := net.Listen("tcp", *tcpAddr)
		if err != nil {
			logger.Fatalf("listen %s: %v", *tcpAddr, err)
		}
		srv := tcpline.NewServer(factory, journal, logger)
		go func() {
			logger.Printf("tcp listening on %s", *tcpAddr)
			if err := srv.Serve(ctx, ln); err != nil {
				logger.Printf("tcp serve: %v", err)
			}
		}()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

		// Minimal Prometheus exposition format.
		fmt.Fprintf(rw, "# HELP cropcraft_sessions_total Sessions opened since start.\n")
		fmt.Fprintf(rw, "# TYPE cropcraft_sessions_total counter\n")
		fmt.Fprintf(rw, "cropcraft_sessions_total %d\n", stats.SessionsTotal.Load())

		fmt.Fprintf(rw, "# HELP cropcraft_sessions_active Currently connected sessions.\n")
		fmt.Fprintf(rw, "# TYPE cropcraft_sessions_active gauge\n")
		fmt.Fprintf(rw, "cropcraft_sessions_active %d\n", stats.SessionsActive.Load())

		fmt.Fprintf(rw, "# HELP cropcraft_requests_total Requests handled since start.\n")
		fmt.Fprintf(rw, "# TYPE cropcraft_requests_total counter\n")
		fmt.Fprintf(rw, "cropcraft_requests_total %d\n", stats.RequestsTotal.Load())

		fmt.Fprintf(rw, "# HELP cropcraft_errors_total Requests answered with ok=false.\n")
		fmt.Fprintf(rw, "# TYPE cropcraft_errors_total counter\n")
		fmt.Fprintf(rw, "cropcraft_errors_total %d\n", stats.ErrorsTotal.Load())
	})
	mux.HandleFunc("/v1/ws", ws.NewServer(factory, journal, logger).Handler())

	srv := &http.Server{
		Addr:              *httpAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("http listening on %s", *httpAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

// journalFan fans the session stream out to counters, the transcript
// log and the sqlite index.
type journalFan struct {
	stats       *server.Stats
	transcripts *persistlog.TranscriptLogger
	index       *indexdb.SQLiteIndex
	logger      *log.Logger
}

func (j *journalFan) SessionStarted(sessionID, remote string) {
	j.stats.SessionsTotal.Add(1)
	j.stats.SessionsActive.Add(1)
	if j.index != nil {
		j.index.SessionStarted(sessionID, remote)
	}
}

func (j *journalFan) Exchange(sessionID, action string, request []byte, resp protocol.Response) {
	j.stats.RequestsTotal.Add(1)
	if !resp.OK {
		j.stats.ErrorsTotal.Add(1)
	}
	if err := j.transcripts.WriteExchange(sessionID, action, request, resp); err != nil {
		j.logger.Printf("transcript write: %v", err)
	}
	if j.index != nil {
		j.index.Exchange(sessionID, action, request, resp)
	}
}

func (j *journalFan) SessionEnded(sessionID string) {
	j.stats.SessionsActive.Add(-1)
	if j.index != nil {
		j.index.SessionEnded(sessionID)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
