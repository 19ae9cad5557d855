// Package tcpline serves the newline-delimited JSON protocol over raw
// TCP: one greeting on connect, then one response line per request
// line, in order.
package tcpline

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net"

	"cropcraft.ai/internal/protocol"
	"cropcraft.ai/internal/server"
)

// SessionFactory builds a fresh session per connection.
type SessionFactory func() *server.Session

type Server struct {
	factory SessionFactory
	journal server.Journal // optional
	log     *log.Logger
}

func NewServer(factory SessionFactory, journal server.Journal, logger *log.Logger) *Server {
	return &Server{factory: factory, journal: journal, log: logger}
}

// Serve accepts until ctx is canceled, one goroutine per connection.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		go s.handle(ctx, conn)
	}
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	sess := s.factory()
	remote := conn.RemoteAddr().String()
	s.log.Printf("client connected: %s (session %s)", remote, sess.ID)
	if s.journal != nil {
		s.journal.SessionStarted(sess.ID, remote)
	}
	defer func() {
		if s.journal != nil {
			s.journal.SessionEnded(sess.ID)
		}
		s.log.Printf("client disconnected: %s (session %s)", remote, sess.ID)
	}()

	if err := writeLine(conn, protocol.Greeting{OK: true, Message: "ready", SessionID: sess.ID}); err != nil {
		return
	}

	sc := bufio.NewScanner(conn)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		trimmed := bytes.TrimSpace(sc.Bytes())
		if len(trimmed) == 0 {
			continue
		}
		// The scanner reuses its buffer; the journal holds the line
		// past this iteration.
		line := append([]byte(nil), trimmed...)
		resp := sess.Handle(ctx, line)
		if err := writeLine(conn, resp); err != nil {
			return
		}
	}
}

func writeLine(conn net.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		b, _ = json.Marshal(protocol.Failure(protocol.ErrInternal, "response encoding failed"))
	}
	_, err = conn.Write(append(b, '\n'))
	return err
}
