// Package ws serves the same request/response records as tcpline over
// websocket: one text frame per record.
package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"cropcraft.ai/internal/protocol"
	"cropcraft.ai/internal/server"
)

type SessionFactory func() *server.Session

type Server struct {
	factory SessionFactory
	journal server.Journal // optional
	log     *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(factory SessionFactory, journal server.Journal, logger *log.Logger) *Server {
	return &Server{
		factory: factory,
		journal: journal,
		log:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sess := s.factory()
		remote := r.RemoteAddr
		s.log.Printf("ws client connected: %s (session %s)", remote, sess.ID)
		if s.journal != nil {
			s.journal.SessionStarted(sess.ID, remote)
		}
		defer func() {
			if s.journal != nil {
				s.journal.SessionEnded(sess.ID)
			}
			s.log.Printf("ws client disconnected: %s (session %s)", remote, sess.ID)
		}()

		if err := writeJSON(conn, protocol.Greeting{OK: true, Message: "ready", SessionID: sess.ID}); err != nil {
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		for {
			_ = conn.SetReadDeadline(time.Now().Add(10 * time.Minute))
			kind, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if kind != websocket.TextMessage {
				continue
			}
			resp := sess.Handle(ctx, msg)
			if err := writeJSON(conn, resp); err != nil {
				return
			}
		}
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		b, _ = json.Marshal(protocol.Failure(protocol.ErrInternal, "response encoding failed"))
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
