package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// wsHeartbeatInterval bounds how long an idle stream goes without
	// traffic; intermediaries drop silent connections.
	wsHeartbeatInterval = 30 * time.Second
	wsWriteTimeout      = 10 * time.Second
)

// handleLogStream streams a task's log to the client: first the lines
// already in the ring, then live lines as they arrive. "ping" text
// frames are answered with "pong"; idle periods get a heartbeat.
func (s *Server) handleLogStream(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("ws-upgrade-failed", zap.Error(err))
		return
	}
	defer conn.Close()

	for _, line := range s.sup.Logs(id, 0) {
		if err := s.writeText(conn, line); err != nil {
			return
		}
	}

	lines, cancel := s.sup.Subscribe(id)
	defer cancel()

	// Reader: forwards pings, signals disconnect by closing.
	pings := make(chan struct{}, 1)
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if string(msg) == "ping" {
				select {
				case pings <- struct{}{}:
				default:
				}
			}
		}
	}()

	heartbeat := time.NewTicker(wsHeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-readerDone:
			return
		case <-pings:
			if err := s.writeText(conn, "pong"); err != nil {
				return
			}
		case line := <-lines:
			if err := s.writeText(conn, line); err != nil {
				return
			}
			heartbeat.Reset(wsHeartbeatInterval)
		case <-heartbeat.C:
			if err := s.writeText(conn, "heartbeat"); err != nil {
				return
			}
		}
	}
}

func (s *Server) writeText(conn *websocket.Conn, text string) error {
	if err := conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, []byte(text))
}
