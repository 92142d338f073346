// Package realtime serves the websocket client protocol and the small HTTP surface.
package realtime

import (
	"dot-catcher/services"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const IndexBanner = "Dot Catcher Backend Server"

type StatsProvider func() map[string]any

type Server struct {
	log            *slog.Logger
	sessions       services.ISessionService
	statsProvider  StatsProvider
	bufferSize     int
	publishTimeout time.Duration
	upgrader       websocket.Upgrader
}

func NewServer(log *slog.Logger, sessions services.ISessionService, statsProvider StatsProvider,
	bufferSize int, publishTimeout time.Duration) *Server {
	return &Server{
		log:            log,
		sessions:       sessions,
		statsProvider:  statsProvider,
		bufferSize:     bufferSize,
		publishTimeout: publishTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Clients are unauthenticated and served from any origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/stats", s.handleStats)
	return mux
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, IndexBanner)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("Websocket upgrade failed", "err", err)
		return
	}
	client := NewClient(s.log, conn, s.sessions, s.bufferSize, s.publishTimeout)
	client.serve(r.Context())
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	stats := map[string]any{}
	if s.statsProvider != nil {
		stats = s.statsProvider()
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		s.log.Warn("Failed to encode stats", "err", err)
	}
}
