package websocket

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // viewers connect from arbitrary origins
	},
}

// Server pushes live ball events to WebSocket subscribers.
type Server struct {
	port   string
	server *http.Server
	hub    *Hub
	relay  *Relay
	logger zerolog.Logger
}

// NewServer creates a new WebSocket server backed by the given Redis client
// for stream consumption.
func NewServer(redisClient *redis.Client, logger zerolog.Logger) *Server {
	hub := NewHub(logger)
	return &Server{
		hub:    hub,
		relay:  NewRelay(redisClient, hub, logger),
		logger: logger,
	}
}

// Start starts the relay and serves WebSocket connections until the
// context is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context, port string) error {
	s.port = port

	go s.hub.Run()
	go s.relay.Run(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws/scores/live", s.handleLiveScores)
	mux.HandleFunc("/ws/health", s.handleHealth)

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%s", port),
		Handler: mux,
	}

	s.logger.Info().Str("port", port).Msg("websocket server listening")
	return s.server.ListenAndServe()
}

func (s *Server) handleLiveScores(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to upgrade connection")
		return
	}

	client := &Client{
		id:   uuid.New().String(),
		hub:  s.hub,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}

	s.hub.register <- client

	go client.writePump()
	go client.readPump()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status": "healthy", "clients": %d}`, s.hub.ClientCount())
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Stop()
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
