// Package rest exposes the scoring service over HTTP.
package rest

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/fortuna/crease/internal/service"
)

// Server represents the REST API server.
type Server struct {
	port    string
	server  *http.Server
	handler *Handler
}

// NewServer creates a new REST API server.
func NewServer(port string, scoring *service.ScoringService, logger zerolog.Logger) *Server {
	handler := NewHandler(scoring, logger)

	router := mux.NewRouter()

	router.Use(RecoveryMiddleware(logger))
	router.Use(RequestIDMiddleware(logger))

	router.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()

	// Scoring
	api.HandleFunc("/matches/{matchID}/innings", handler.StartInning).Methods("POST")
	api.HandleFunc("/innings/{inningID}/balls", handler.RecordBall).Methods("POST")
	api.HandleFunc("/innings/{inningID}/batsman", handler.SelectBatsman).Methods("POST")
	api.HandleFunc("/innings/{inningID}/bowler", handler.SelectBowler).Methods("POST")

	// Read views
	api.HandleFunc("/innings/{inningID}", handler.GetInningState).Methods("GET")
	api.HandleFunc("/innings/{inningID}/scorecard", handler.GetScorecard).Methods("GET")
	api.HandleFunc("/innings/{inningID}/chase", handler.GetChase).Methods("GET")
	api.HandleFunc("/innings/{inningID}/balls", handler.ListBalls).Methods("GET")
	api.HandleFunc("/innings/{inningID}/rebuild", handler.RebuildInning).Methods("POST")

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	return &Server{
		port:    port,
		handler: handler,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%s", port),
			Handler: c.Handler(router),
		},
	}
}

// Start starts the REST API server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
