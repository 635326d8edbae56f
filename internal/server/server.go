// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Complyd Contributors

// Package server exposes the compliance API over HTTP: document ingestion,
// streaming compliance analysis, and health.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/complyd-dev/complyd/internal/agent"
	"github.com/complyd-dev/complyd/internal/retrieval"
)

// Config holds HTTP server configuration.
type Config struct {
	ListenAddr   string
	CORSOrigins  []string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// PipelineRunner starts a compliance analysis run and returns its event
// stream. The channel must be closed after the terminal event.
type PipelineRunner interface {
	Run(ctx context.Context, query string) (<-chan agent.Event, error)
}

// DocumentProcessor ingests one uploaded document into the retrieval index.
type DocumentProcessor interface {
	Process(ctx context.Context, filename string, content []byte) (retrieval.IngestReport, error)
}

// Server wraps a chi router with huma API and HTTP server.
type Server struct {
	router    chi.Router
	api       huma.API
	cfg       Config
	pipeline  PipelineRunner
	processor DocumentProcessor
	logger    *slog.Logger
}

// New creates a Server with chi router, huma API, health endpoint, and CORS.
// The stream and ingest endpoints return 503 until their collaborators are
// registered.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	if cfg.ListenAddr == "" {
		return nil, fmt.Errorf("listen address is required")
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		// Streaming responses stay open for the whole pipeline run.
		cfg.WriteTimeout = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(corsMiddleware(cfg.CORSOrigins))

	// Huma API with OpenAPI spec
	humaConfig := huma.DefaultConfig("Complyd", "0.1.0")
	humaConfig.Info.Description = "Insurance compliance evidence and analysis API"
	api := humachi.New(r, humaConfig)

	// Health endpoint
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Tags:        []string{"system"},
	}, func(_ context.Context, _ *struct{}) (*HealthResponse, error) {
		return &HealthResponse{Body: HealthBody{
			Status: "healthy",
			Agents: agent.Roster(),
		}}, nil
	})

	srv := &Server{
		router: r,
		api:    api,
		cfg:    cfg,
		logger: logger,
	}

	srv.registerStreamRoute()
	srv.registerIngestRoute()

	return srv, nil
}

// RegisterPipeline sets the runner used by the compliance stream endpoint.
func (s *Server) RegisterPipeline(p PipelineRunner) {
	s.pipeline = p
}

// RegisterProcessor sets the processor used by the document ingest endpoint.
func (s *Server) RegisterProcessor(p DocumentProcessor) {
	s.processor = p
}

// Handler returns the underlying http.Handler for testing.
func (s *Server) Handler() http.Handler {
	return s.router
}

// API returns the huma API for registering additional operations.
func (s *Server) API() huma.API {
	return s.api
}

// Start runs the HTTP server and blocks until the context is cancelled,
// then performs graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.ListenAddr, err)
	}

	s.logger.Info("http server listening", "addr", ln.Addr().String())

	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}

	return <-errCh
}

// HealthBody is the JSON body of the health endpoint response.
type HealthBody struct {
	Status string   `json:"status" example:"healthy" doc:"Health status"`
	Agents []string `json:"agents" doc:"Agents available in the pipeline"`
}

// HealthResponse wraps the health check response.
type HealthResponse struct {
	Body HealthBody
}

func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173"}
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
