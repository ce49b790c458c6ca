package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/louisbranch/wildgrid/internal/encounter/access"
	"github.com/louisbranch/wildgrid/internal/encounter/service"
	"github.com/louisbranch/wildgrid/internal/encounter/storage/sqlite"
	"github.com/louisbranch/wildgrid/internal/platform/token"
)

const (
	defaultReadHeaderTimeout = 5 * time.Second
	defaultShutdownTimeout   = 10 * time.Second
)

// Config defines the inputs for the encounter HTTP process.
type Config struct {
	HTTPAddr          string
	StoragePath       string
	TokenSecret       []byte
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
}

// Server hosts the encounter HTTP process and owns its storage handle.
type Server struct {
	httpAddr        string
	shutdownTimeout time.Duration
	httpServer      *http.Server
	store           *sqlite.Store
}

// NewServer opens storage and composes the encounter service behind its routes.
func NewServer(config Config) (*Server, error) {
	if config.ReadHeaderTimeout <= 0 {
		config.ReadHeaderTimeout = defaultReadHeaderTimeout
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = defaultShutdownTimeout
	}

	verifier, err := token.NewVerifier(config.TokenSecret)
	if err != nil {
		return nil, fmt.Errorf("init token verifier: %w", err)
	}

	store, err := sqlite.Open(config.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("open encounter storage: %w", err)
	}

	svc := service.New(service.Deps{
		Scenes:    store,
		Trainers:  store,
		Creatures: store,
		NPCs:      store,
		Logs:      store,
		Dex:       store,
		Gate:      access.NewGate(store),
	})

	return &Server{
		httpAddr:        config.HTTPAddr,
		shutdownTimeout: config.ShutdownTimeout,
		httpServer: &http.Server{
			Addr:              config.HTTPAddr,
			Handler:           NewHandler(svc, verifier),
			ReadHeaderTimeout: config.ReadHeaderTimeout,
		},
		store: store,
	}, nil
}

// Run builds the encounter server and serves until the context ends.
func Run(ctx context.Context, config Config) error {
	server, err := NewServer(config)
	if err != nil {
		return fmt.Errorf("init encounter server: %w", err)
	}
	defer server.Close()

	if err := server.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("serve encounter: %w", err)
	}
	return nil
}

// ListenAndServe runs the HTTP server until the context ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("encounter server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	serveErr := make(chan error, 1)
	log.Printf("encounter server listening on %s", s.httpAddr)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

// Close releases server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("close encounter storage: %v", err)
		}
	}
}
