// Package inspector serves the debug HTTP surface of a running strand
// process: health, runner snapshots, prometheus metrics, and a live
// WebSocket feed of runtime state. It is a development tool and is off by
// default.
package inspector

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/strand-rt/strand/internal/errors"
	"github.com/strand-rt/strand/pkg/executor"
)

// DefaultSnapshotInterval is how often the live feed pushes a snapshot.
const DefaultSnapshotInterval = time.Second

// Source provides runtime snapshots. Satisfied by *executor.Executor.
type Source interface {
	Stats() executor.Stats
}

// Options configures an inspector server.
type Options struct {
	// Addr is the listen address (host:port).
	Addr string

	// Logger receives inspector diagnostics. Defaults to slog.Default().
	Logger *slog.Logger

	// Source provides the runtime snapshots served on /runners and /live.
	Source Source

	// Gatherer serves /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer

	// SnapshotInterval paces the live WebSocket feed
	// (default DefaultSnapshotInterval).
	SnapshotInterval time.Duration
}

// Server is the inspector HTTP server.
type Server struct {
	logger   *slog.Logger
	source   Source
	interval time.Duration

	httpServer *http.Server
	listener   net.Listener
	feed       *liveFeed
	done       chan struct{}
}

// New creates an inspector server. Start binds the address and begins
// serving.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	interval := opts.SnapshotInterval
	if interval <= 0 {
		interval = DefaultSnapshotInterval
	}

	s := &Server{
		logger:   logger,
		source:   opts.Source,
		interval: interval,
		feed:     newLiveFeed(),
		done:     make(chan struct{}),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/runners", s.handleRunners)
	r.Get("/live", s.feed.handleWebSocket)
	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start binds the listen address and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return errors.New("E140").
			Wrap(err).
			WithSuggestion("Pick another inspector port in strand.json")
	}
	s.listener = ln

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("inspector server failed", "error", err)
		}
	}()
	go s.broadcastLoop()

	s.logger.Info("inspector listening", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound address. Only valid after Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.httpServer.Addr
	}
	return s.listener.Addr().String()
}

// Shutdown stops the live feed and the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	close(s.done)
	s.feed.Close()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleRunners(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.source.Stats()); err != nil {
		s.logger.Error("unable to encode runner snapshot", "error", err)
	}
}

// broadcastLoop pushes runtime snapshots to live clients until shutdown.
func (s *Server) broadcastLoop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if s.feed.ClientCount() == 0 {
				continue
			}
			s.feed.Broadcast(s.source.Stats())
		}
	}
}
