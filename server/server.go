// Package server is the HTTP and WebSocket game service around the move
// selector: it owns games, runs the engine's replies on a bounded pool and
// pushes every move to the clients watching a game.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"chess-opponent/engine"
)

// Server is the game service.
type Server struct {
	config   Config
	log      zerolog.Logger
	selector engine.Selector
	pool     *SearchPool
	games    *GameStore
	hub      *Hub
	server   *http.Server
}

// New creates a server. The logger is used for requests and, at debug
// level, for every search.
func New(config Config, log zerolog.Logger) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Server{
		config:   config,
		log:      log,
		selector: engine.Selector{Perspective: config.Perspective, Logger: log},
		pool:     NewSearchPool(config.SearchWorkers),
		games:    NewGameStore(),
		hub:      NewHub(log),
	}, nil
}

// Pool returns the search pool for monitoring.
func (s *Server) Pool() *SearchPool { return s.pool }

// Games returns the game store.
func (s *Server) Games() *GameStore { return s.games }

// Router builds the route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Get("/healthz", s.handleHealth)
		r.Get("/stats", s.handleStats)
		r.Get("/difficulties", s.handleDifficulties)

		r.Post("/select", s.handleSelect)
		r.Post("/evaluate", s.handleEvaluate)
		r.Post("/analyze", s.handleAnalyze)

		r.Route("/games", func(r chi.Router) {
			r.Post("/", s.handleCreateGame)
			r.Get("/", s.handleListGames)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetGame)
				r.Post("/moves", s.handleMove)
				r.Post("/engine-move", s.handleEngineMove)
				r.Put("/difficulty", s.handleDifficulty)
			})
		})
	})
	r.Get("/ws/games/{id}", s.handleWatch)

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.config.Addr(),
		Handler:      s.Router(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		s.log.Info().
			Str("addr", s.config.Addr()).
			Str("backend", s.config.Backend).
			Str("perspective", s.config.Perspective.String()).
			Int("workers", s.config.SearchWorkers).
			Msg("listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		s.log.Info().Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	s.hub.Close()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.log.Info().Msg("server stopped gracefully")
	return nil
}

// search runs the selector on the pool. Waiting for a slot is bounded by
// QueueTimeout; waiting for the result by SearchTimeout. When the result
// wait runs out, ErrSearchTimeout is returned and the search still
// finishes, after which onLate (if any) receives its result.
func (s *Server) search(ctx context.Context, run func() engine.Result, onLate func(engine.Result)) (engine.Result, error) {
	queueCtx, cancel := context.WithTimeout(ctx, s.config.QueueTimeout)
	defer cancel()

	var res engine.Result
	done, err := s.pool.Go(queueCtx, func() { res = run() })
	if err != nil {
		return engine.Result{}, err
	}

	timer := time.NewTimer(s.config.SearchTimeout)
	defer timer.Stop()
	select {
	case <-done:
		return res, nil
	case <-timer.C:
	case <-ctx.Done():
	}

	go func() {
		<-done
		s.log.Info().Dur("elapsed", res.Elapsed).Str("move", res.Move.String()).Msg("late search finished")
		if onLate != nil {
			onLate(res)
		}
	}()
	return engine.Result{}, ErrSearchTimeout
}

// ErrSearchTimeout is returned when a search outlives the request.
var ErrSearchTimeout = errors.New("server: search did not finish in time")
