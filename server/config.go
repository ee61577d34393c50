package server

import (
	"errors"
	"fmt"
	"time"

	"chess-opponent/engine"
	"chess-opponent/rules/backends"
)

// Config holds the server configuration.
type Config struct {
	Host            string        // Host to bind to (default "localhost")
	Port            int           // Port to listen on (default 8080)
	ReadTimeout     time.Duration // Read timeout (default 30s)
	WriteTimeout    time.Duration // Write timeout (default 60s)
	IdleTimeout     time.Duration // Idle timeout (default 120s)
	ShutdownTimeout time.Duration // Grace period for in-flight requests (default 10s)

	SearchWorkers int           // Max concurrent searches (default 4)
	QueueTimeout  time.Duration // How long a request waits for a search slot (default 2s)
	SearchTimeout time.Duration // How long a request waits for a running search (default 20s)
	MaxDepth      int           // Largest depth a stateless request may ask for (default 5)

	Backend     string             // Rules backend for new positions (default "goose")
	DefaultTier engine.Tier        // Tier of games that do not pick one
	Perspective engine.Perspective // Root perspective of every search
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "localhost",
		Port:            8080,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    60 * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		SearchWorkers:   4,
		QueueTimeout:    2 * time.Second,
		SearchTimeout:   20 * time.Second,
		MaxDepth:        engine.DepthFor(engine.Master),
		Backend:         backends.Default,
		DefaultTier:     engine.DefaultTier,
		Perspective:     engine.PerspectiveSideToMove,
	}
}

// Addr is the listen address.
func (c Config) Addr() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

// Validate reports the first unusable setting.
func (c Config) Validate() error {
	switch {
	case c.Port < 0 || c.Port > 65535:
		return fmt.Errorf("config: port %d out of range", c.Port)
	case c.SearchWorkers <= 0:
		return errors.New("config: search workers must be positive")
	case c.QueueTimeout <= 0 || c.SearchTimeout <= 0:
		return errors.New("config: timeouts must be positive")
	case c.MaxDepth < 1:
		return errors.New("config: max depth must be at least 1")
	case !c.DefaultTier.Valid():
		return fmt.Errorf("config: %w: %d", engine.ErrUnknownTier, uint8(c.DefaultTier))
	}
	if _, err := backends.Lookup(c.Backend); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
