// Command server runs the chess opponent as an HTTP and WebSocket service.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"chess-opponent/engine"
	"chess-opponent/server"
)

func main() {
	cfg := server.DefaultConfig()
	tier := cfg.DefaultTier.String()
	perspective := cfg.Perspective.String()

	flag.StringVar(&cfg.Host, "host", cfg.Host, "interface to listen on")
	flag.IntVar(&cfg.Port, "port", cfg.Port, "port to listen on")
	flag.IntVar(&cfg.SearchWorkers, "workers", cfg.SearchWorkers, "searches allowed to run at once")
	flag.DurationVar(&cfg.QueueTimeout, "queue-timeout", cfg.QueueTimeout, "how long a request waits for a free search worker")
	flag.DurationVar(&cfg.SearchTimeout, "search-timeout", cfg.SearchTimeout, "how long a request waits for a running search")
	flag.IntVar(&cfg.MaxDepth, "max-depth", cfg.MaxDepth, "deepest search a request may ask for")
	flag.StringVar(&cfg.Backend, "backend", cfg.Backend, "default rules backend (goose, dragon, notnil)")
	flag.StringVar(&tier, "difficulty", tier, "default difficulty for new games")
	flag.StringVar(&perspective, "perspective", perspective, "score perspective: side-to-move or white")
	jsonLogs := flag.Bool("json", false, "log JSON instead of console output")
	debug := flag.Bool("debug", false, "log every search")
	flag.Parse()

	log := newLogger(*jsonLogs, *debug)

	t, err := engine.ParseTier(tier)
	if err != nil {
		log.Fatal().Err(err).Msg("bad -difficulty")
	}
	cfg.DefaultTier = t
	p, err := engine.ParsePerspective(perspective)
	if err != nil {
		log.Fatal().Err(err).Msg("bad -perspective")
	}
	cfg.Perspective = p

	srv, err := server.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		log.Error().Err(err).Msg("server exited")
		os.Exit(1)
	}
}

func newLogger(jsonLogs, debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	if jsonLogs {
		return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
