package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"chess-opponent/engine"
	"chess-opponent/rules"
	"chess-opponent/rules/backends"
)

// sample is the outcome of one search over one position.
type sample struct {
	id      string
	best    string
	hit     bool // best move satisfies the EPD bm and am ops
	checked bool // position carried a bm or am op
	stats   engine.Stats
	elapsed time.Duration
	verify  string // non-empty on a minimax mismatch
}

func main() {
	os.Exit(searchbench())
}

// searchbench runs the suite and returns the exit code. Deferred profile
// writers run before the process exits.
func searchbench() int {
	depthFlag := flag.Int("depth", 3, "search depth in plies")
	tierFlag := flag.String("tier", "", "difficulty tier; overrides -depth")
	repeatFlag := flag.Int("repeat", 1, "number of searches to run per position")
	fenFlag := flag.String("fen", "", "FEN to search (empty = startpos)")
	epdFlag := flag.String("epd", "", "EPD file with positions to search; bm and am ops are scored")
	backendFlag := flag.String("backend", backends.Default, "rules backend")
	perspectiveFlag := flag.String("perspective", "side-to-move", "score perspective")
	parallelFlag := flag.Int("parallel", runtime.NumCPU(), "positions searched in parallel")
	verifyFlag := flag.Bool("verify", false, "check every root score against unpruned minimax")
	cpuProfile := flag.String("cpuprofile", "", "write CPU profile to file")
	memProfile := flag.String("memprofile", "", "write memory profile (heap) to file")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).With().Timestamp().Logger()

	depth := *depthFlag
	if *tierFlag != "" {
		t, err := engine.ParseTier(*tierFlag)
		if err != nil {
			log.Fatal().Err(err).Msg("bad -tier")
		}
		depth = t.Depth()
	}
	if depth <= 0 {
		log.Fatal().Int("depth", depth).Msg("depth must be positive")
	}
	perspective, err := engine.ParsePerspective(*perspectiveFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("bad -perspective")
	}
	backend, err := backends.Lookup(*backendFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("bad -backend")
	}

	records, err := loadPositions(*epdFlag, *fenFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("could not load positions")
	}

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			log.Fatal().Err(err).Msg("could not create CPU profile")
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal().Err(err).Msg("could not start CPU profile")
		}
		defer func() {
			pprof.StopCPUProfile()
			f.Close()
		}()
	}

	log.Info().
		Int("positions", len(records)).
		Int("depth", depth).
		Int("repeat", *repeatFlag).
		Str("backend", backend.Name()).
		Str("perspective", perspective.String()).
		Msg("searchbench")

	sel := engine.Selector{Perspective: perspective}
	samples := make([]sample, len(records)*(*repeatFlag))

	startAll := time.Now()
	var g errgroup.Group
	g.SetLimit(*parallelFlag)
	for i, rec := range records {
		for r := 0; r < *repeatFlag; r++ {
			i, r, rec := i, r, rec
			g.Go(func() error {
				pos, err := backend.FromFEN(rec.FEN)
				if err != nil {
					return fmt.Errorf("%s: %w", recordName(rec), err)
				}
				s := run(sel, pos, depth, *verifyFlag)
				s.id = recordName(rec)
				if len(rec.BestMoves) > 0 || len(rec.AvoidMoves) > 0 {
					s.checked = true
					s.hit = (len(rec.BestMoves) == 0 || slices.Contains(rec.BestMoves, s.best)) &&
						!slices.Contains(rec.AvoidMoves, s.best)
				}
				samples[i*(*repeatFlag)+r] = s
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("search failed")
		return 1
	}
	totalElapsed := time.Since(startAll)

	code := 0
	if bad := report(os.Stdout, log, samples, totalElapsed); bad > 0 {
		log.Error().Int("mismatches", bad).Msg("verification failed")
		code = 1
	}

	if *memProfile != "" {
		f, err := os.Create(*memProfile)
		if err != nil {
			log.Error().Err(err).Msg("could not create memory profile")
			return 1
		}
		defer f.Close()

		runtime.GC()
		if err := pprof.WriteHeapProfile(f); err != nil {
			log.Error().Err(err).Msg("could not write memory profile")
			return 1
		}
	}
	return code
}

func loadPositions(epdPath, fen string) ([]rules.EPDRecord, error) {
	if epdPath == "" {
		if fen == "" {
			fen = rules.StartFEN
		}
		return []rules.EPDRecord{{Line: 1, FEN: fen}}, nil
	}
	f, err := os.Open(epdPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return rules.ParseEPD(f)
}

func recordName(rec rules.EPDRecord) string {
	if rec.ID != "" {
		return rec.ID
	}
	return fmt.Sprintf("line %d", rec.Line)
}

func run(sel engine.Selector, pos rules.Position, depth int, verify bool) sample {
	res := sel.Run(pos, depth)
	s := sample{stats: res.Stats, elapsed: res.Elapsed}
	if res.Found {
		s.best = res.Move.String()
	}
	if !verify {
		return s
	}
	for _, c := range res.Candidates {
		child := pos.Apply(c.Move)
		// The fixed perspective always searches root children as the
		// minimizer, whoever is to move there.
		maximizing := false
		if sel.Perspective == engine.PerspectiveSideToMove {
			maximizing = child.SideToMove() == rules.White
		}
		want := engine.Minimax(child, depth-1, maximizing)
		if c.Score != want {
			s.verify = fmt.Sprintf("%s: search %d, minimax %d", c.Move, c.Score, want)
			break
		}
	}
	return s
}

// report prints per-position lines and the summary to out and returns the
// number of minimax mismatches.
func report(out io.Writer, log zerolog.Logger, samples []sample, total time.Duration) int {
	if len(samples) == 0 {
		log.Warn().Msg("no positions to search")
		return 0
	}
	var (
		ms      = make([]float64, len(samples))
		nps     = make([]float64, len(samples))
		all     engine.Stats
		checked int
		hits    int
		bad     int
	)
	for i, s := range samples {
		ms[i] = float64(s.elapsed.Microseconds()) / 1000
		if secs := s.elapsed.Seconds(); secs > 0 {
			nps[i] = float64(s.stats.Nodes) / secs
		}
		all.Add(s.stats)
		if s.checked {
			checked++
			if s.hit {
				hits++
			}
		}
		if s.verify != "" {
			bad++
			log.Error().Str("position", s.id).Str("mismatch", s.verify).Msg("alpha-beta disagrees with minimax")
		}
		fmt.Fprintf(out, "%-20s bestmove %-6s nodes %-10d time %.2fms\n", s.id, s.best, s.stats.Nodes, ms[i])
	}

	msMean, msStd := stat.MeanStdDev(ms, nil)
	npsMean, npsStd := stat.MeanStdDev(nps, nil)
	fmt.Fprintf(out, "searches: %d  total time: %v\n", len(samples), total)
	fmt.Fprintf(out, "time/search: %.2fms ± %.2f  median %.2fms\n", msMean, msStd, median(ms))
	fmt.Fprintf(out, "nps: %.0f ± %.0f\n", npsMean, npsStd)
	for _, line := range all.InfoLines() {
		fmt.Fprintln(out, line)
	}
	if checked > 0 {
		fmt.Fprintf(out, "solved: %d/%d\n", hits, checked)
	}
	return bad
}

func median(xs []float64) float64 {
	sorted := slices.Clone(xs)
	slices.Sort(sorted)
	return stat.Quantile(0.5, stat.Empirical, sorted, nil)
}
