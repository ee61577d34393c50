package main

import (
	"flag"
	"fmt"
	"os"
	"runtime/pprof"
	"time"

	"golang.org/x/exp/maps"
	"golang.org/x/sync/errgroup"

	"chess-opponent/rules"
	"chess-opponent/rules/backends"
)

func main() {
	fen := flag.String("fen", rules.StartFEN, "FEN string (defaults to initial position)")
	depth := flag.Int("depth", 0, "Perft depth (required)")
	backend := flag.String("backend", backends.Default, "rules backend to count with")
	divide := flag.Bool("divide", false, "Print per-move node counts at root")
	compare := flag.Bool("compare", false, "Count with every backend and report disagreements")
	repeat := flag.Int("repeat", 1, "Repeat perft N times and report aggregate (for steadier timings)")
	label := flag.String("label", "", "Optional label prefix for one-line output")
	cpuProf := flag.String("cpuprofile", "", "Write CPU profile to file during run")
	memProf := flag.String("memprofile", "", "Write heap profile to file after run")
	flag.Parse()

	if *depth <= 0 {
		fmt.Fprintln(os.Stderr, "-depth must be > 0")
		os.Exit(2)
	}

	if *compare {
		if !compareBackends(*fen, *depth) {
			os.Exit(1)
		}
		return
	}

	b, err := backends.Lookup(*backend)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	pos, err := b.FromFEN(*fen)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FromFEN error: %v\n", err)
		os.Exit(2)
	}

	if *divide {
		div := rules.PerftDivide(pos, *depth)
		moves := maps.Keys(div)
		rules.SortMoves(moves)
		var sum uint64
		for _, m := range moves {
			fmt.Printf("%s: %d\n", m, div[m])
			sum += div[m]
		}
		fmt.Printf("Total: %d\n", sum)
		return
	}

	if *cpuProf != "" {
		f, err := os.Create(*cpuProf)
		if err != nil {
			fmt.Fprintf(os.Stderr, "creating cpuprofile: %v\n", err)
			os.Exit(2)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "start cpu profile: %v\n", err)
			os.Exit(2)
		}
		defer func() {
			pprof.StopCPUProfile()
			_ = f.Close()
		}()
	}

	var totalNodes uint64
	start := time.Now()
	for i := 0; i < *repeat; i++ {
		totalNodes += rules.Perft(pos, *depth)
	}
	elapsed := time.Since(start)
	nps := float64(totalNodes) / elapsed.Seconds()

	// Label Backend Depth Nodes Time NPS
	fmt.Printf("%s \t%s \t%d \t\t%d \t\t%s \t%.0f\n", *label, b.Name(), *depth, totalNodes, elapsed, nps)

	if *memProf != "" {
		f, err := os.Create(*memProf)
		if err != nil {
			fmt.Fprintf(os.Stderr, "creating memprofile: %v\n", err)
			os.Exit(2)
		}
		if err := pprof.WriteHeapProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "write heap profile: %v\n", err)
			os.Exit(2)
		}
		_ = f.Close()
	}
}

// compareBackends divides fen on every backend concurrently and prints the
// root moves whose counts differ. It reports whether all backends agree.
func compareBackends(fen string, depth int) bool {
	all := backends.All()
	divs := make([]map[rules.Move]uint64, len(all))

	var g errgroup.Group
	for i, b := range all {
		i, b := i, b
		g.Go(func() error {
			pos, err := b.FromFEN(fen)
			if err != nil {
				return fmt.Errorf("%s: %w", b.Name(), err)
			}
			divs[i] = rules.PerftDivide(pos, depth)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	seen := make(map[rules.Move]struct{})
	for _, d := range divs {
		for m := range d {
			seen[m] = struct{}{}
		}
	}
	moves := maps.Keys(seen)
	rules.SortMoves(moves)

	agree := true
	for _, m := range moves {
		counts := make([]uint64, len(all))
		for i, d := range divs {
			counts[i] = d[m]
		}
		if !allEqual(counts) {
			agree = false
			fmt.Printf("%s:", m)
			for i, b := range all {
				fmt.Printf(" %s=%d", b.Name(), counts[i])
			}
			fmt.Println()
		}
	}
	for i, b := range all {
		var sum uint64
		for _, n := range divs[i] {
			sum += n
		}
		fmt.Printf("%s total: %d\n", b.Name(), sum)
	}
	return agree
}

func allEqual(counts []uint64) bool {
	for _, n := range counts[1:] {
		if n != counts[0] {
			return false
		}
	}
	return true
}
