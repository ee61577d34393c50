package main

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
)

// run executes a command and prints its combined output. Returns exit code.
func run(name string, args ...string) int {
	cmd := exec.Command(name, args...)
	cmd.Env = os.Environ()
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	fmt.Print(out.String())
	if err == nil {
		return 0
	}
	if ee, ok := err.(*exec.ExitError); ok {
		return ee.ExitCode()
	}
	fmt.Fprintf(os.Stderr, "error running %s: %v\n", name, err)
	return 1
}

const kiwipete = "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1"

// Runs the bench/ package with benchmem, then one-line perft and search
// timings per backend. Usage: go run ./cmd/benchrun
func main() {
	fmt.Println("Columns: BENCHMARK  N  ns/op  B/op  allocs/op")
	if code := run("go", "test", "./bench", "-run", "^$", "-bench", ".", "-benchmem", "-benchtime=1s"); code != 0 {
		os.Exit(code)
	}

	fmt.Println("\nPerft Performance:")
	fmt.Println("TEST \t\tBackend \tDepth \t\tNodes \t\tTime \tNPS")
	for _, backend := range []string{"goose", "dragon", "notnil"} {
		for _, depth := range []string{"3", "4"} {
			run("go", "run", "./cmd/perft", "-backend", backend, "-depth", depth, "-label", "Initial")
		}
		run("go", "run", "./cmd/perft", "-backend", backend, "-fen", kiwipete, "-depth", "3", "-label", "Kiwipete")
	}

	fmt.Println("\nBackend agreement:")
	run("go", "run", "./cmd/perft", "-compare", "-fen", kiwipete, "-depth", "3")

	fmt.Println("\nSearch:")
	for _, tier := range []string{"beginner", "intermediate", "advanced", "expert"} {
		run("go", "run", "./cmd/searchbench", "-tier", tier, "-verify")
	}
	os.Exit(0)
}
