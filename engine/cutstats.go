package engine

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Stats counts the work one search did.
type Stats struct {
	Nodes   uint64 // positions visited, root children included
	Leaves  uint64 // positions handed to the evaluator
	Cutoffs uint64 // beta <= alpha breaks
	Pruned  uint64 // sibling moves skipped by those breaks
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.Nodes += o.Nodes
	s.Leaves += o.Leaves
	s.Cutoffs += o.Cutoffs
	s.Pruned += o.Pruned
}

// MarshalZerologObject lets Stats be logged with Object("stats", s).
func (s Stats) MarshalZerologObject(e *zerolog.Event) {
	e.Uint64("nodes", s.Nodes).
		Uint64("leaves", s.Leaves).
		Uint64("cutoffs", s.Cutoffs).
		Uint64("pruned", s.Pruned)
}

// InfoLines renders s as UCI "info string" lines.
func (s Stats) InfoLines() []string {
	return []string{
		"info string Cut statistics:",
		fmt.Sprintf("info string   Nodes: %d", s.Nodes),
		fmt.Sprintf("info string   Leaves: %d", s.Leaves),
		fmt.Sprintf("info string   Beta cutoffs: %d", s.Cutoffs),
		fmt.Sprintf("info string   Pruned moves: %d", s.Pruned),
	}
}
