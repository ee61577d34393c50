package engine

import (
	"fmt"
	"strings"
)

// MateOrCPScore renders a score for UCI "info score". The score is relative
// to the side to move. Checkmate scores carry no distance, so plies is the
// length of the line that reaches the mate.
func MateOrCPScore(score int32, plies int) string {
	if plies < 0 {
		plies = 0
	}
	mateInN := (plies + 1) / 2
	switch {
	case score >= Infinity:
		return fmt.Sprintf("mate %d", mateInN)
	case score <= -Infinity:
		return fmt.Sprintf("mate %d", -mateInN)
	}
	return fmt.Sprintf("cp %d", score)
}

// InfoLine is the UCI "info" line summarizing r, scored for the side that
// was to move at the root.
func InfoLine(r Result) string {
	elapsed := r.Elapsed.Milliseconds()
	if elapsed == 0 {
		elapsed = 1
	}
	nps := r.Stats.Nodes * 1000 / uint64(elapsed)

	var sb strings.Builder
	fmt.Fprintf(&sb, "info depth %d score %s nodes %d nps %d time %d",
		r.Depth, MateOrCPScore(r.MoverScore(), len(r.PV.Moves)), r.Stats.Nodes, nps, elapsed)
	if len(r.PV.Moves) > 0 {
		sb.WriteString(" pv ")
		sb.WriteString(r.PV.String())
	}
	return sb.String()
}
