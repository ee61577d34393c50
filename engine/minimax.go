package engine

import "chess-opponent/rules"

// Minimax is the unpruned search over the same tree as Search. It exists to
// check that pruning never changes a value, and for the searchbench
// -verify mode.
func Minimax(pos rules.Position, depth int, maximizing bool) int32 {
	st := pos.Status()
	if depth <= 0 || st.IsTerminal() {
		return evaluate(pos, st)
	}
	moves := pos.LegalMoves()
	if len(moves) == 0 {
		return evaluate(pos, st)
	}

	best := Infinity
	if maximizing {
		best = -Infinity
	}
	for _, m := range moves {
		score := Minimax(pos.Apply(m), depth-1, !maximizing)
		if maximizing && score > best || !maximizing && score < best {
			best = score
		}
	}
	return best
}
