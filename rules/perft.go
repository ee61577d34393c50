package rules

// Perft counts the leaf nodes of the legal move tree to the given depth.
func Perft(pos Position, depth int) uint64 {
	if depth <= 0 {
		return 1
	}
	moves := pos.LegalMoves()
	if depth == 1 {
		return uint64(len(moves))
	}
	var nodes uint64
	for _, m := range moves {
		nodes += Perft(pos.Apply(m), depth-1)
	}
	return nodes
}

// PerftDivide returns the perft count below each root move.
func PerftDivide(pos Position, depth int) map[Move]uint64 {
	out := make(map[Move]uint64)
	if depth <= 0 {
		return out
	}
	for _, m := range pos.LegalMoves() {
		out[m] = Perft(pos.Apply(m), depth-1)
	}
	return out
}
