package engine

import (
	"strings"

	"chess-opponent/rules"
)

// PVLine is a principal variation: the line the search expects both sides
// to play.
type PVLine struct {
	Moves []rules.Move
}

// Update makes the line m followed by child.
func (pv *PVLine) Update(m rules.Move, child PVLine) {
	pv.Moves = append(append(pv.Moves[:0], m), child.Moves...)
}

func (pv *PVLine) Clear() { pv.Moves = pv.Moves[:0] }

func (pv PVLine) Clone() PVLine {
	return PVLine{Moves: append([]rules.Move(nil), pv.Moves...)}
}

func (pv PVLine) String() string {
	var sb strings.Builder
	for i, m := range pv.Moves {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(m.String())
	}
	return sb.String()
}

// Search is the fixed-perspective alpha-beta search: White maximizes and
// Black minimizes whatever side is to move, and the returned score is
// White-relative. maximizing alternates by ply; it is never derived from
// the board.
//
// A depth of zero or less, or a terminal position, returns Evaluate(pos).
func Search(pos rules.Position, depth int, alpha, beta int32, maximizing bool) int32 {
	var s searcher
	return s.alphaBeta(pos, depth, alpha, beta, maximizing, nil)
}

// Negamax searches with the side to move as the maximizer and returns a
// score relative to that side. It visits the same tree as Search and agrees
// with it: Negamax(pos) == relative(Search(pos, maximizing=White to move)).
func Negamax(pos rules.Position, depth int, alpha, beta int32) int32 {
	var s searcher
	return s.negamax(pos, depth, alpha, beta, nil)
}

// searcher carries the counters of one search. Positions are never shared:
// every child is a fresh Apply of its parent.
type searcher struct {
	stats Stats
}

func (s *searcher) leaf(pos rules.Position, st rules.Status) int32 {
	s.stats.Leaves++
	return evaluate(pos, st)
}

func (s *searcher) alphaBeta(pos rules.Position, depth int, alpha, beta int32, maximizing bool, pv *PVLine) int32 {
	s.stats.Nodes++
	if pv != nil {
		pv.Clear()
	}

	st := pos.Status()
	if depth <= 0 || st.IsTerminal() {
		return s.leaf(pos, st)
	}
	moves := pos.LegalMoves()
	if len(moves) == 0 {
		return s.leaf(pos, st)
	}

	var childPV PVLine
	var line *PVLine
	if pv != nil {
		line = &childPV
	}

	if maximizing {
		best := -Infinity
		for i, m := range moves {
			score := s.alphaBeta(pos.Apply(m), depth-1, alpha, beta, false, line)
			if i == 0 || score > best {
				best = score
				if pv != nil {
					pv.Update(m, childPV)
				}
			}
			if score > alpha {
				alpha = score
			}
			if beta <= alpha {
				s.stats.Cutoffs++
				s.stats.Pruned += uint64(len(moves) - i - 1)
				break
			}
		}
		return best
	}

	best := Infinity
	for i, m := range moves {
		score := s.alphaBeta(pos.Apply(m), depth-1, alpha, beta, true, line)
		if i == 0 || score < best {
			best = score
			if pv != nil {
				pv.Update(m, childPV)
			}
		}
		if score < beta {
			beta = score
		}
		if beta <= alpha {
			s.stats.Cutoffs++
			s.stats.Pruned += uint64(len(moves) - i - 1)
			break
		}
	}
	return best
}

func (s *searcher) negamax(pos rules.Position, depth int, alpha, beta int32, pv *PVLine) int32 {
	s.stats.Nodes++
	if pv != nil {
		pv.Clear()
	}

	st := pos.Status()
	if depth <= 0 || st.IsTerminal() {
		return relative(s.leaf(pos, st), pos.SideToMove())
	}
	moves := pos.LegalMoves()
	if len(moves) == 0 {
		return relative(s.leaf(pos, st), pos.SideToMove())
	}

	var childPV PVLine
	var line *PVLine
	if pv != nil {
		line = &childPV
	}

	best := -Infinity
	for i, m := range moves {
		score := -s.negamax(pos.Apply(m), depth-1, -beta, -alpha, line)
		if i == 0 || score > best {
			best = score
			if pv != nil {
				pv.Update(m, childPV)
			}
		}
		if score > alpha {
			alpha = score
		}
		if beta <= alpha {
			s.stats.Cutoffs++
			s.stats.Pruned += uint64(len(moves) - i - 1)
			break
		}
	}
	return best
}
