package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/exp/slices"

	"chess-opponent/rules"
)

// Perspective decides who the root maximizes for.
type Perspective uint8

const (
	// PerspectiveWhite always maximizes White's score, even when Black is
	// to move. This keeps the historical behaviour of the opponent, which
	// plays poorly as Black.
	PerspectiveWhite Perspective = iota
	// PerspectiveSideToMove maximizes for whoever is to move (negamax).
	PerspectiveSideToMove
)

func (p Perspective) String() string {
	if p == PerspectiveSideToMove {
		return "side-to-move"
	}
	return "white"
}

// ParsePerspective accepts "white" or "side-to-move" (also "side", "negamax").
func ParsePerspective(s string) (Perspective, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "white", "fixed":
		return PerspectiveWhite, nil
	case "side-to-move", "side", "negamax":
		return PerspectiveSideToMove, nil
	}
	return PerspectiveWhite, fmt.Errorf("engine: unknown perspective %q", s)
}

// ScoredMove is a root move with its White-relative score.
type ScoredMove struct {
	Move  rules.Move
	Score int32
}

// Result describes one move decision.
type Result struct {
	Move  rules.Move
	Found bool  // false when the position has no legal moves
	Score int32 // White-relative score of Move
	Depth int
	Mover rules.Color
	PV    PVLine

	// Candidates holds every root move in enumeration order.
	Candidates []ScoredMove

	Stats   Stats
	Elapsed time.Duration
}

// MoverScore is Score from the point of view of the side to move.
func (r Result) MoverScore() int32 { return relative(r.Score, r.Mover) }

// Ranked returns the candidates best-first for the side to move. Equal
// scores keep enumeration order.
func (r Result) Ranked() []ScoredMove {
	ranked := slices.Clone(r.Candidates)
	slices.SortStableFunc(ranked, func(a, b ScoredMove) bool {
		return relative(a.Score, r.Mover) > relative(b.Score, r.Mover)
	})
	return ranked
}

// Selector chooses moves. The zero value reproduces the historical
// opponent: fixed White perspective, no logging.
type Selector struct {
	Perspective Perspective
	Logger      zerolog.Logger
}

// SelectMove picks a move for pos using the depth of tier. It returns false
// when pos has no legal moves.
func SelectMove(pos rules.Position, tier Tier) (rules.Move, bool) {
	return Selector{}.SelectMoveForTier(pos, tier)
}

// SelectMove searches pos to depth plies and returns the chosen move.
func (s Selector) SelectMove(pos rules.Position, depth int) (rules.Move, bool) {
	r := s.Run(pos, depth)
	return r.Move, r.Found
}

// SelectMoveForTier is SelectMove with the depth of t. It panics on an
// unknown tier.
func (s Selector) SelectMoveForTier(pos rules.Position, t Tier) (rules.Move, bool) {
	return s.SelectMove(pos, DepthFor(t))
}

// Run searches every root move with a full window and keeps the first move
// with a strictly better score, so ties go to the earliest move in
// enumeration order.
func (s Selector) Run(pos rules.Position, depth int) Result {
	start := time.Now()
	mover := pos.SideToMove()
	res := Result{Depth: depth, Mover: mover}

	moves := pos.LegalMoves()
	if len(moves) == 0 {
		res.Score = Evaluate(pos)
		res.Elapsed = time.Since(start)
		s.Logger.Debug().Str("fen", pos.FEN()).Msg("no legal moves")
		return res
	}

	var sr searcher
	var line PVLine
	best := -Infinity
	res.Candidates = make([]ScoredMove, 0, len(moves))
	for i, m := range moves {
		child := pos.Apply(m)
		var score, white int32
		if s.Perspective == PerspectiveSideToMove {
			score = -sr.negamax(child, depth-1, -Infinity, Infinity, &line)
			white = relative(score, mover)
		} else {
			score = sr.alphaBeta(child, depth-1, -Infinity, Infinity, false, &line)
			white = score
		}
		res.Candidates = append(res.Candidates, ScoredMove{Move: m, Score: white})

		if i == 0 || score > best {
			best = score
			res.Move = m
			res.Score = white
			res.PV.Update(m, line)
		}
	}
	res.Found = true
	res.Stats = sr.stats
	res.Elapsed = time.Since(start)

	if e := s.Logger.Debug(); e.Enabled() {
		e.Str("fen", pos.FEN()).
			Int("depth", depth).
			Str("perspective", s.Perspective.String()).
			Str("move", res.Move.String()).
			Int32("score", res.Score).
			Object("stats", res.Stats).
			Dur("elapsed", res.Elapsed).
			Msg("move selected")
	}
	return res
}

// Analyze returns every root move of pos with its White-relative score, in
// enumeration order.
func (s Selector) Analyze(pos rules.Position, depth int) []ScoredMove {
	return s.Run(pos, depth).Candidates
}

// RunTier is Run with the depth of t.
func (s Selector) RunTier(pos rules.Position, t Tier) Result {
	return s.Run(pos, DepthFor(t))
}
