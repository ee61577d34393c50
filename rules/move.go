package rules

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
)

var (
	ErrBadMove     = errors.New("rules: malformed move")
	ErrIllegalMove = errors.New("rules: illegal move")
)

// Move identifies a move by origin, destination and optional promotion kind.
// Moves compare structurally with ==.
type Move struct {
	From      Square
	To        Square
	Promotion PieceKind
}

// NullMove is printed as "0000" in UCI.
var NullMove = Move{}

// IsNull reports whether m moves nothing.
func (m Move) IsNull() bool { return m.From == m.To }

// String renders m in UCI long algebraic form (e2e4, e7e8q).
func (m Move) String() string {
	if m.IsNull() {
		return "0000"
	}
	s := m.From.String() + m.To.String()
	if m.Promotion != NoPiece {
		s += string(m.Promotion.Letter())
	}
	return s
}

// promotionRank orders promotions queen first so that canonical move order
// lists the queen promotion ahead of the under-promotions.
var promotionRank = [...]int{NoPiece: 0, Queen: 1, Rook: 2, Bishop: 3, Knight: 4, Pawn: 5, King: 6}

// Less is the canonical move order every backend enumerates in: origin
// square, then destination, then promotion (queen first).
func (m Move) Less(o Move) bool {
	if m.From != o.From {
		return m.From < o.From
	}
	if m.To != o.To {
		return m.To < o.To
	}
	return promotionRank[m.Promotion] < promotionRank[o.Promotion]
}

// SortMoves puts moves into canonical order in place.
func SortMoves(moves []Move) {
	slices.SortFunc(moves, Move.Less)
}

// ParseMove converts a UCI string (e2e4, e7e8q, 0000) into a Move.
// Upper-case promotion letters are accepted.
func ParseMove(s string) (Move, error) {
	s = strings.TrimSpace(s)
	if s == "0000" {
		return NullMove, nil
	}
	if len(s) < 4 || len(s) > 5 {
		return NullMove, fmt.Errorf("%w: %q", ErrBadMove, s)
	}
	from, err := ParseSquare(strings.ToLower(s[0:2]))
	if err != nil {
		return NullMove, fmt.Errorf("%w: %q", ErrBadMove, s)
	}
	to, err := ParseSquare(strings.ToLower(s[2:4]))
	if err != nil {
		return NullMove, fmt.Errorf("%w: %q", ErrBadMove, s)
	}
	m := Move{From: from, To: to}
	if len(s) == 5 {
		m.Promotion = kindFromLetter(s[4])
		switch m.Promotion {
		case Queen, Rook, Bishop, Knight:
		default:
			return NullMove, fmt.Errorf("%w: bad promotion in %q", ErrBadMove, s)
		}
	}
	return m, nil
}

// Resolve matches a caller-supplied move against the legal moves of pos.
// A promotion given without a piece kind resolves to the queen promotion.
func Resolve(pos Position, m Move) (Move, error) {
	for _, lm := range pos.LegalMoves() {
		if lm.From != m.From || lm.To != m.To {
			continue
		}
		if lm.Promotion == m.Promotion {
			return lm, nil
		}
		if m.Promotion == NoPiece && lm.Promotion == Queen {
			return lm, nil
		}
	}
	return NullMove, fmt.Errorf("%w: %s in %s", ErrIllegalMove, m, pos.FEN())
}

// Play parses, resolves and applies a UCI move string.
func Play(pos Position, s string) (Position, Move, error) {
	m, err := ParseMove(s)
	if err != nil {
		return pos, NullMove, err
	}
	legal, err := Resolve(pos, m)
	if err != nil {
		return pos, NullMove, err
	}
	return pos.Apply(legal), legal, nil
}
