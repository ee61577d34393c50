// Package rules is the contract between the move-selection engine and the
// chess rules it plays by. The engine never generates or validates moves
// itself; it asks a Position.
//
// Backends live in the subpackages (goose, dragon, notnil). Every backend
// enumerates legal moves in the canonical order of Move.Less, so tie-breaks
// made by the engine do not depend on which backend is plugged in.
package rules

import (
	"errors"
	"fmt"
	"strings"
)

// StartFEN is the standard initial position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

var ErrBadFEN = errors.New("rules: invalid FEN")

// Position is an immutable view of a game state.
//
// Apply returns a new Position and leaves the receiver untouched, so sibling
// branches of a search never observe each other. Apply panics when m is not
// one of LegalMoves(); passing an unchecked move is a programming error. Use
// Resolve or Play for caller input.
type Position interface {
	LegalMoves() []Move
	Apply(m Move) Position
	IsCheckmate() bool
	IsDraw() bool
	Status() Status
	SideToMove() Color
	PieceAt(sq Square) Piece
	FEN() string
}

// Backend creates positions for one move-generator implementation.
type Backend interface {
	Name() string
	StartPosition() Position
	FromFEN(fen string) (Position, error)
}

// Status classifies a position.
type Status uint8

const (
	Ongoing Status = iota
	Checkmate
	Stalemate
	InsufficientMaterial
	Repetition
	FiftyMove
)

// IsDraw reports whether s is one of the drawn states.
func (s Status) IsDraw() bool { return s >= Stalemate }

// IsTerminal reports whether the game is over.
func (s Status) IsTerminal() bool { return s != Ongoing }

func (s Status) String() string {
	switch s {
	case Ongoing:
		return "ongoing"
	case Checkmate:
		return "checkmate"
	case Stalemate:
		return "stalemate"
	case InsufficientMaterial:
		return "insufficient_material"
	case Repetition:
		return "repetition"
	case FiftyMove:
		return "fifty_move"
	}
	return "unknown"
}

// Conditions are the raw facts a backend reports about a position.
type Conditions struct {
	InCheck              bool
	HasMoves             bool
	InsufficientMaterial bool
	Repetition           bool
	FiftyMove            bool
}

// Classify turns backend facts into a Status. Checkmate wins over every
// draw condition; the draws are checked in a fixed order.
func Classify(c Conditions) Status {
	switch {
	case !c.HasMoves && c.InCheck:
		return Checkmate
	case !c.HasMoves:
		return Stalemate
	case c.InsufficientMaterial:
		return InsufficientMaterial
	case c.Repetition:
		return Repetition
	case c.FiftyMove:
		return FiftyMove
	}
	return Ongoing
}

// NormalizeFEN checks the structure of fen and fills in missing move
// counters, so backends with strict parsers all see six fields.
func NormalizeFEN(fen string) (string, error) {
	fields := strings.Fields(fen)
	switch len(fields) {
	case 4:
		fields = append(fields, "0", "1")
	case 6:
	default:
		return "", fmt.Errorf("%w: want 4 or 6 fields, got %d", ErrBadFEN, len(fields))
	}

	ranks := strings.Split(fields[0], "/")
	if len(ranks) != 8 {
		return "", fmt.Errorf("%w: want 8 ranks, got %d", ErrBadFEN, len(ranks))
	}
	kings := [2]int{}
	for i, rank := range ranks {
		width := 0
		for j := 0; j < len(rank); j++ {
			ch := rank[j]
			switch {
			case ch >= '1' && ch <= '8':
				width += int(ch - '0')
			case kindFromLetter(ch) != NoPiece:
				width++
				if ch == 'K' {
					kings[White]++
				} else if ch == 'k' {
					kings[Black]++
				}
			default:
				return "", fmt.Errorf("%w: bad piece %q on rank %d", ErrBadFEN, ch, 8-i)
			}
		}
		if width != 8 {
			return "", fmt.Errorf("%w: rank %d has %d files", ErrBadFEN, 8-i, width)
		}
	}
	if kings[White] != 1 || kings[Black] != 1 {
		return "", fmt.Errorf("%w: need exactly one king per side", ErrBadFEN)
	}
	if fields[1] != "w" && fields[1] != "b" {
		return "", fmt.Errorf("%w: side to move %q", ErrBadFEN, fields[1])
	}
	if strings.Trim(fields[2], "KQkq-") != "" {
		return "", fmt.Errorf("%w: castling field %q", ErrBadFEN, fields[2])
	}
	if fields[3] != "-" {
		if _, err := ParseSquare(fields[3]); err != nil {
			return "", fmt.Errorf("%w: en passant field %q", ErrBadFEN, fields[3])
		}
	}
	for _, n := range fields[4:] {
		for j := 0; j < len(n); j++ {
			if n[j] < '0' || n[j] > '9' {
				return "", fmt.Errorf("%w: counter %q", ErrBadFEN, n)
			}
		}
	}
	return strings.Join(fields, " "), nil
}
