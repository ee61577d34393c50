package rules

import (
	"errors"
	"fmt"
)

// Color identifies a side.
type Color uint8

const (
	White Color = 0
	Black Color = 1
)

// Opponent returns the other side.
func (c Color) Opponent() Color { return c ^ 1 }

func (c Color) String() string {
	if c == White {
		return "white"
	}
	return "black"
}

// ParseColor accepts "white"/"w" and "black"/"b".
func ParseColor(s string) (Color, error) {
	switch s {
	case "white", "w":
		return White, nil
	case "black", "b":
		return Black, nil
	}
	return White, fmt.Errorf("rules: unknown color %q", s)
}

// PieceKind is a colorless piece type. The numbering matches the move
// generators we wrap (pawn = 1 ... king = 6).
type PieceKind uint8

const (
	NoPiece PieceKind = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
)

var pieceLetters = [...]byte{NoPiece: '.', Pawn: 'p', Knight: 'n', Bishop: 'b', Rook: 'r', Queen: 'q', King: 'k'}

// Letter returns the lowercase FEN letter of the kind.
func (k PieceKind) Letter() byte {
	if int(k) >= len(pieceLetters) {
		return '?'
	}
	return pieceLetters[k]
}

func (k PieceKind) String() string {
	switch k {
	case Pawn:
		return "pawn"
	case Knight:
		return "knight"
	case Bishop:
		return "bishop"
	case Rook:
		return "rook"
	case Queen:
		return "queen"
	case King:
		return "king"
	}
	return "none"
}

func kindFromLetter(ch byte) PieceKind {
	switch ch {
	case 'p', 'P':
		return Pawn
	case 'n', 'N':
		return Knight
	case 'b', 'B':
		return Bishop
	case 'r', 'R':
		return Rook
	case 'q', 'Q':
		return Queen
	case 'k', 'K':
		return King
	}
	return NoPiece
}

// Piece is a kind with an owner. The zero value is an empty square.
type Piece struct {
	Kind  PieceKind
	Color Color
}

// IsEmpty reports whether p is the empty square marker.
func (p Piece) IsEmpty() bool { return p.Kind == NoPiece }

// Square indexes the board from a1 = 0 to h8 = 63.
type Square uint8

// NoSquare marks an absent square.
const NoSquare Square = 64

var ErrBadSquare = errors.New("rules: invalid square")

// NewSquare builds a square from zero-based file and rank.
func NewSquare(file, rank int) Square { return Square(rank*8 + file) }

func (s Square) File() int { return int(s) % 8 }
func (s Square) Rank() int { return int(s) / 8 }

// IsLight reports whether s is a light square (a1 is dark).
func (s Square) IsLight() bool { return (s.File()+s.Rank())%2 == 1 }

func (s Square) String() string {
	if s >= NoSquare {
		return "-"
	}
	return string([]byte{'a' + byte(s.File()), '1' + byte(s.Rank())})
}

// ParseSquare converts algebraic coordinates ("e4") into a Square.
func ParseSquare(alg string) (Square, error) {
	if len(alg) != 2 {
		return NoSquare, fmt.Errorf("%w: %q", ErrBadSquare, alg)
	}
	file, rank := alg[0], alg[1]
	if file < 'a' || file > 'h' || rank < '1' || rank > '8' {
		return NoSquare, fmt.Errorf("%w: %q", ErrBadSquare, alg)
	}
	return NewSquare(int(file-'a'), int(rank-'1')), nil
}
