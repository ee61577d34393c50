package engine

import (
	"math"

	"chess-opponent/rules"
)

// =============================================================================
// SCORE CONSTANTS
// =============================================================================
const (
	// Infinity is the checkmate score. It is the largest finite int32, so
	// negating it never overflows.
	Infinity  int32 = math.MaxInt32
	DrawScore int32 = 0
)

// PieceValues is the material table, indexed by rules.PieceKind. The king
// carries no material; checkmate is scored before material is counted.
var PieceValues = [...]int32{
	rules.NoPiece: 0,
	rules.Pawn:    100,
	rules.Knight:  320,
	rules.Bishop:  330,
	rules.Rook:    500,
	rules.Queen:   900,
	rules.King:    0,
}

// Evaluate scores pos from White's point of view. A checkmate scores
// -Infinity when White is mated and +Infinity when Black is; any draw
// scores exactly zero; everything else is the material balance.
func Evaluate(pos rules.Position) int32 {
	return evaluate(pos, pos.Status())
}

func evaluate(pos rules.Position, st rules.Status) int32 {
	switch {
	case st == rules.Checkmate:
		if pos.SideToMove() == rules.White {
			return -Infinity
		}
		return Infinity
	case st.IsDraw():
		return DrawScore
	}
	return Material(pos)
}

// Material sums PieceValues over the board, White positive.
func Material(board rules.PieceReader) int32 {
	var score int32
	for sq := rules.Square(0); sq < rules.NoSquare; sq++ {
		pc := board.PieceAt(sq)
		if pc.IsEmpty() {
			continue
		}
		if pc.Color == rules.White {
			score += PieceValues[pc.Kind]
		} else {
			score -= PieceValues[pc.Kind]
		}
	}
	return score
}

// relative converts a White-relative score to the point of view of c.
func relative(score int32, c rules.Color) int32 {
	if c == rules.Black {
		return -score
	}
	return score
}
