// Package dragon implements the rules contract on top of dragontoothmg.
package dragon

import (
	"fmt"

	"github.com/dylhunn/dragontoothmg"

	"chess-opponent/rules"
)

// Backend creates dragontoothmg backed positions.
type Backend struct{}

func (Backend) Name() string { return "dragon" }

func (b Backend) StartPosition() rules.Position {
	pos, err := b.FromFEN(rules.StartFEN)
	if err != nil {
		panic(err)
	}
	return pos
}

func (Backend) FromFEN(fen string) (pos rules.Position, err error) {
	norm, err := rules.NormalizeFEN(fen)
	if err != nil {
		return nil, err
	}
	// ParseFen panics on input it cannot index into.
	defer func() {
		if r := recover(); r != nil {
			pos, err = nil, fmt.Errorf("%w: %v", rules.ErrBadFEN, r)
		}
	}()
	return &Position{board: dragontoothmg.ParseFen(norm)}, nil
}

// Position is a dragontoothmg board plus the hashes of the positions that
// led to it.
type Position struct {
	board   dragontoothmg.Board
	history []uint64
}

func (p *Position) scratch() *dragontoothmg.Board {
	b := p.board
	return &b
}

func (p *Position) LegalMoves() []rules.Move {
	gen := p.scratch().GenerateLegalMoves()
	moves := make([]rules.Move, len(gen))
	for i := range gen {
		moves[i] = fromDragon(&gen[i])
	}
	rules.SortMoves(moves)
	return moves
}

func (p *Position) Apply(m rules.Move) rules.Position {
	next := &Position{board: p.board}
	gen := next.board.GenerateLegalMoves()
	for i := range gen {
		if fromDragon(&gen[i]) != m {
			continue
		}
		next.board.Apply(gen[i])
		n := len(p.history)
		next.history = append(p.history[:n:n], p.board.Hash())
		return next
	}
	panic(fmt.Sprintf("dragon: illegal move %s applied to %s", m, p.FEN()))
}

func (p *Position) Status() rules.Status {
	b := p.scratch()
	return rules.Classify(rules.Conditions{
		InCheck:              b.OurKingInCheck(),
		HasMoves:             len(b.GenerateLegalMoves()) > 0,
		InsufficientMaterial: rules.HasInsufficientMaterial(p),
		Repetition:           p.repeated(),
		FiftyMove:            b.Halfmoveclock >= 100,
	})
}

// repeated reports a threefold repetition: the current hash already occurs
// twice in the history.
func (p *Position) repeated() bool {
	key := p.scratch().Hash()
	seen := 0
	for _, h := range p.history {
		if h == key {
			seen++
			if seen >= 2 {
				return true
			}
		}
	}
	return false
}

func (p *Position) IsCheckmate() bool { return p.Status() == rules.Checkmate }

func (p *Position) IsDraw() bool { return p.Status().IsDraw() }

func (p *Position) SideToMove() rules.Color {
	if p.board.Wtomove {
		return rules.White
	}
	return rules.Black
}

func (p *Position) PieceAt(sq rules.Square) rules.Piece {
	bit := uint64(1) << uint(sq)
	if kind := kindOn(&p.board.White, bit); kind != rules.NoPiece {
		return rules.Piece{Kind: kind, Color: rules.White}
	}
	if kind := kindOn(&p.board.Black, bit); kind != rules.NoPiece {
		return rules.Piece{Kind: kind, Color: rules.Black}
	}
	return rules.Piece{}
}

func kindOn(bb *dragontoothmg.Bitboards, bit uint64) rules.PieceKind {
	switch {
	case bb.All&bit == 0:
		return rules.NoPiece
	case bb.Pawns&bit != 0:
		return rules.Pawn
	case bb.Knights&bit != 0:
		return rules.Knight
	case bb.Bishops&bit != 0:
		return rules.Bishop
	case bb.Rooks&bit != 0:
		return rules.Rook
	case bb.Queens&bit != 0:
		return rules.Queen
	case bb.Kings&bit != 0:
		return rules.King
	}
	return rules.NoPiece
}

func (p *Position) FEN() string { return p.scratch().ToFen() }

func fromDragon(m *dragontoothmg.Move) rules.Move {
	return rules.Move{
		From:      rules.Square(m.From()),
		To:        rules.Square(m.To()),
		Promotion: promotionKind(m.Promote()),
	}
}

func promotionKind(pc dragontoothmg.Piece) rules.PieceKind {
	switch pc {
	case dragontoothmg.Knight:
		return rules.Knight
	case dragontoothmg.Bishop:
		return rules.Bishop
	case dragontoothmg.Rook:
		return rules.Rook
	case dragontoothmg.Queen:
		return rules.Queen
	}
	return rules.NoPiece
}
