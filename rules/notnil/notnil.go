// Package notnil implements the rules contract on top of
// github.com/notnil/chess.
package notnil

import (
	"fmt"

	"github.com/notnil/chess"
	"golang.org/x/exp/slices"

	"chess-opponent/rules"
)

// Backend creates notnil/chess backed positions.
type Backend struct{}

func (Backend) Name() string { return "notnil" }

func (b Backend) StartPosition() rules.Position {
	pos, err := b.FromFEN(rules.StartFEN)
	if err != nil {
		panic(err)
	}
	return pos
}

func (Backend) FromFEN(fen string) (rules.Position, error) {
	norm, err := rules.NormalizeFEN(fen)
	if err != nil {
		return nil, err
	}
	opt, err := chess.FEN(norm)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", rules.ErrBadFEN, err)
	}
	return newPosition(chess.NewGame(opt)), nil
}

type candidate struct {
	move  rules.Move
	valid *chess.Move
}

// Position wraps a game whose move list carries the repetition history.
// The legal moves and the status are computed once, at construction, since
// chess.Game caches lazily and Positions are shared between goroutines.
type Position struct {
	game       *chess.Game
	candidates []candidate
	status     rules.Status
}

func newPosition(g *chess.Game) *Position {
	valid := g.ValidMoves()
	p := &Position{game: g, candidates: make([]candidate, len(valid))}
	for i, m := range valid {
		p.candidates[i] = candidate{move: fromNotnil(m), valid: m}
	}
	slices.SortFunc(p.candidates, func(a, b candidate) bool { return a.move.Less(b.move) })

	method := g.Method()
	draws := g.EligibleDraws()
	p.status = rules.Classify(rules.Conditions{
		InCheck:              g.Position().Status() == chess.Checkmate,
		HasMoves:             len(valid) > 0,
		InsufficientMaterial: rules.HasInsufficientMaterial(p),
		Repetition:           method == chess.FivefoldRepetition || slices.Contains(draws, chess.ThreefoldRepetition),
		FiftyMove:            method == chess.SeventyFiveMoveRule || slices.Contains(draws, chess.FiftyMoveRule),
	})
	return p
}

func (p *Position) LegalMoves() []rules.Move {
	moves := make([]rules.Move, len(p.candidates))
	for i, c := range p.candidates {
		moves[i] = c.move
	}
	return moves
}

func (p *Position) Apply(m rules.Move) rules.Position {
	for _, c := range p.candidates {
		if c.move != m {
			continue
		}
		g := p.game.Clone()
		if err := g.Move(c.valid); err != nil {
			break
		}
		return newPosition(g)
	}
	panic(fmt.Sprintf("notnil: illegal move %s applied to %s", m, p.FEN()))
}

func (p *Position) Status() rules.Status { return p.status }

func (p *Position) IsCheckmate() bool { return p.status == rules.Checkmate }

func (p *Position) IsDraw() bool { return p.status.IsDraw() }

func (p *Position) SideToMove() rules.Color {
	if p.game.Position().Turn() == chess.Black {
		return rules.Black
	}
	return rules.White
}

func (p *Position) PieceAt(sq rules.Square) rules.Piece {
	pc := p.game.Position().Board().Piece(chess.Square(sq))
	kind := kindOf(pc.Type())
	if kind == rules.NoPiece {
		return rules.Piece{}
	}
	color := rules.White
	if pc.Color() == chess.Black {
		color = rules.Black
	}
	return rules.Piece{Kind: kind, Color: color}
}

func (p *Position) FEN() string { return p.game.Position().String() }

func kindOf(pt chess.PieceType) rules.PieceKind {
	switch pt {
	case chess.Pawn:
		return rules.Pawn
	case chess.Knight:
		return rules.Knight
	case chess.Bishop:
		return rules.Bishop
	case chess.Rook:
		return rules.Rook
	case chess.Queen:
		return rules.Queen
	case chess.King:
		return rules.King
	}
	return rules.NoPiece
}

func fromNotnil(m *chess.Move) rules.Move {
	return rules.Move{
		From:      rules.Square(m.S1()),
		To:        rules.Square(m.S2()),
		Promotion: kindOf(m.Promo()),
	}
}
