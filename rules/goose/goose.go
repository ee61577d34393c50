// Package goose implements the rules contract on top of the GooseEngineMG
// move generator.
package goose

import (
	"fmt"

	gm "github.com/Oliverans/GooseEngineMG/goosemg"

	"chess-opponent/rules"
)

// Backend creates goosemg backed positions.
type Backend struct{}

func (Backend) Name() string { return "goose" }

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
	board, err := gm.ParseFEN(norm)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", rules.ErrBadFEN, err)
	}
	return &Position{board: *board}, nil
}

// Position owns its own board copy. history holds the Zobrist keys of every
// earlier position of the game, oldest first.
type Position struct {
	board   gm.Board
	history []uint64
}

// scratch returns a private copy of the board; goosemg methods take a
// pointer receiver and we never hand out our own.
func (p *Position) scratch() *gm.Board {
	b := p.board
	return &b
}

func (p *Position) LegalMoves() []rules.Move {
	gen := p.scratch().GenerateMoves()
	moves := make([]rules.Move, len(gen))
	for i, m := range gen {
		moves[i] = fromGoose(m)
	}
	rules.SortMoves(moves)
	return moves
}

func (p *Position) Apply(m rules.Move) rules.Position {
	next := &Position{board: p.board}
	for _, gmv := range next.board.GenerateMoves() {
		if fromGoose(gmv) != m {
			continue
		}
		if ok, _ := next.board.MakeMove(gmv); !ok {
			break
		}
		n := len(p.history)
		next.history = append(p.history[:n:n], p.board.Hash())
		return next
	}
	panic(fmt.Sprintf("goose: illegal move %s applied to %s", m, p.FEN()))
}

func (p *Position) Status() rules.Status {
	b := p.scratch()
	return rules.Classify(rules.Conditions{
		InCheck:              b.InCheck(b.SideToMove()),
		HasMoves:             b.HasLegalMoves(),
		InsufficientMaterial: rules.HasInsufficientMaterial(p),
		Repetition:           b.IsDrawByRepetition(p.history),
		FiftyMove:            b.IsDrawBy50(),
	})
}

func (p *Position) IsCheckmate() bool { return p.scratch().InCheckmate() }

func (p *Position) IsDraw() bool { return p.Status().IsDraw() }

func (p *Position) SideToMove() rules.Color {
	if p.board.SideToMove() == gm.White {
		return rules.White
	}
	return rules.Black
}

func (p *Position) PieceAt(sq rules.Square) rules.Piece {
	pc := p.scratch().PieceAt(gm.Square(sq))
	if pc == gm.NoPiece {
		return rules.Piece{}
	}
	color := rules.White
	if pc.Color() == gm.Black {
		color = rules.Black
	}
	return rules.Piece{Kind: rules.PieceKind(pc.Type()), Color: color}
}

func (p *Position) FEN() string { return p.scratch().ToFEN() }

func fromGoose(m gm.Move) rules.Move {
	return rules.Move{
		From:      rules.Square(m.From()),
		To:        rules.Square(m.To()),
		Promotion: rules.PieceKind(m.PromotionPieceType()),
	}
}
