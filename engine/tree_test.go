package engine

import (
	"math/rand"

	"chess-opponent/rules"
)

// treePos is a hand-built game tree. Leaf scores are encoded as pawns so
// the real evaluator can score them.
type treePos struct {
	side     rules.Color
	pawns    int // White-relative material, in pawns
	status   rules.Status
	children []*treePos
}

func leaf(pawns int) *treePos { return &treePos{pawns: pawns} }

// tree builds an inner node for side, fixing the side of every descendant.
func tree(side rules.Color, children ...*treePos) *treePos {
	n := &treePos{side: side, children: children}
	n.setSide(side)
	return n
}

func (n *treePos) setSide(c rules.Color) {
	n.side = c
	for _, ch := range n.children {
		ch.setSide(c.Opponent())
	}
}

// randomTree builds a full tree of the given depth with leaf scores in
// [-20, 20] pawns.
func randomTree(rng *rand.Rand, depth, branching int) *treePos {
	if depth == 0 {
		return leaf(rng.Intn(41) - 20)
	}
	n := &treePos{}
	for i := 0; i < 1+rng.Intn(branching); i++ {
		n.children = append(n.children, randomTree(rng, depth-1, branching))
	}
	return n
}

func treeMove(i int) rules.Move { return rules.Move{From: 0, To: rules.Square(i + 1)} }

func (n *treePos) LegalMoves() []rules.Move {
	if n.status.IsTerminal() {
		return nil
	}
	moves := make([]rules.Move, len(n.children))
	for i := range n.children {
		moves[i] = treeMove(i)
	}
	return moves
}

func (n *treePos) Apply(m rules.Move) rules.Position {
	i := int(m.To) - 1
	if m.From != 0 || i < 0 || i >= len(n.children) {
		panic("illegal move applied")
	}
	return n.children[i]
}

func (n *treePos) Status() rules.Status    { return n.status }
func (n *treePos) IsCheckmate() bool       { return n.status == rules.Checkmate }
func (n *treePos) IsDraw() bool            { return n.status.IsDraw() }
func (n *treePos) SideToMove() rules.Color { return n.side }
func (n *treePos) FEN() string             { return "tree" }

func (n *treePos) PieceAt(sq rules.Square) rules.Piece {
	count, color := n.pawns, rules.White
	if count < 0 {
		count, color = -count, rules.Black
	}
	if int(sq) < count {
		return rules.Piece{Kind: rules.Pawn, Color: color}
	}
	return rules.Piece{}
}
