package rules

// PieceReader is the part of a Position needed to inspect the board.
type PieceReader interface {
	PieceAt(sq Square) Piece
}

// HasInsufficientMaterial reports a dead position: king against king, a
// single minor piece against a bare king, or any number of bishops that all
// stand on squares of one colour.
func HasInsufficientMaterial(b PieceReader) bool {
	total := 0
	minors := 0
	bishops := 0
	lightBishops := 0
	for sq := Square(0); sq < NoSquare; sq++ {
		p := b.PieceAt(sq)
		switch p.Kind {
		case NoPiece:
			continue
		case Pawn, Rook, Queen:
			return false
		case Knight:
			minors++
		case Bishop:
			minors++
			bishops++
			if sq.IsLight() {
				lightBishops++
			}
		}
		total++
	}

	switch {
	case total == 2:
		return true
	case total == 3 && minors == 1:
		return true
	case total == bishops+2:
		return lightBishops == 0 || lightBishops == bishops
	}
	return false
}
