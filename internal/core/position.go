package core

// Position is a parsed board in one viewer's orientation
type Position struct {
	Pieces      []Piece
	Turn        Color
	EnPassant   *Square // target square skipped by the last double step
	Orientation Orientation
}

// PieceAt returns the occupant of sq, if any
func PieceAt(pieces []Piece, sq Square) (Piece, bool) {
	for _, p := range pieces {
		if p.Square == sq {
			return p, true
		}
	}
	return Piece{}, false
}

// FindPiece returns the piece with the given id
func FindPiece(pieces []Piece, id string) (Piece, bool) {
	for _, p := range pieces {
		if p.ID == id {
			return p, true
		}
	}
	return Piece{}, false
}

// ClonePieces copies the slice so callers never alias each other's sets
func ClonePieces(pieces []Piece) []Piece {
	out := make([]Piece, len(pieces))
	copy(out, pieces)
	return out
}

func (p Position) Clone() Position {
	out := p
	out.Pieces = ClonePieces(p.Pieces)
	if p.EnPassant != nil {
		sq := *p.EnPassant
		out.EnPassant = &sq
	}
	return out
}
