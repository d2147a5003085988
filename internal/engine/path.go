package engine

import "mychess/internal/core"

// IsPathClear reports whether every square strictly between from and to is
// empty. The squares must share a row, column or diagonal.
func IsPathClear(from, to core.Square, pieces []core.Piece) bool {
	dRow := to.Row - from.Row
	dCol := to.Col - from.Col
	if dRow != 0 && dCol != 0 && abs(dRow) != abs(dCol) {
		return false
	}

	rowDir := sign(dRow)
	colDir := sign(dCol)

	sq := from.Offset(rowDir, colDir)
	for sq != to {
		if _, occupied := core.PieceAt(pieces, sq); occupied {
			return false
		}
		sq = sq.Offset(rowDir, colDir)
	}

	return true
}

// reaches reports whether p attacks target given the occupancy in pieces.
func reaches(p core.Piece, target core.Square, pieces []core.Piece, viewer core.Color) bool {
	dRow := target.Row - p.Square.Row
	dCol := target.Col - p.Square.Col
	if dRow == 0 && dCol == 0 {
		return false
	}

	switch p.Type {
	case core.Pawn:
		return dRow == PawnDirection(p.Color, viewer) && abs(dCol) == 1

	case core.Knight:
		return (abs(dRow) == 1 && abs(dCol) == 2) || (abs(dRow) == 2 && abs(dCol) == 1)

	case core.Bishop:
		return abs(dRow) == abs(dCol) && IsPathClear(p.Square, target, pieces)

	case core.Rook:
		return (dRow == 0 || dCol == 0) && IsPathClear(p.Square, target, pieces)

	case core.Queen:
		if abs(dRow) == abs(dCol) || dRow == 0 || dCol == 0 {
			return IsPathClear(p.Square, target, pieces)
		}
		return false

	case core.King:
		return abs(dRow) <= 1 && abs(dCol) <= 1
	}

	return false
}
