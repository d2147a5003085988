package engine

import "mychess/internal/core"

// abs returns the absolute value of x.
func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// sign returns the sign of x: -1, 0, or 1.
func sign(x int) int {
	if x > 0 {
		return 1
	}
	if x < 0 {
		return -1
	}
	return 0
}

// PawnDirection is the row delta of a forward pawn step. Rows are oriented
// per viewer, so the viewer's own pawns always advance toward row 0.
func PawnDirection(pieceColor, viewer core.Color) int {
	if (pieceColor == core.ColorWhite) == (viewer == core.ColorWhite) {
		return -1
	}
	return 1
}

func pawnStartRow(dir int) int {
	if dir < 0 {
		return 6
	}
	return 1
}

// PromotionRow is the farthest row for a pawn moving in dir
func PromotionRow(dir int) int {
	if dir < 0 {
		return 0
	}
	return 7
}

func backRow(dir int) int {
	if dir < 0 {
		return 7
	}
	return 0
}

// without returns a copy of pieces minus the given ids
func without(pieces []core.Piece, ids ...string) []core.Piece {
	out := make([]core.Piece, 0, len(pieces))
next:
	for _, p := range pieces {
		for _, id := range ids {
			if p.ID == id {
				continue next
			}
		}
		out = append(out, p)
	}
	return out
}
