package board

import (
	"fmt"

	"mychess/internal/core"
)

// rowForRank maps a FEN rank index (0 = rank 8) to a view row
func rowForRank(rankIndex int, o core.Orientation) int {
	if o == core.OrientationFlip {
		return 7 - rankIndex
	}
	return rankIndex
}

// rankForRow is its own inverse
func rankForRow(row int, o core.Orientation) int {
	return rowForRank(row, o)
}

// SquareFromAlgebraic converts "e2" into view coordinates
func SquareFromAlgebraic(s string, o core.Orientation) (core.Square, error) {
	if len(s) != 2 {
		return core.Square{}, fmt.Errorf("square %q must be two characters", s)
	}
	file, rank := s[0], s[1]
	if file >= 'A' && file <= 'H' {
		file += 'a' - 'A'
	}
	if file < 'a' || file > 'h' || rank < '1' || rank > '8' {
		return core.Square{}, fmt.Errorf("square %q out of range", s)
	}
	return core.Square{
		Row: rowForRank(int('8'-rank), o),
		Col: int(file - 'a'),
	}, nil
}

// Algebraic is the inverse of SquareFromAlgebraic; empty for invalid squares
func Algebraic(sq core.Square, o core.Orientation) string {
	if !sq.Valid() {
		return ""
	}
	rankIndex := rankForRow(sq.Row, o)
	return string([]byte{byte('a' + sq.Col), byte('8' - rankIndex)})
}
