package engine

import "mychess/internal/core"

// IsSquareAttacked returns true if any piece not of color defender reaches
// target. viewer is the orientation the rows of pieces are expressed in.
func IsSquareAttacked(target core.Square, defender core.Color, pieces []core.Piece, viewer core.Color) bool {
	for _, p := range pieces {
		if p.Color == defender {
			continue
		}
		if reaches(p, target, pieces, viewer) {
			return true
		}
	}
	return false
}
