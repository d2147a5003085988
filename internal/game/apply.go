package game

import (
	"fmt"

	"mychess/internal/core"
)

// Apply returns the piece set after move. The input slice is never modified.
// The move must already be validated; PromotionPending has to be resolved first.
func Apply(pieces []core.Piece, move core.Move) ([]core.Piece, error) {
	switch move.Outcome.Kind {
	case core.OutcomeIllegal:
		return nil, fmt.Errorf("%w: %s", core.ErrIllegalMove, move.Outcome.Reason)
	case core.OutcomePromotionPending:
		return nil, core.ErrUnresolvedPromotion
	}
	if !move.To.Valid() {
		return nil, fmt.Errorf("%w: destination %v", core.ErrIllegalMove, move.To)
	}

	out := core.ClonePieces(pieces)

	mover := indexOf(out, move.Piece.ID)
	if mover < 0 {
		return nil, fmt.Errorf("%w: %s", core.ErrPieceNotFound, move.Piece.ID)
	}
	color := out[mover].Color
	origin := out[mover].Square

	// a pawn is only capturable en passant until its owner moves again
	for i := range out {
		if out[i].Color == color {
			out[i].EnPassantEligible = false
		}
	}

	if captured := move.Outcome.Captured; captured != nil {
		out = remove(out, captured.ID)
	}
	// whatever still occupies the destination is an enemy the descriptor did not name
	if victim := occupantIndex(out, move.To, move.Piece.ID); victim >= 0 && out[victim].Color != color {
		out = remove(out, out[victim].ID)
	}

	mover = indexOf(out, move.Piece.ID)

	switch move.Outcome.Kind {
	case core.OutcomeDoubleStep:
		out[mover].EnPassantEligible = true

	case core.OutcomeCastle:
		side := move.Outcome.Side
		if side == "" {
			side = core.Kingside
			if move.To.Col < origin.Col {
				side = core.Queenside
			}
		}
		rookFrom, rookTo := 7, 5
		if side == core.Queenside {
			rookFrom, rookTo = 0, 3
		}
		rook := occupantIndex(out, core.Square{Row: origin.Row, Col: rookFrom}, "")
		if rook < 0 || out[rook].Type != core.Rook || out[rook].Color != color {
			return nil, fmt.Errorf("%w: no %s rook for %s castle", core.ErrPieceNotFound, color.Name(), side)
		}
		out[rook].Square = core.Square{Row: origin.Row, Col: rookTo}
		out[rook].HasMoved = true

		step := 2
		if side == core.Queenside {
			step = -2
		}
		move.To = core.Square{Row: origin.Row, Col: origin.Col + step}

	case core.OutcomePromotionResolved:
		if !move.Outcome.PromotedTo.IsPromotionChoice() {
			return nil, fmt.Errorf("%w: %s", core.ErrInvalidPromotion, move.Outcome.PromotedTo)
		}
		out[mover].ID = core.PromotedID(out[mover].ID, move.Outcome.PromotedTo)
		out[mover].Type = move.Outcome.PromotedTo
	}

	out[mover].Square = move.To
	out[mover].HasMoved = true

	return out, nil
}

func indexOf(pieces []core.Piece, id string) int {
	for i, p := range pieces {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// occupantIndex finds the piece on sq other than the one with id skip
func occupantIndex(pieces []core.Piece, sq core.Square, skip string) int {
	for i, p := range pieces {
		if p.Square == sq && p.ID != skip {
			return i
		}
	}
	return -1
}

func remove(pieces []core.Piece, id string) []core.Piece {
	i := indexOf(pieces, id)
	if i < 0 {
		return pieces
	}
	return append(pieces[:i], pieces[i+1:]...)
}
