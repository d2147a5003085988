package engine

import "mychess/internal/core"

// occupancy of a target square relative to the mover
type occupancy int

const (
	occupantNone occupancy = iota
	occupantEnemy
	occupantFriendly
)

func targetOccupant(target core.Square, mover core.Piece, pieces []core.Piece) (core.Piece, occupancy) {
	p, ok := core.PieceAt(pieces, target)
	if !ok {
		return core.Piece{}, occupantNone
	}
	if p.Color == mover.Color {
		return p, occupantFriendly
	}
	return p, occupantEnemy
}

// Validate classifies moving mover to target. Rows in pieces are oriented
// for viewer. Illegal moves come back as an Outcome with Kind OutcomeIllegal.
// Turn and ownership are the caller's concern.
func Validate(target core.Square, viewer core.Color, pieces []core.Piece, mover core.Piece) core.Outcome {
	current, ok := core.FindPiece(pieces, mover.ID)
	if !ok || current.Square != mover.Square {
		return core.Illegal(core.ReasonPieceNotOnBoard)
	}
	if !target.Valid() || target == current.Square {
		return core.Illegal(core.ReasonInvalidGeometry)
	}

	occupant, occ := targetOccupant(target, current, pieces)
	if occ == occupantFriendly {
		return core.Illegal(core.ReasonBlockedByOwnPiece)
	}

	switch current.Type {
	case core.Pawn:
		return validatePawn(target, viewer, pieces, current, occupant, occ)
	case core.King:
		return validateKing(target, viewer, pieces, current, occupant, occ)
	}

	dRow := abs(target.Row - current.Square.Row)
	dCol := abs(target.Col - current.Square.Col)

	var geometry bool
	switch current.Type {
	case core.Knight:
		geometry = (dRow == 1 && dCol == 2) || (dRow == 2 && dCol == 1)
	case core.Bishop:
		geometry = dRow == dCol && IsPathClear(current.Square, target, pieces)
	case core.Rook:
		geometry = (dRow == 0 || dCol == 0) && IsPathClear(current.Square, target, pieces)
	case core.Queen:
		geometry = (dRow == dCol || dRow == 0 || dCol == 0) && IsPathClear(current.Square, target, pieces)
	}
	if !geometry {
		return core.Illegal(core.ReasonInvalidGeometry)
	}

	outcome := landing(occupant, occ)
	outcome.Attacked = IsSquareAttacked(target, current.Color, afterMove(pieces, current, occupant, occ), viewer)
	return outcome
}

func landing(occupant core.Piece, occ occupancy) core.Outcome {
	if occ == occupantEnemy {
		captured := occupant
		return core.Outcome{Kind: core.OutcomeCapture, Captured: &captured}
	}
	return core.Outcome{Kind: core.OutcomeSimple}
}

// afterMove is the occupancy with the mover lifted from its origin and the
// captured piece removed
func afterMove(pieces []core.Piece, mover, occupant core.Piece, occ occupancy) []core.Piece {
	if occ == occupantEnemy {
		return without(pieces, mover.ID, occupant.ID)
	}
	return without(pieces, mover.ID)
}

func validatePawn(target core.Square, viewer core.Color, pieces []core.Piece, pawn, occupant core.Piece, occ occupancy) core.Outcome {
	dir := PawnDirection(pawn.Color, viewer)
	dRow := target.Row - pawn.Square.Row
	dCol := target.Col - pawn.Square.Col

	var outcome core.Outcome
	switch {
	case dCol == 0 && dRow == dir:
		if occ != occupantNone {
			return core.Illegal(core.ReasonInvalidGeometry)
		}
		outcome = core.Outcome{Kind: core.OutcomeSimple}

	case dCol == 0 && dRow == 2*dir:
		if occ != occupantNone || pawn.Square.Row != pawnStartRow(dir) {
			return core.Illegal(core.ReasonInvalidGeometry)
		}
		if _, blocked := core.PieceAt(pieces, pawn.Square.Offset(dir, 0)); blocked {
			return core.Illegal(core.ReasonInvalidGeometry)
		}
		return core.Outcome{Kind: core.OutcomeDoubleStep}

	case abs(dCol) == 1 && dRow == dir:
		if occ == occupantEnemy {
			outcome = landing(occupant, occ)
			break
		}
		beside, ok := core.PieceAt(pieces, core.Square{Row: pawn.Square.Row, Col: target.Col})
		if ok && beside.Type == core.Pawn && beside.Color != pawn.Color && beside.EnPassantEligible {
			return core.Outcome{Kind: core.OutcomeEnPassant, Captured: &beside}
		}
		return core.Illegal(core.ReasonInvalidGeometry)

	default:
		return core.Illegal(core.ReasonInvalidGeometry)
	}

	if target.Row == PromotionRow(dir) {
		outcome.Kind = core.OutcomePromotionPending
	}
	return outcome
}

func validateKing(target core.Square, viewer core.Color, pieces []core.Piece, king, occupant core.Piece, occ occupancy) core.Outcome {
	dRow := target.Row - king.Square.Row
	dCol := target.Col - king.Square.Col

	if !king.HasMoved && dRow == 0 && abs(dCol) == 2 {
		return validateCastle(target, viewer, pieces, king)
	}
	if abs(dRow) > 1 || abs(dCol) > 1 {
		return core.Illegal(core.ReasonInvalidGeometry)
	}

	if IsSquareAttacked(target, king.Color, afterMove(pieces, king, occupant, occ), viewer) {
		return core.Illegal(core.ReasonSquareAttacked)
	}
	return landing(occupant, occ)
}

func validateCastle(target core.Square, viewer core.Color, pieces []core.Piece, king core.Piece) core.Outcome {
	row := backRow(PawnDirection(king.Color, viewer))
	if king.Square.Row != row || king.Square.Col != 4 {
		return core.Illegal(core.ReasonInvalidGeometry)
	}

	side := core.Kingside
	rookCol := 7
	if target.Col < king.Square.Col {
		side = core.Queenside
		rookCol = 0
	}

	rook, ok := core.PieceAt(pieces, core.Square{Row: row, Col: rookCol})
	if !ok || rook.Type != core.Rook || rook.Color != king.Color || rook.HasMoved {
		return core.Illegal(core.ReasonInvalidGeometry)
	}
	if !IsPathClear(king.Square, rook.Square, pieces) {
		return core.Illegal(core.ReasonInvalidGeometry)
	}

	step := sign(target.Col - king.Square.Col)
	lifted := without(pieces, king.ID)
	for _, sq := range []core.Square{king.Square, king.Square.Offset(0, step), target} {
		if IsSquareAttacked(sq, king.Color, lifted, viewer) {
			return core.Illegal(core.ReasonKingExposedDuringCastle)
		}
	}

	return core.Outcome{Kind: core.OutcomeCastle, Side: side}
}
