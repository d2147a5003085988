package core

import (
	"fmt"
)

type OutcomeKind int

const (
	OutcomeIllegal OutcomeKind = iota
	OutcomeSimple
	OutcomeCapture
	OutcomeDoubleStep
	OutcomeEnPassant
	OutcomeCastle
	OutcomePromotionPending
	OutcomePromotionResolved
)

var outcomeNames = map[OutcomeKind]string{
	OutcomeIllegal:           "illegal",
	OutcomeSimple:            "simple",
	OutcomeCapture:           "capture",
	OutcomeDoubleStep:        "doubleStep",
	OutcomeEnPassant:         "enPassant",
	OutcomeCastle:            "castle",
	OutcomePromotionPending:  "promotionPending",
	OutcomePromotionResolved: "promotionResolved",
}

func (k OutcomeKind) String() string {
	if name, ok := outcomeNames[k]; ok {
		return name
	}
	return "unknown"
}

func (k OutcomeKind) MarshalText() ([]byte, error) {
	name, ok := outcomeNames[k]
	if !ok {
		return nil, fmt.Errorf("invalid outcome kind %d", int(k))
	}
	return []byte(name), nil
}

func (k *OutcomeKind) UnmarshalText(text []byte) error {
	for kind, name := range outcomeNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("invalid outcome kind %q", text)
}

type CastleSide string

const (
	Kingside  CastleSide = "kingside"
	Queenside CastleSide = "queenside"
)

type IllegalReason string

const (
	ReasonSquareAttacked          IllegalReason = "squareAttacked"
	ReasonKingExposedDuringCastle IllegalReason = "kingExposedDuringCastle"
	ReasonBlockedByOwnPiece       IllegalReason = "blockedByOwnPiece"
	ReasonInvalidGeometry         IllegalReason = "invalidGeometry"
	ReasonPieceNotOnBoard         IllegalReason = "pieceNotOnBoard"
)

// Outcome classifies a proposed or applied move. Kind selects which of the
// optional fields are meaningful.
type Outcome struct {
	Kind       OutcomeKind   `json:"kind"`
	Captured   *Piece        `json:"capturedPiece,omitempty"`
	Side       CastleSide    `json:"side,omitempty"`
	PromotedTo PieceType     `json:"promotedTo,omitempty"`
	Reason     IllegalReason `json:"reason,omitempty"`
	// Attacked is a UI hint: the destination is covered by the opponent
	Attacked bool `json:"attacked,omitempty"`
}

func Illegal(reason IllegalReason) Outcome {
	return Outcome{Kind: OutcomeIllegal, Reason: reason}
}

func (o Outcome) Legal() bool {
	return o.Kind != OutcomeIllegal
}

// IsCapture covers every kind that removes an enemy piece
func (o Outcome) IsCapture() bool {
	return o.Captured != nil && o.Kind != OutcomeIllegal
}

// Resolve turns a pending promotion into a final one
func (o Outcome) Resolve(t PieceType) (Outcome, error) {
	if o.Kind != OutcomePromotionPending {
		return Outcome{}, fmt.Errorf("%w: outcome is %s", ErrNoPendingPromotion, o.Kind)
	}
	if !t.IsPromotionChoice() {
		return Outcome{}, fmt.Errorf("%w: %s", ErrInvalidPromotion, t)
	}
	resolved := o
	resolved.Kind = OutcomePromotionResolved
	resolved.PromotedTo = t
	return resolved, nil
}

// Move is the descriptor exchanged between peers
type Move struct {
	Piece   Piece   `json:"piece"` // pre-move snapshot
	To      Square  `json:"to"`
	Outcome Outcome `json:"outcome"`
}

// Key identifies a move for duplicate detection
func (m Move) Key() string {
	key := fmt.Sprintf("%s>%d,%d:%s", m.Piece.ID, m.To.Row, m.To.Col, m.Outcome.Kind)
	if m.Outcome.Kind == OutcomePromotionResolved {
		key += "=" + m.Outcome.PromotedTo.String()
	}
	return key
}

// Mirror converts a move into the opposite peer's orientation
func (m Move) Mirror() Move {
	out := m
	out.Piece.Square = m.Piece.Square.Mirror()
	out.To = m.To.Mirror()
	if m.Outcome.Captured != nil {
		captured := *m.Outcome.Captured
		captured.Square = captured.Square.Mirror()
		out.Outcome.Captured = &captured
	}
	return out
}
