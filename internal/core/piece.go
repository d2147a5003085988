package core

import "fmt"

type PieceType int

const (
	Pawn PieceType = iota + 1
	Rook
	Knight
	Bishop
	Queen
	King
)

var pieceNames = map[PieceType]string{
	Pawn:   "pawn",
	Rook:   "rook",
	Knight: "knight",
	Bishop: "bishop",
	Queen:  "queen",
	King:   "king",
}

func (t PieceType) String() string {
	if name, ok := pieceNames[t]; ok {
		return name
	}
	return "unknown"
}

// Letter returns the lowercase FEN letter
func (t PieceType) Letter() byte {
	switch t {
	case Pawn:
		return 'p'
	case Rook:
		return 'r'
	case Knight:
		return 'n'
	case Bishop:
		return 'b'
	case Queen:
		return 'q'
	case King:
		return 'k'
	}
	return '?'
}

// PieceTypeFromLetter accepts either case
func PieceTypeFromLetter(ch byte) (PieceType, bool) {
	if ch >= 'A' && ch <= 'Z' {
		ch += 'a' - 'A'
	}
	switch ch {
	case 'p':
		return Pawn, true
	case 'r':
		return Rook, true
	case 'n':
		return Knight, true
	case 'b':
		return Bishop, true
	case 'q':
		return Queen, true
	case 'k':
		return King, true
	}
	return 0, false
}

// IsPromotionChoice reports whether a pawn may become this type
func (t PieceType) IsPromotionChoice() bool {
	return t == Queen || t == Rook || t == Bishop || t == Knight
}

func (t PieceType) MarshalText() ([]byte, error) {
	name, ok := pieceNames[t]
	if !ok {
		return nil, fmt.Errorf("invalid piece type %d", int(t))
	}
	return []byte(name), nil
}

func (t *PieceType) UnmarshalText(text []byte) error {
	for pt, name := range pieceNames {
		if name == string(text) {
			*t = pt
			return nil
		}
	}
	return fmt.Errorf("invalid piece type %q", text)
}

// Square is a board coordinate in the viewer's orientation
type Square struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (s Square) Valid() bool {
	return s.Row >= 0 && s.Row < 8 && s.Col >= 0 && s.Col < 8
}

// Mirror converts between the two peers' orientations
func (s Square) Mirror() Square {
	return Square{Row: 7 - s.Row, Col: s.Col}
}

func (s Square) Offset(dRow, dCol int) Square {
	return Square{Row: s.Row + dRow, Col: s.Col + dCol}
}

func (s Square) String() string {
	return fmt.Sprintf("(%d,%d)", s.Row, s.Col)
}

type Piece struct {
	ID                string    `json:"id"`
	Type              PieceType `json:"type"`
	Color             Color     `json:"color"`
	Square            Square    `json:"square"`
	HasMoved          bool      `json:"hasMoved"`
	EnPassantEligible bool      `json:"enPassantEligible,omitempty"`
}

// Letter returns the FEN letter, uppercase for white
func (p Piece) Letter() byte {
	ch := p.Type.Letter()
	if p.Color == ColorWhite {
		ch -= 'a' - 'A'
	}
	return ch
}

// PieceID derives the per-load identifier from color, type and the FEN rank index
func PieceID(color Color, t PieceType, rankIndex, col int) string {
	return fmt.Sprintf("%s-%s-%d-%d", color, t, rankIndex, col)
}

// PromotedID retires a pawn identity while keeping its lineage readable
func PromotedID(pawnID string, t PieceType) string {
	return pawnID + "=" + t.String()
}
