package game

import (
	"fmt"
	"strings"

	"mychess/internal/core"
)

// display order for captured pieces
var tallyOrder = []core.PieceType{core.Queen, core.Rook, core.Bishop, core.Knight, core.Pawn, core.King}

// CapturedTally counts lost pieces by the color they belonged to
type CapturedTally map[core.Color]map[core.PieceType]int

// ParseCaptured reads a seed of piece letters, one per captured piece.
// Uppercase letters are white pieces.
func ParseCaptured(seed string) (CapturedTally, error) {
	tally := CapturedTally{}
	for i := 0; i < len(seed); i++ {
		ch := seed[i]
		if ch == ' ' || ch == ',' {
			continue
		}
		t, ok := core.PieceTypeFromLetter(ch)
		if !ok {
			return nil, fmt.Errorf("invalid captured piece %q at %d", ch, i)
		}
		color := core.ColorBlack
		if ch >= 'A' && ch <= 'Z' {
			color = core.ColorWhite
		}
		tally.add(color, t)
	}
	return tally, nil
}

func (c CapturedTally) add(color core.Color, t core.PieceType) {
	if c[color] == nil {
		c[color] = make(map[core.PieceType]int)
	}
	c[color][t]++
}

// Record counts p as captured
func (c CapturedTally) Record(p core.Piece) {
	c.add(p.Color, p.Type)
}

// Lost returns how many pieces of type t color has lost
func (c CapturedTally) Lost(color core.Color, t core.PieceType) int {
	return c[color][t]
}

// CapturedBy lists the opponent pieces color has taken
func (c CapturedTally) CapturedBy(color core.Color) map[core.PieceType]int {
	out := make(map[core.PieceType]int)
	for t, n := range c[core.OppositeColor(color)] {
		if n > 0 {
			out[t] = n
		}
	}
	return out
}

func (c CapturedTally) Clone() CapturedTally {
	out := CapturedTally{}
	for color, counts := range c {
		for t, n := range counts {
			for range n {
				out.add(color, t)
			}
		}
	}
	return out
}

// String encodes the tally in the seed format, white pieces first
func (c CapturedTally) String() string {
	var sb strings.Builder
	for _, color := range []core.Color{core.ColorWhite, core.ColorBlack} {
		for _, t := range tallyOrder {
			p := core.Piece{Type: t, Color: color}
			for range c[color][t] {
				sb.WriteByte(p.Letter())
			}
		}
	}
	return sb.String()
}
