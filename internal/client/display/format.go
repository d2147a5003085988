package display

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"mychess/internal/client/notify"
	"mychess/internal/core"
	"mychess/internal/game"
)

// PrettyPrintJSON prints formatted JSON
func PrettyPrintJSON(w io.Writer, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintln(w, Paint(Red, "Error formatting JSON: "+err.Error()))
		return
	}
	fmt.Fprintln(w, string(data))
}

// ColorForTurn returns colored turn indicator
func ColorForTurn(c core.Color) string {
	if c == core.ColorWhite {
		return Paint(Blue, "White")
	}
	return Paint(Red, "Black")
}

var captureOrder = []core.PieceType{core.Queen, core.Rook, core.Bishop, core.Knight, core.Pawn}

// Captured lists the opponent pieces color has taken, strongest first,
// e.g. "Q R R P P"
func Captured(tally game.CapturedTally, color core.Color) string {
	taken := tally.CapturedBy(color)
	var parts []string
	for _, t := range captureOrder {
		letter := string(t.Letter())
		if color == core.ColorBlack {
			letter = strings.ToUpper(letter)
		}
		for i := 0; i < taken[t]; i++ {
			parts = append(parts, letter)
		}
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, " ")
}

var variantColors = map[notify.Variant]string{
	notify.VariantSuccess: Green,
	notify.VariantError:   Red,
	notify.VariantWarning: Yellow,
	notify.VariantInfo:    Cyan,
}

// Toast formats a notification line
func Toast(t notify.Toast) string {
	return Paint(variantColors[t.Variant], "["+string(t.Variant)+"] "+t.Message)
}
