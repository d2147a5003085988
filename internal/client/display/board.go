package display

import (
	"fmt"
	"io"
	"strings"

	"mychess/internal/board"
	"mychess/internal/core"
)

type Theme string

const (
	ThemeOff   Theme = "off"
	ThemeBrown Theme = "brown"
	ThemeGreen Theme = "green"
	ThemeGray  Theme = "gray"
)

type themeColors struct {
	lightBg string
	darkBg  string
	white   string
	black   string
	mark    string
}

var themes = map[Theme]themeColors{
	ThemeOff: {},
	ThemeBrown: {
		lightBg: "\033[48;5;230m", // Beige
		darkBg:  "\033[48;5;94m",  // Brown
		white:   "\033[97m",
		black:   "\033[30m",
		mark:    "\033[48;5;178m",
	},
	ThemeGreen: {
		lightBg: "\033[48;5;157m", // Light green
		darkBg:  "\033[48;5;22m",  // Dark green
		white:   "\033[97m",
		black:   "\033[30m",
		mark:    "\033[48;5;186m",
	},
	ThemeGray: {
		lightBg: "\033[48;5;251m", // Light gray
		darkBg:  "\033[48;5;240m", // Dark gray
		white:   "\033[97m",
		black:   "\033[30m",
		mark:    "\033[48;5;109m",
	},
}

func ParseTheme(s string) (Theme, error) {
	t := Theme(strings.ToLower(s))
	if _, ok := themes[t]; !ok {
		return "", fmt.Errorf("invalid theme: %s (use: off, brown, green, gray)", s)
	}
	return t, nil
}

// RenderBoard draws pos from its viewer's side. Squares touched by last
// are marked; last may be nil.
func RenderBoard(w io.Writer, pos core.Position, theme Theme, last *core.Move) {
	var grid [8][8]byte
	for _, p := range pos.Pieces {
		if p.Square.Valid() {
			grid[p.Square.Row][p.Square.Col] = p.Letter()
		}
	}
	marked := func(row, col int) bool {
		if last == nil {
			return false
		}
		sq := core.Square{Row: row, Col: col}
		return sq == last.To || sq == last.Piece.Square
	}

	colors, ok := themes[theme]
	themed := ok && theme != ThemeOff && enabled

	var sb strings.Builder
	sb.WriteString("\n  " + Paint(Cyan, "a b c d e f g h") + "\n")
	for row := 0; row < 8; row++ {
		rank := string(board.Algebraic(core.Square{Row: row, Col: 0}, pos.Orientation)[1])
		sb.WriteString(Paint(Cyan, rank) + " ")
		for col := 0; col < 8; col++ {
			piece := grid[row][col]
			if themed {
				bg := colors.darkBg
				if (row+col)%2 == 0 {
					bg = colors.lightBg
				}
				if marked(row, col) {
					bg = colors.mark
				}
				if piece == 0 {
					sb.WriteString(bg + "  " + Reset)
					continue
				}
				fg := colors.black
				if piece >= 'A' && piece <= 'Z' {
					fg = colors.white
				}
				sb.WriteString(fmt.Sprintf("%s%s%c %s", bg, fg, piece, Reset))
				continue
			}

			switch {
			case piece == 0 && marked(row, col):
				sb.WriteString(Paint(Yellow, "*") + " ")
			case piece == 0:
				sb.WriteString(". ")
			case piece >= 'A' && piece <= 'Z':
				// White pieces - Blue
				sb.WriteString(Paint(Blue, string(piece)) + " ")
			default:
				// Black pieces - Red
				sb.WriteString(Paint(Red, string(piece)) + " ")
			}
		}
		sb.WriteString(" " + Paint(Cyan, rank) + "\n")
	}
	sb.WriteString("  " + Paint(Cyan, "a b c d e f g h") + "\n")

	fmt.Fprint(w, sb.String())
}
