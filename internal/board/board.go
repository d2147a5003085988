package board

import (
	"fmt"
	"strings"

	"mychess/internal/core"
)

const (
	StartingFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"
)

// ParseFEN builds a Position whose rows follow the given orientation.
// Only placement and active color are required; castling rights are ignored.
func ParseFEN(fen string, o core.Orientation) (core.Position, error) {
	parts := strings.Fields(fen)
	if len(parts) < 2 {
		return core.Position{}, &core.ParseError{Field: "fen", Input: fen, Reason: fmt.Sprintf("expected at least 2 fields, got %d", len(parts))}
	}

	pos := core.Position{Orientation: o}

	ranks := strings.Split(parts[0], "/")
	if len(ranks) != 8 {
		return core.Position{}, &core.ParseError{Field: "placement", Input: parts[0], Reason: fmt.Sprintf("expected 8 ranks, got %d", len(ranks))}
	}

	for r, rank := range ranks {
		file := 0
		for i := 0; i < len(rank); i++ {
			ch := rank[i]
			if ch >= '1' && ch <= '8' {
				file += int(ch - '0')
				continue
			}
			t, ok := core.PieceTypeFromLetter(ch)
			if !ok {
				return core.Position{}, &core.ParseError{Field: "placement", Input: parts[0], Reason: fmt.Sprintf("unrecognized piece %q in rank %d", ch, 8-r)}
			}
			if file >= 8 {
				return core.Position{}, &core.ParseError{Field: "placement", Input: parts[0], Reason: fmt.Sprintf("too many squares in rank %d", 8-r)}
			}
			color := core.ColorBlack
			if ch >= 'A' && ch <= 'Z' {
				color = core.ColorWhite
			}
			pos.Pieces = append(pos.Pieces, core.Piece{
				ID:     core.PieceID(color, t, r, file),
				Type:   t,
				Color:  color,
				Square: core.Square{Row: rowForRank(r, o), Col: file},
			})
			file++
		}
		if file != 8 {
			return core.Position{}, &core.ParseError{Field: "placement", Input: parts[0], Reason: fmt.Sprintf("rank %d has %d files", 8-r, file)}
		}
	}

	switch parts[1] {
	case "w":
		pos.Turn = core.ColorWhite
	case "b":
		pos.Turn = core.ColorBlack
	default:
		return core.Position{}, &core.ParseError{Field: "color", Input: parts[1], Reason: "turn must be 'w' or 'b'"}
	}

	if len(parts) >= 4 && parts[3] != "-" {
		target, err := SquareFromAlgebraic(parts[3], o)
		if err != nil {
			return core.Position{}, &core.ParseError{Field: "enPassant", Input: parts[3], Reason: err.Error()}
		}
		pos.EnPassant = &target
		markEnPassant(pos.Pieces, parts[3], o)
	}

	return pos, nil
}

// markEnPassant flags the pawn that skipped over the target square
func markEnPassant(pieces []core.Piece, target string, o core.Orientation) {
	var pawnColor core.Color
	var pawnRank byte
	switch target[1] {
	case '3':
		pawnColor, pawnRank = core.ColorWhite, '4'
	case '6':
		pawnColor, pawnRank = core.ColorBlack, '5'
	default:
		return
	}
	sq, err := SquareFromAlgebraic(string([]byte{target[0], pawnRank}), o)
	if err != nil {
		return
	}
	for i := range pieces {
		p := &pieces[i]
		if p.Square == sq && p.Type == core.Pawn && p.Color == pawnColor {
			p.EnPassantEligible = true
			return
		}
	}
}

// IsMyTurn compares the side-to-move field against color
func IsMyTurn(fen string, color core.Color) bool {
	parts := strings.Fields(fen)
	if len(parts) < 2 || len(parts[1]) != 1 {
		return false
	}
	return core.Color(parts[1][0]) == color
}

// Encode writes pos back out as a six-field FEN string. Castling rights are
// inferred from unmoved kings and rooks on their home squares.
func Encode(pos core.Position) string {
	var grid [8][8]byte
	for _, p := range pos.Pieces {
		if !p.Square.Valid() {
			continue
		}
		grid[rankForRow(p.Square.Row, pos.Orientation)][p.Square.Col] = p.Letter()
	}

	var sb strings.Builder
	for r := 0; r < 8; r++ {
		if r > 0 {
			sb.WriteByte('/')
		}
		empty := 0
		for f := 0; f < 8; f++ {
			if grid[r][f] == 0 {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteByte(byte('0' + empty))
				empty = 0
			}
			sb.WriteByte(grid[r][f])
		}
		if empty > 0 {
			sb.WriteByte(byte('0' + empty))
		}
	}

	turn := pos.Turn
	if !turn.Valid() {
		turn = core.ColorWhite
	}
	sb.WriteByte(' ')
	sb.WriteString(turn.String())
	sb.WriteByte(' ')
	sb.WriteString(castlingRights(pos))
	sb.WriteByte(' ')
	sb.WriteString(enPassantTarget(pos, turn))
	sb.WriteString(" 0 1")
	return sb.String()
}

func castlingRights(pos core.Position) string {
	unmoved := func(t core.PieceType, color core.Color, alg string) bool {
		sq, _ := SquareFromAlgebraic(alg, pos.Orientation)
		p, ok := core.PieceAt(pos.Pieces, sq)
		return ok && p.Type == t && p.Color == color && !p.HasMoved
	}

	var rights string
	if unmoved(core.King, core.ColorWhite, "e1") {
		if unmoved(core.Rook, core.ColorWhite, "h1") {
			rights += "K"
		}
		if unmoved(core.Rook, core.ColorWhite, "a1") {
			rights += "Q"
		}
	}
	if unmoved(core.King, core.ColorBlack, "e8") {
		if unmoved(core.Rook, core.ColorBlack, "h8") {
			rights += "k"
		}
		if unmoved(core.Rook, core.ColorBlack, "a8") {
			rights += "q"
		}
	}
	if rights == "" {
		return "-"
	}
	return rights
}

// enPassantTarget reports the square behind a pawn of the side that just moved
func enPassantTarget(pos core.Position, turn core.Color) string {
	mover := core.OppositeColor(turn)
	for _, p := range pos.Pieces {
		if p.Type != core.Pawn || p.Color != mover || !p.EnPassantEligible {
			continue
		}
		alg := Algebraic(p.Square, pos.Orientation)
		if alg == "" {
			continue
		}
		switch alg[1] {
		case '4':
			return string([]byte{alg[0], '3'})
		case '5':
			return string([]byte{alg[0], '6'})
		}
	}
	return "-"
}

// ToASCII renders the position as the viewer sees it
func ToASCII(pos core.Position) string {
	var grid [8][8]byte
	for _, p := range pos.Pieces {
		if p.Square.Valid() {
			grid[p.Square.Row][p.Square.Col] = p.Letter()
		}
	}

	var sb strings.Builder
	sb.WriteString("  a b c d e f g h\n")
	for row := 0; row < 8; row++ {
		rank := 8 - rankForRow(row, pos.Orientation)
		sb.WriteString(fmt.Sprintf("%d ", rank))
		for col := 0; col < 8; col++ {
			if grid[row][col] == 0 {
				sb.WriteString(". ")
			} else {
				sb.WriteString(fmt.Sprintf("%c ", grid[row][col]))
			}
		}
		sb.WriteString(fmt.Sprintf(" %d\n", rank))
	}
	sb.WriteString("  a b c d e f g h")

	return sb.String()
}
