package game

import (
	"fmt"

	"mychess/internal/board"
	"mychess/internal/core"
	"mychess/internal/engine"
)

type Snapshot struct {
	FEN  string     `json:"fen"`            // authoritative position string
	Move *core.Move `json:"move,omitempty"` // move that led here, nil for a load
}

// Game is one viewer's board: the parsed position plus derived read models.
// It is not safe for concurrent use.
type Game struct {
	viewer    core.Color
	pos       core.Position
	captured  CapturedTally
	snapshots []Snapshot
	state     core.State
}

func New(fen string, viewer core.Color, capturedSeed string) (*Game, error) {
	g := &Game{viewer: viewer}
	if err := g.Load(fen, capturedSeed); err != nil {
		return nil, err
	}
	return g, nil
}

// Load replaces the board with a freshly parsed position
func (g *Game) Load(fen, capturedSeed string) error {
	pos, err := board.ParseFEN(fen, core.OrientationFor(g.viewer))
	if err != nil {
		return err
	}
	captured, err := ParseCaptured(capturedSeed)
	if err != nil {
		return err
	}
	g.pos = pos
	g.captured = captured
	g.snapshots = []Snapshot{{FEN: fen}}
	g.state = core.StateOngoing
	return nil
}

func (g *Game) Viewer() core.Color {
	return g.viewer
}

func (g *Game) Orientation() core.Orientation {
	return g.pos.Orientation
}

// Position returns a copy of the current position
func (g *Game) Position() core.Position {
	return g.pos.Clone()
}

func (g *Game) Pieces() []core.Piece {
	return core.ClonePieces(g.pos.Pieces)
}

func (g *Game) PieceAt(sq core.Square) (core.Piece, bool) {
	return core.PieceAt(g.pos.Pieces, sq)
}

// Validate proposes moving p to target on this board
func (g *Game) Validate(p core.Piece, target core.Square) core.Outcome {
	return engine.Validate(target, g.viewer, g.pos.Pieces, p)
}

// Apply commits a move; the tally is updated for captures
func (g *Game) Apply(move core.Move) error {
	next, err := Apply(g.pos.Pieces, move)
	if err != nil {
		return err
	}
	if move.Outcome.Captured != nil {
		g.captured.Record(*move.Outcome.Captured)
	}
	g.pos.Pieces = next
	g.pos.Turn = core.OppositeColor(move.Piece.Color)
	g.pos.EnPassant = nil

	recorded := move
	g.snapshots = append(g.snapshots, Snapshot{FEN: board.Encode(g.pos), Move: &recorded})
	return nil
}

// Observe records the latest authoritative position string without reparsing
func (g *Game) Observe(fen string) {
	if fen == "" {
		return
	}
	g.snapshots[len(g.snapshots)-1].FEN = fen
}

// FEN is the most recent authoritative position string, or the local
// encoding after a move nobody has confirmed yet
func (g *Game) FEN() string {
	return g.snapshots[len(g.snapshots)-1].FEN
}

// Encode writes the current board as FEN
func (g *Game) Encode() string {
	return board.Encode(g.pos)
}

func (g *Game) IsMyTurn() bool {
	return board.IsMyTurn(g.FEN(), g.viewer)
}

func (g *Game) Turn() core.Color {
	return g.pos.Turn
}

func (g *Game) Captured() CapturedTally {
	return g.captured.Clone()
}

// Moves returns the moves applied since the last load
func (g *Game) Moves() []core.Move {
	moves := []core.Move{}
	for _, s := range g.snapshots {
		if s.Move != nil {
			moves = append(moves, *s.Move)
		}
	}
	return moves
}

func (g *Game) LastMove() (core.Move, bool) {
	for i := len(g.snapshots) - 1; i >= 0; i-- {
		if g.snapshots[i].Move != nil {
			return *g.snapshots[i].Move, true
		}
	}
	return core.Move{}, false
}

// InCheck reports whether color's king is currently attacked
func (g *Game) InCheck(color core.Color) bool {
	for _, p := range g.pos.Pieces {
		if p.Type == core.King && p.Color == color {
			return engine.IsSquareAttacked(p.Square, color, g.pos.Pieces, g.viewer)
		}
	}
	return false
}

func (g *Game) State() core.State {
	return g.state
}

func (g *Game) SetState(s core.State) {
	g.state = s
}

func (g *Game) String() string {
	return fmt.Sprintf("%s to move, %d pieces, %d moves", g.pos.Turn.Name(), len(g.pos.Pieces), len(g.Moves()))
}
