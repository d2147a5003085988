package game

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"mychess/internal/board"
	"mychess/internal/core"
)

func TestParseCaptured(t *testing.T) {
	tally, err := ParseCaptured("PPnQ, q")
	if err != nil {
		t.Fatalf("ParseCaptured() error = %v", err)
	}

	if got := tally.Lost(core.ColorWhite, core.Pawn); got != 2 {
		t.Errorf("white pawns lost = %d, want 2", got)
	}
	want := map[core.PieceType]int{core.Knight: 1, core.Queen: 1}
	if diff := cmp.Diff(want, tally.CapturedBy(core.ColorWhite)); diff != "" {
		t.Errorf("CapturedBy(white) mismatch (-want +got):\n%s", diff)
	}
	if got := tally.String(); got != "QPPqn" {
		t.Errorf("String() = %q, want %q", got, "QPPqn")
	}

	if _, err := ParseCaptured("Px"); err == nil {
		t.Error("expected error for unknown letter")
	}
	empty, err := ParseCaptured("")
	if err != nil || empty.String() != "" {
		t.Errorf("ParseCaptured(\"\") = %q, %v", empty.String(), err)
	}
}

func TestGameApplyTracksCapturesAndHistory(t *testing.T) {
	g, err := New("4k3/8/8/3p4/4P3/8/8/4K3 w - - 0 1", core.ColorWhite, "r")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if !g.IsMyTurn() {
		t.Fatal("expected white to move")
	}

	pawn, _ := g.PieceAt(square(t, "e4", core.ColorWhite))
	target := square(t, "d5", core.ColorWhite)
	outcome := g.Validate(pawn, target)
	if outcome.Kind != core.OutcomeCapture {
		t.Fatalf("Kind = %s", outcome.Kind)
	}
	move := core.Move{Piece: pawn, To: target, Outcome: outcome}
	if err := g.Apply(move); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if got := g.Captured().CapturedBy(core.ColorWhite); got[core.Pawn] != 1 || got[core.Rook] != 1 {
		t.Errorf("CapturedBy(white) = %v", got)
	}
	if g.IsMyTurn() {
		t.Error("still my turn after moving")
	}
	if g.Turn() != core.ColorBlack {
		t.Errorf("Turn() = %v", g.Turn())
	}
	if diff := cmp.Diff([]core.Move{move}, g.Moves()); diff != "" {
		t.Errorf("Moves() mismatch (-want +got):\n%s", diff)
	}
	if got, want := g.FEN(), "4k3/8/8/3P4/8/8/8/4K3 b - - 0 1"; got != want {
		t.Errorf("FEN() = %q, want %q", got, want)
	}

	g.Observe("4k3/8/8/3P4/8/8/8/4K3 b - - 0 2")
	if got := g.FEN(); got != "4k3/8/8/3P4/8/8/8/4K3 b - - 0 2" {
		t.Errorf("FEN() after Observe = %q", got)
	}
}

func TestGameRejectsBadInput(t *testing.T) {
	if _, err := New("not a fen", core.ColorWhite, ""); !errors.Is(err, core.ErrInvalidFEN) {
		t.Errorf("New() error = %v, want ErrInvalidFEN", err)
	}
	if _, err := New(board.StartingFEN, core.ColorWhite, "?"); err == nil {
		t.Error("expected error for bad captured seed")
	}

	g, err := New(board.StartingFEN, core.ColorBlack, "")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if g.Orientation() != core.OrientationFlip {
		t.Errorf("Orientation() = %s, want flip", g.Orientation())
	}
	before := g.Pieces()
	pawn, _ := g.PieceAt(square(t, "e7", core.ColorBlack))
	err = g.Apply(core.Move{Piece: pawn, To: square(t, "e5", core.ColorBlack), Outcome: core.Outcome{Kind: core.OutcomePromotionPending}})
	if !errors.Is(err, core.ErrUnresolvedPromotion) {
		t.Errorf("Apply() error = %v", err)
	}
	if diff := cmp.Diff(before, g.Pieces()); diff != "" {
		t.Errorf("board changed after rejected apply:\n%s", diff)
	}
}

func TestGameInCheck(t *testing.T) {
	g, err := New("4k3/8/8/8/8/8/8/4R1K1 b - -", core.ColorBlack, "")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if !g.InCheck(core.ColorBlack) {
		t.Error("black should be in check")
	}
	if g.InCheck(core.ColorWhite) {
		t.Error("white should not be in check")
	}
}
