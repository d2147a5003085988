package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mychess/internal/server/storage"
)

func TestInitRoomsMovesDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.db")
	var out bytes.Buffer

	if err := run(&out, []string{"init", "-path", path}); err != nil {
		t.Fatalf("init error = %v", err)
	}

	store, err := storage.NewStore(path, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	store.RecordRoom(storage.RoomRecord{
		RoomID: "r1", Code: "ABC123", WhiteID: "p1", WhiteName: "ann", WhiteEmail: "ann@example.com",
		Status: "playing", FEN: "x", CreatedAtUTC: time.Now().UTC(),
	})
	store.RecordMove(storage.MoveRecord{
		RoomID: "r1", MoveNumber: 1, PieceID: "w-pawn-6-4", FromSquare: "e2", ToSquare: "e4",
		Outcome: "doubleStep", FENAfterMove: "y", PlayerColor: "w", MoveTimeUTC: time.Now().UTC(),
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.Flush(ctx); err != nil {
		t.Fatal(err)
	}
	store.Close()

	out.Reset()
	if err := run(&out, []string{"rooms", "-path", path, "-email", "ann@example.com"}); err != nil {
		t.Fatalf("rooms error = %v", err)
	}
	if !strings.Contains(out.String(), "ABC123") || !strings.Contains(out.String(), "Found 1 room(s)") {
		t.Errorf("rooms output:\n%s", out.String())
	}

	out.Reset()
	if err := run(&out, []string{"moves", "-path", path, "-code", "abc123"}); err != nil {
		t.Fatalf("moves error = %v", err)
	}
	if !strings.Contains(out.String(), "e2e4") {
		t.Errorf("moves output:\n%s", out.String())
	}

	if err := run(&out, []string{"moves", "-path", path, "-code", "NOPE00"}); err == nil {
		t.Error("moves for an unknown room should fail")
	}
	if err := run(&out, []string{"delete", "-path", path}); err != nil {
		t.Fatalf("delete error = %v", err)
	}
}

func TestUsageErrors(t *testing.T) {
	var out bytes.Buffer
	path := filepath.Join(t.TempDir(), "relay.db")
	for _, args := range [][]string{nil, {"bogus"}, {"init"}, {"moves", "-path", path}} {
		if err := run(&out, args); err == nil {
			t.Errorf("run(%q) succeeded", args)
		}
	}
}
