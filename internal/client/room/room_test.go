package room

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"mychess/internal/board"
	"mychess/internal/client/live"
	"mychess/internal/core"
	"mychess/internal/game"
)

type sentMsg struct {
	dest string
	body any
}

type fakeChannel struct {
	mu        sync.Mutex
	handlers  map[string]live.Handler
	sent      []sentMsg
	sendErr   error
	cancelled []string
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{handlers: make(map[string]live.Handler)}
}

func (f *fakeChannel) Send(dest string, body any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, sentMsg{dest: dest, body: body})
	return nil
}

func (f *fakeChannel) Subscribe(topic string, h live.Handler) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[topic] = h
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.handlers, topic)
		f.cancelled = append(f.cancelled, topic)
	}
}

// deliver pushes a broadcast to the topic's handler; strings are sent raw
func (f *fakeChannel) deliver(t *testing.T, topic string, v any) {
	t.Helper()
	var body json.RawMessage
	if s, ok := v.(string); ok {
		body = json.RawMessage(s)
	} else {
		data, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		body = data
	}

	f.mu.Lock()
	h := f.handlers[topic]
	f.mu.Unlock()
	if h != nil {
		h(body)
	}
}

var (
	whiteUser = core.Participant{ID: "1", Username: "ann", Email: "ann@example.com"}
	blackUser = core.Participant{ID: "2", Username: "bob", Email: "bob@example.com"}
)

func snapshot(fen string) core.RoomSnapshot {
	w, b := whiteUser, blackUser
	return core.RoomSnapshot{
		ID:          "room-1",
		Code:        "ABC123",
		FEN:         fen,
		WhitePlayer: &w,
		BlackPlayer: &b,
		RoomStatus:  core.RoomPlaying,
	}
}

func sq(t *testing.T, alg string, viewer core.Color) core.Square {
	t.Helper()
	s, err := board.SquareFromAlgebraic(alg, core.OrientationFor(viewer))
	if err != nil {
		t.Fatalf("square %q: %v", alg, err)
	}
	return s
}

type recorder struct {
	mu      sync.Mutex
	updates []Update
}

func (r *recorder) add(u Update) {
	r.mu.Lock()
	r.updates = append(r.updates, u)
	r.mu.Unlock()
}

func (r *recorder) kinds() []UpdateKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []UpdateKind
	for _, u := range r.updates {
		out = append(out, u.Kind)
	}
	return out
}

func join(t *testing.T, ch *fakeChannel, self core.Participant, snap core.RoomSnapshot) (*Coordinator, *recorder) {
	t.Helper()
	c, err := Join(ch, self, snap)
	if err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	rec := &recorder{}
	c.OnUpdate(rec.add)
	return c, rec
}

// remoteMove plays from→to on a scratch board for the given side and
// returns the broadcast the relay would send
func remoteMove(t *testing.T, g *game.Game, from, to string) core.LiveMove {
	t.Helper()
	viewer := g.Viewer()
	p, ok := g.PieceAt(sq(t, from, viewer))
	if !ok {
		t.Fatalf("no piece on %s", from)
	}
	target := sq(t, to, viewer)
	move := core.Move{Piece: p, To: target, Outcome: g.Validate(p, target)}
	if err := g.Apply(move); err != nil {
		t.Fatalf("scratch apply %s-%s: %v", from, to, err)
	}
	return core.LiveMove{Move: move, FEN: g.Encode()}
}

func TestJoinAssignsRoleByEmail(t *testing.T) {
	ch := newFakeChannel()
	self := core.Participant{Email: " BOB@example.com"}
	c, err := Join(ch, self, snapshot(board.StartingFEN))
	if err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	if c.Color() != core.ColorBlack {
		t.Errorf("Color() = %v, want black", c.Color())
	}
	if opp, ok := c.Opponent(); !ok || opp.Email != whiteUser.Email {
		t.Errorf("Opponent() = %+v, %v", opp, ok)
	}
	if c.Position().Orientation != core.OrientationFlip {
		t.Error("black viewer should see a flipped board")
	}
	if _, ok := ch.handlers[core.RoomTopic("ABC123")]; !ok {
		t.Error("room topic not subscribed")
	}

	_, err = Join(ch, core.Participant{Email: "eve@example.com"}, snapshot(board.StartingFEN))
	if !errors.Is(err, ErrNotSeated) {
		t.Errorf("Join(stranger) error = %v, want ErrNotSeated", err)
	}
}

func TestLocalMoveIsSentAndPassesTurn(t *testing.T) {
	ch := newFakeChannel()
	c, rec := join(t, ch, whiteUser, snapshot(board.StartingFEN))

	if !c.IsMyTurn() {
		t.Fatal("white should move first")
	}
	move, err := c.Move(sq(t, "e2", core.ColorWhite), sq(t, "e4", core.ColorWhite), 0)
	if err != nil {
		t.Fatalf("Move() error = %v", err)
	}
	if move.Outcome.Kind != core.OutcomeDoubleStep {
		t.Errorf("Kind = %s, want doubleStep", move.Outcome.Kind)
	}

	if len(ch.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(ch.sent))
	}
	if got, want := ch.sent[0].dest, "/app/room/ABC123/move"; got != want {
		t.Errorf("dest = %q, want %q", got, want)
	}
	if diff := cmp.Diff(move, ch.sent[0].body); diff != "" {
		t.Errorf("sent body mismatch (-want +got):\n%s", diff)
	}

	if c.IsMyTurn() {
		t.Error("turn should pass after an optimistic move")
	}
	if _, err := c.Propose(sq(t, "d2", core.ColorWhite), sq(t, "d4", core.ColorWhite)); !errors.Is(err, core.ErrNotYourTurn) {
		t.Errorf("second Propose() error = %v, want ErrNotYourTurn", err)
	}
	if diff := cmp.Diff([]UpdateKind{UpdateLocalMove}, rec.kinds()); diff != "" {
		t.Errorf("updates mismatch (-want +got):\n%s", diff)
	}
}

func TestEchoOnlyConfirmsPosition(t *testing.T) {
	ch := newFakeChannel()
	c, rec := join(t, ch, whiteUser, snapshot(board.StartingFEN))

	move, err := c.Move(sq(t, "e2", core.ColorWhite), sq(t, "e4", core.ColorWhite), 0)
	if err != nil {
		t.Fatalf("Move() error = %v", err)
	}
	before := c.Position()

	serverFEN := "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1"
	ch.deliver(t, core.RoomTopic("ABC123"), core.LiveMove{Move: move, FEN: serverFEN})

	if got := c.FEN(); got != serverFEN {
		t.Errorf("FEN() = %q, want %q", got, serverFEN)
	}
	if diff := cmp.Diff(before, c.Position()); diff != "" {
		t.Errorf("echo changed the board:\n%s", diff)
	}
	if c.IsMyTurn() {
		t.Error("echo should leave the turn with black")
	}
	if diff := cmp.Diff([]UpdateKind{UpdateLocalMove, UpdateEcho}, rec.kinds()); diff != "" {
		t.Errorf("updates mismatch (-want +got):\n%s", diff)
	}
}

func TestRemoteMoveIsMirroredAndAppliedOnce(t *testing.T) {
	ch := newFakeChannel()
	c, rec := join(t, ch, blackUser, snapshot(board.StartingFEN))

	white, err := game.New(board.StartingFEN, core.ColorWhite, "")
	if err != nil {
		t.Fatal(err)
	}
	lm := remoteMove(t, white, "e2", "e4")
	topic := core.RoomTopic("ABC123")

	ch.deliver(t, topic, lm)
	ch.deliver(t, topic, lm)

	pawn, ok := core.PieceAt(c.Position().Pieces, sq(t, "e4", core.ColorBlack))
	if !ok || pawn.Type != core.Pawn || pawn.Color != core.ColorWhite {
		t.Fatalf("e4 = %+v, %v; want the white pawn", pawn, ok)
	}
	if !pawn.EnPassantEligible {
		t.Error("double-stepped pawn should be en passant eligible")
	}
	if _, ok := core.PieceAt(c.Position().Pieces, sq(t, "e2", core.ColorBlack)); ok {
		t.Error("e2 should be empty")
	}
	if !c.IsMyTurn() {
		t.Error("black should be on move")
	}
	if got := c.FEN(); got != lm.FEN {
		t.Errorf("FEN() = %q, want %q", got, lm.FEN)
	}
	if diff := cmp.Diff([]UpdateKind{UpdateRemoteMove}, rec.kinds()); diff != "" {
		t.Errorf("updates mismatch (-want +got):\n%s", diff)
	}

	last, _ := c.LastMove()
	if last.To != sq(t, "e4", core.ColorBlack) {
		t.Errorf("LastMove().To = %v, want mirrored e4", last.To)
	}
}

func TestRemoteMoveRebindsBySquare(t *testing.T) {
	white, err := game.New(board.StartingFEN, core.ColorWhite, "")
	if err != nil {
		t.Fatal(err)
	}
	remoteMove(t, white, "g1", "f3")
	remoteMove(t, white, "g8", "f6")

	// Black reloaded midgame, so its knight on f3 carries a different id
	ch := newFakeChannel()
	c, rec := join(t, ch, blackUser, snapshot(white.Encode()))
	if c.IsMyTurn() {
		t.Fatal("white should be on move")
	}

	lm := remoteMove(t, white, "f3", "g5")
	if lm.Move.Piece.ID == core.PieceID(core.ColorWhite, core.Knight, 5, 5) {
		t.Fatal("scratch ids unexpectedly match the reloaded board")
	}
	ch.deliver(t, core.RoomTopic("ABC123"), lm)

	knight, ok := core.PieceAt(c.Position().Pieces, sq(t, "g5", core.ColorBlack))
	if !ok || knight.Type != core.Knight {
		t.Fatalf("g5 = %+v, %v; want the white knight", knight, ok)
	}
	if got, want := knight.ID, core.PieceID(core.ColorWhite, core.Knight, 5, 5); got != want {
		t.Errorf("knight id = %q, want local id %q", got, want)
	}
	if diff := cmp.Diff([]UpdateKind{UpdateRemoteMove}, rec.kinds()); diff != "" {
		t.Errorf("updates mismatch (-want +got):\n%s", diff)
	}
}

func TestRemoteMoveOutOfStepResyncs(t *testing.T) {
	ch := newFakeChannel()
	// Black's board is missing the knight the remote side moves
	c, rec := join(t, ch, blackUser, snapshot("4k3/8/8/8/8/8/8/4K3 w - - 0 1"))

	white, err := game.New("4k3/8/8/8/8/8/8/4K1N1 w - - 0 1", core.ColorWhite, "")
	if err != nil {
		t.Fatal(err)
	}
	lm := remoteMove(t, white, "g1", "f3")
	ch.deliver(t, core.RoomTopic("ABC123"), lm)

	if got := c.FEN(); got != lm.FEN {
		t.Errorf("FEN() = %q, want %q", got, lm.FEN)
	}
	if _, ok := core.PieceAt(c.Position().Pieces, sq(t, "f3", core.ColorBlack)); !ok {
		t.Error("resync should place the knight on f3")
	}
	if diff := cmp.Diff([]UpdateKind{UpdateResync}, rec.kinds()); diff != "" {
		t.Errorf("updates mismatch (-want +got):\n%s", diff)
	}
}

func TestSnapshotReassignsRoleAndWinner(t *testing.T) {
	ch := newFakeChannel()
	c, rec := join(t, ch, whiteUser, snapshot(board.StartingFEN))

	swapped := snapshot("4k3/8/8/8/8/8/8/4K3 b - - 0 30")
	swapped.WhitePlayer, swapped.BlackPlayer = swapped.BlackPlayer, swapped.WhitePlayer
	swapped.GameStatus = "black won"
	swapped.CapturedPieces = "QR"
	ch.deliver(t, core.RoomTopic("ABC123"), swapped)

	if c.Color() != core.ColorBlack {
		t.Errorf("Color() = %v, want black after the swap", c.Color())
	}
	if w, ok := c.Winner(); !ok || w != core.ColorBlack {
		t.Errorf("Winner() = %v, %v", w, ok)
	}
	if c.IsMyTurn() {
		t.Error("nobody is on move once the game is won")
	}
	if _, err := c.Propose(sq(t, "e8", core.ColorBlack), sq(t, "d8", core.ColorBlack)); !errors.Is(err, core.ErrGameOver) {
		t.Errorf("Propose() error = %v, want ErrGameOver", err)
	}
	if got := c.Captured().Lost(core.ColorWhite, core.Queen); got != 1 {
		t.Errorf("white queens lost = %d, want 1", got)
	}

	rec.mu.Lock()
	last := rec.updates[len(rec.updates)-1]
	rec.mu.Unlock()
	if last.Kind != UpdateSnapshot || last.Winner != core.ColorBlack {
		t.Errorf("last update = %+v", last)
	}
}

func TestNoticesAndClose(t *testing.T) {
	ch := newFakeChannel()
	c, rec := join(t, ch, blackUser, snapshot(board.StartingFEN))
	topic := core.RoomTopic("ABC123")
	handler := ch.handlers[topic]

	ch.deliver(t, topic, "opponent reconnected")
	ch.deliver(t, topic, `"draw offered"`)

	rec.mu.Lock()
	var notices []string
	for _, u := range rec.updates {
		notices = append(notices, u.Notice)
	}
	rec.mu.Unlock()
	if diff := cmp.Diff([]string{"opponent reconnected", "draw offered"}, notices); diff != "" {
		t.Errorf("notices mismatch (-want +got):\n%s", diff)
	}

	c.Close()
	c.Close()
	if diff := cmp.Diff([]string{topic}, ch.cancelled); diff != "" {
		t.Errorf("cancelled mismatch (-want +got):\n%s", diff)
	}

	// A broadcast already in flight when the room closed
	white, _ := game.New(board.StartingFEN, core.ColorWhite, "")
	data, _ := json.Marshal(remoteMove(t, white, "e2", "e4"))
	handler(data)

	if len(rec.kinds()) != 2 {
		t.Errorf("updates after Close = %v", rec.kinds())
	}
	if _, ok := core.PieceAt(c.Position().Pieces, sq(t, "e4", core.ColorBlack)); ok {
		t.Error("closed room applied a move")
	}
	if _, err := c.Propose(sq(t, "e7", core.ColorBlack), sq(t, "e5", core.ColorBlack)); !errors.Is(err, core.ErrInactive) {
		t.Errorf("Propose() error = %v, want ErrInactive", err)
	}
}

func TestLocalMoveRejections(t *testing.T) {
	ch := newFakeChannel()
	c, _ := join(t, ch, whiteUser, snapshot(board.StartingFEN))
	w := func(alg string) core.Square { return sq(t, alg, core.ColorWhite) }

	if _, err := c.Propose(w("e7"), w("e5")); !errors.Is(err, core.ErrNotYourPiece) {
		t.Errorf("opponent piece: error = %v", err)
	}
	if _, err := c.Propose(w("e4"), w("e5")); !errors.Is(err, core.ErrPieceNotFound) {
		t.Errorf("empty square: error = %v", err)
	}

	move, err := c.Propose(w("e2"), w("e5"))
	if err != nil {
		t.Fatalf("Propose() error = %v", err)
	}
	if move.Outcome.Legal() || move.Outcome.Reason != core.ReasonInvalidGeometry {
		t.Errorf("outcome = %+v, want invalid geometry", move.Outcome)
	}
	if err := c.Play(move); !errors.Is(err, core.ErrIllegalMove) {
		t.Errorf("Play(illegal) error = %v", err)
	}

	// A forged outcome is checked against the board
	forged := core.Move{Piece: move.Piece, To: w("e3"), Outcome: core.Outcome{Kind: core.OutcomeDoubleStep}}
	if err := c.Play(forged); !errors.Is(err, core.ErrIllegalMove) {
		t.Errorf("Play(forged) error = %v", err)
	}
	if len(ch.sent) != 0 {
		t.Errorf("sent %d messages for rejected moves", len(ch.sent))
	}
	if !c.IsMyTurn() {
		t.Error("rejected moves should not pass the turn")
	}
}

func TestPromotionNeedsAChoice(t *testing.T) {
	ch := newFakeChannel()
	c, _ := join(t, ch, whiteUser, snapshot("4k3/P7/8/8/8/8/8/4K3 w - - 0 1"))
	from, to := sq(t, "a7", core.ColorWhite), sq(t, "a8", core.ColorWhite)

	move, err := c.Move(from, to, 0)
	if !errors.Is(err, core.ErrUnresolvedPromotion) {
		t.Fatalf("Move() error = %v, want ErrUnresolvedPromotion", err)
	}
	if move.Outcome.Kind != core.OutcomePromotionPending {
		t.Errorf("Kind = %s", move.Outcome.Kind)
	}
	if err := c.Play(move); !errors.Is(err, core.ErrUnresolvedPromotion) {
		t.Errorf("Play(pending) error = %v", err)
	}
	if _, err := c.Move(from, to, core.King); !errors.Is(err, core.ErrInvalidPromotion) {
		t.Errorf("Move(king) error = %v", err)
	}

	if _, err := c.Move(from, to, core.Queen); err != nil {
		t.Fatalf("Move(queen) error = %v", err)
	}
	queen, ok := core.PieceAt(c.Position().Pieces, to)
	if !ok || queen.Type != core.Queen {
		t.Errorf("a8 = %+v, %v; want a queen", queen, ok)
	}
	if len(ch.sent) != 1 {
		t.Errorf("sent %d messages, want 1", len(ch.sent))
	}
}

func TestSendFailureKeepsOptimisticMove(t *testing.T) {
	ch := newFakeChannel()
	ch.sendErr = core.ErrNotConnected
	c, rec := join(t, ch, whiteUser, snapshot(board.StartingFEN))

	_, err := c.Move(sq(t, "d2", core.ColorWhite), sq(t, "d4", core.ColorWhite), 0)
	if !errors.Is(err, core.ErrNotConnected) {
		t.Fatalf("Move() error = %v, want ErrNotConnected", err)
	}
	if _, ok := core.PieceAt(c.Position().Pieces, sq(t, "d4", core.ColorWhite)); !ok {
		t.Error("optimistic move should stay on the board")
	}
	if diff := cmp.Diff([]UpdateKind{UpdateLocalMove}, rec.kinds()); diff != "" {
		t.Errorf("updates mismatch (-want +got):\n%s", diff)
	}
}
