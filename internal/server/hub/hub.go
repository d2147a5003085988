// Package hub is the relay's authority over rooms: seating, topic fan-out
// and server-side move checks. Every room keeps one position seen from
// white's side; moves from black are mirrored into it before validation.
package hub

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mychess/internal/board"
	"mychess/internal/core"
	"mychess/internal/game"
	"mychess/internal/server/storage"
)

const codeLength = 6

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomFull     = errors.New("room is full")
	ErrNotSeated    = errors.New("participant is not seated in this room")
)

// Subscriber receives room broadcasts. Deliver is called with the hub lock
// held and must not block.
type Subscriber interface {
	Deliver(topic string, body json.RawMessage) error
}

type room struct {
	id         string
	code       string
	white      *core.Participant
	black      *core.Participant
	status     string
	gameStatus string
	game       *game.Game
	created    time.Time
	subs       map[Subscriber]struct{}
}

type Hub struct {
	mu    sync.Mutex
	rooms map[string]*room
	store *storage.Store // nil if persistence disabled
	log   *zap.Logger
	now   func() time.Time
}

func New(store *storage.Store, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		rooms: make(map[string]*room),
		store: store,
		log:   log.Named("hub"),
		now:   time.Now,
	}
}

// StorageHealth returns the storage component status
func (h *Hub) StorageHealth() string {
	if h.store == nil {
		return "disabled"
	}
	if h.store.IsHealthy() {
		return "ok"
	}
	return "degraded"
}

func (h *Hub) RoomCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms)
}

// CreateRoom opens a room with p in the white seat. p gets an id if it has
// none; the seated participant is returned.
func (h *Hub) CreateRoom(p core.Participant) (core.RoomSnapshot, core.Participant, error) {
	g, err := game.New(board.StartingFEN, core.ColorWhite, "")
	if err != nil {
		return core.RoomSnapshot{}, core.Participant{}, err
	}
	seated := withID(p)

	h.mu.Lock()
	defer h.mu.Unlock()

	code, err := h.uniqueCodeLocked()
	if err != nil {
		return core.RoomSnapshot{}, core.Participant{}, err
	}
	r := &room{
		id:      uuid.NewString(),
		code:    code,
		white:   &seated,
		status:  core.RoomWaiting,
		game:    g,
		created: h.now().UTC(),
		subs:    make(map[Subscriber]struct{}),
	}
	h.rooms[code] = r

	if h.store != nil {
		h.store.RecordRoom(h.recordLocked(r))
	}
	h.log.Info("room created", zap.String("code", code), zap.String("white", seated.Username))
	return snapshotOf(r), seated, nil
}

// JoinRoom takes the black seat, or hands back the seat p already holds.
// The new snapshot is broadcast on the room topic.
func (h *Hub) JoinRoom(code string, p core.Participant) (core.RoomSnapshot, core.Color, core.Participant, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, err := h.roomLocked(code)
	if err != nil {
		return core.RoomSnapshot{}, 0, core.Participant{}, err
	}
	if color, ok := seatOf(r, p); ok {
		seated := *r.white
		if color == core.ColorBlack {
			seated = *r.black
		}
		return snapshotOf(r), color, seated, nil
	}
	if r.black != nil || r.status == core.RoomClosed {
		return core.RoomSnapshot{}, 0, core.Participant{}, ErrRoomFull
	}

	seated := withID(p)
	r.black = &seated
	r.status = core.RoomPlaying
	if h.store != nil {
		h.store.UpdateRoom(h.recordLocked(r))
	}
	snap := snapshotOf(r)
	h.broadcastLocked(r, snap)
	h.log.Info("room joined", zap.String("code", r.code), zap.String("black", seated.Username))
	return snap, core.ColorBlack, seated, nil
}

func (h *Hub) Room(code string) (core.RoomSnapshot, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, err := h.roomLocked(code)
	if err != nil {
		return core.RoomSnapshot{}, err
	}
	return snapshotOf(r), nil
}

// Board renders the room from white's side
func (h *Hub) Board(code string) (core.BoardResponse, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, err := h.roomLocked(code)
	if err != nil {
		return core.BoardResponse{}, err
	}
	return core.BoardResponse{FEN: r.game.FEN(), Board: board.ToASCII(r.game.Position())}, nil
}

// SeatOf reports which color p plays in the room
func (h *Hub) SeatOf(code string, p core.Participant) (core.Color, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, err := h.roomLocked(code)
	if err != nil {
		return 0, err
	}
	color, ok := seatOf(r, p)
	if !ok {
		return 0, ErrNotSeated
	}
	return color, nil
}

func (h *Hub) Subscribe(code string, sub Subscriber) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, err := h.roomLocked(code)
	if err != nil {
		return err
	}
	r.subs[sub] = struct{}{}
	return nil
}

func (h *Hub) Unsubscribe(code string, sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if r, ok := h.rooms[strings.ToUpper(code)]; ok {
		delete(r.subs, sub)
	}
}

// Leave drops sub from every room and returns the codes it was watching
func (h *Hub) Leave(sub Subscriber) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var codes []string
	for code, r := range h.rooms {
		if _, ok := r.subs[sub]; ok {
			delete(r.subs, sub)
			codes = append(codes, code)
		}
	}
	return codes
}

// Notify broadcasts a plain notification on the room topic
func (h *Hub) Notify(code, text string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if r, ok := h.rooms[strings.ToUpper(code)]; ok {
		h.broadcastLocked(r, text)
	}
}

// SubmitMove checks a move sent by a seated player, advances the room and
// broadcasts it. move is in the sender's orientation and so is the returned
// broadcast.
func (h *Hub) SubmitMove(code string, sender core.Participant, move core.Move) (core.LiveMove, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, err := h.roomLocked(code)
	if err != nil {
		return core.LiveMove{}, err
	}
	color, ok := seatOf(r, sender)
	if !ok {
		return core.LiveMove{}, ErrNotSeated
	}
	if r.gameStatus != "" || r.status == core.RoomClosed {
		return core.LiveMove{}, core.ErrGameOver
	}
	if r.game.Turn() != color {
		return core.LiveMove{}, core.ErrNotYourTurn
	}
	if move.Piece.Color != color {
		return core.LiveMove{}, core.ErrNotYourPiece
	}

	// Into the room's orientation
	if color == core.ColorBlack {
		move = move.Mirror()
	}
	p, ok := r.game.PieceAt(move.Piece.Square)
	if !ok || p.Color != color || p.Type != move.Piece.Type {
		return core.LiveMove{}, fmt.Errorf("%w: no %s %s on the sending square", core.ErrPieceNotFound, color.Name(), move.Piece.Type)
	}

	outcome := r.game.Validate(p, move.To)
	if !outcome.Legal() {
		return core.LiveMove{}, fmt.Errorf("%w: %s", core.ErrIllegalMove, outcome.Reason)
	}
	if outcome.Kind == core.OutcomePromotionPending {
		if move.Outcome.Kind != core.OutcomePromotionResolved {
			return core.LiveMove{}, core.ErrUnresolvedPromotion
		}
		if outcome, err = outcome.Resolve(move.Outcome.PromotedTo); err != nil {
			return core.LiveMove{}, err
		}
	}

	applied := core.Move{Piece: p, To: move.To, Outcome: outcome}
	if err := r.game.Apply(applied); err != nil {
		return core.LiveMove{}, err
	}
	fen := r.game.FEN()

	if h.store != nil {
		h.store.RecordMove(storage.MoveRecord{
			RoomID:       r.id,
			MoveNumber:   len(r.game.Moves()),
			PieceID:      applied.Piece.ID,
			FromSquare:   board.Algebraic(applied.Piece.Square, core.OrientationNormal),
			ToSquare:     board.Algebraic(applied.To, core.OrientationNormal),
			Outcome:      applied.Outcome.Kind.String(),
			FENAfterMove: fen,
			PlayerColor:  color.String(),
			MoveTimeUTC:  h.now().UTC(),
		})
		h.store.UpdateRoom(h.recordLocked(r))
	}

	out := applied
	if color == core.ColorBlack {
		out = out.Mirror()
	}
	lm := core.LiveMove{Move: out, FEN: fen}
	h.broadcastLocked(r, lm)
	h.log.Debug("move accepted",
		zap.String("code", r.code),
		zap.String("color", color.Name()),
		zap.String("kind", outcome.Kind.String()),
		zap.String("fen", fen))
	return lm, nil
}

// Resign ends the game in the opponent's favor
func (h *Hub) Resign(code string, sender core.Participant) (core.RoomSnapshot, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, err := h.roomLocked(code)
	if err != nil {
		return core.RoomSnapshot{}, err
	}
	color, ok := seatOf(r, sender)
	if !ok {
		return core.RoomSnapshot{}, ErrNotSeated
	}
	if r.gameStatus != "" {
		return core.RoomSnapshot{}, core.ErrGameOver
	}

	winner := core.OppositeColor(color)
	r.gameStatus = winner.Name() + " won by resignation"
	if winner == core.ColorWhite {
		r.game.SetState(core.StateWhiteWins)
	} else {
		r.game.SetState(core.StateBlackWins)
	}
	r.status = core.RoomClosed
	if h.store != nil {
		h.store.UpdateRoom(h.recordLocked(r))
	}
	snap := snapshotOf(r)
	h.broadcastLocked(r, snap)
	h.log.Info("game over", zap.String("code", r.code), zap.String("status", r.gameStatus))
	return snap, nil
}

func (h *Hub) roomLocked(code string) (*room, error) {
	r, ok := h.rooms[strings.ToUpper(code)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, code)
	}
	return r, nil
}

// uniqueCodeLocked creates a short room code with collision detection
func (h *Hub) uniqueCodeLocked() (string, error) {
	const maxAttempts = 10
	for i := 0; i < maxAttempts; i++ {
		id := strings.ReplaceAll(uuid.NewString(), "-", "")
		code := strings.ToUpper(id[:codeLength])
		if _, exists := h.rooms[code]; !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("failed to generate unique room code after %d attempts", maxAttempts)
}

func (h *Hub) broadcastLocked(r *room, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		h.log.Error("encode broadcast", zap.Error(err))
		return
	}
	topic := core.RoomTopic(r.code)
	for sub := range r.subs {
		if err := sub.Deliver(topic, body); err != nil {
			h.log.Debug("dropping subscriber", zap.String("code", r.code), zap.Error(err))
			delete(r.subs, sub)
		}
	}
}

func (h *Hub) recordLocked(r *room) storage.RoomRecord {
	rec := storage.RoomRecord{
		RoomID:       r.id,
		Code:         r.code,
		WhiteID:      r.white.ID,
		WhiteName:    r.white.Username,
		WhiteEmail:   r.white.Email,
		Status:       r.status,
		GameStatus:   r.gameStatus,
		FEN:          r.game.FEN(),
		Captured:     r.game.Captured().String(),
		CreatedAtUTC: r.created,
	}
	if r.black != nil {
		rec.BlackID = r.black.ID
		rec.BlackName = r.black.Username
		rec.BlackEmail = r.black.Email
	}
	return rec
}

func snapshotOf(r *room) core.RoomSnapshot {
	snap := core.RoomSnapshot{
		ID:             r.id,
		Code:           r.code,
		FEN:            r.game.FEN(),
		CapturedPieces: r.game.Captured().String(),
		RoomStatus:     r.status,
		GameStatus:     r.gameStatus,
	}
	if r.white != nil {
		w := *r.white
		snap.WhitePlayer = &w
	}
	if r.black != nil {
		b := *r.black
		snap.BlackPlayer = &b
	}
	return snap
}

// seatOf matches by email, the identity players keep across reloads
func seatOf(r *room, p core.Participant) (core.Color, bool) {
	email := strings.TrimSpace(p.Email)
	switch {
	case r.white != nil && strings.EqualFold(r.white.Email, email):
		return core.ColorWhite, true
	case r.black != nil && strings.EqualFold(r.black.Email, email):
		return core.ColorBlack, true
	}
	return 0, false
}

func withID(p core.Participant) core.Participant {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.Email = strings.TrimSpace(p.Email)
	return p
}
