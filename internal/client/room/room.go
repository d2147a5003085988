package room

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"mychess/internal/client/live"
	"mychess/internal/core"
	"mychess/internal/game"
)

var ErrNotSeated = errors.New("viewer is not seated in this room")

// Channel is the live connection a room talks through; *live.Client
// satisfies it
type Channel interface {
	Send(dest string, body any) error
	Subscribe(topic string, h live.Handler) (cancel func())
}

type UpdateKind int

const (
	UpdateSnapshot UpdateKind = iota + 1
	UpdateLocalMove
	UpdateRemoteMove
	UpdateEcho
	UpdateResync
	UpdateNotice
)

var updateNames = map[UpdateKind]string{
	UpdateSnapshot:   "snapshot",
	UpdateLocalMove:  "local",
	UpdateRemoteMove: "remote",
	UpdateEcho:       "echo",
	UpdateResync:     "resync",
	UpdateNotice:     "notice",
}

func (k UpdateKind) String() string {
	if name, ok := updateNames[k]; ok {
		return name
	}
	return "unknown"
}

// Update is pushed to listeners after every change to the room
type Update struct {
	Kind   UpdateKind
	Move   *core.Move // in the viewer's orientation
	FEN    string
	Notice string
	MyTurn bool
	Winner core.Color // zero while nobody has won
}

type Option func(*Coordinator)

func WithLogger(l *zap.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.log = l
		}
	}
}

// Coordinator keeps one viewer's board in step with the room. Local moves
// are applied optimistically and sent; remote moves are mirrored, rebound
// to local piece identities and applied once.
type Coordinator struct {
	mu     sync.Mutex
	log    *zap.Logger
	ch     Channel
	self   core.Participant
	code   string
	role   Role
	game   *game.Game
	winner core.Color

	lastRemote string // key of the last move applied from the opponent
	active     bool
	cancel     func()

	listeners map[int]func(Update)
	nextID    int
}

// Join seats self in the snapshot's room and subscribes to its broadcasts
func Join(ch Channel, self core.Participant, snap core.RoomSnapshot, opts ...Option) (*Coordinator, error) {
	role, err := AssignRole(snap, self)
	if err != nil {
		return nil, err
	}
	g, err := game.New(snap.FEN, role.Color, snap.CapturedPieces)
	if err != nil {
		return nil, fmt.Errorf("load room %s: %w", snap.Code, err)
	}

	c := &Coordinator{
		log:       zap.NewNop(),
		ch:        ch,
		self:      self,
		code:      snap.Code,
		role:      role,
		game:      g,
		active:    true,
		listeners: make(map[int]func(Update)),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.applyWinnerLocked(snap.GameStatus)
	c.log = c.log.With(zap.String("room", snap.Code), zap.Stringer("color", role.Color))
	c.cancel = ch.Subscribe(core.RoomTopic(snap.Code), c.handle)
	c.log.Debug("joined room", zap.String("fen", snap.FEN))
	return c, nil
}

func (c *Coordinator) Code() string {
	return c.code
}

func (c *Coordinator) Color() core.Color {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.role.Color
}

func (c *Coordinator) Opponent() (core.Participant, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.role.Opponent == nil {
		return core.Participant{}, false
	}
	return *c.role.Opponent, true
}

// IsMyTurn reads the turn field of the latest known position string
func (c *Coordinator) IsMyTurn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.myTurnLocked()
}

func (c *Coordinator) myTurnLocked() bool {
	return c.winner == 0 && c.game.IsMyTurn()
}

func (c *Coordinator) Winner() (core.Color, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.winner, c.winner != 0
}

func (c *Coordinator) FEN() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.game.FEN()
}

func (c *Coordinator) Position() core.Position {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.game.Position()
}

func (c *Coordinator) Captured() game.CapturedTally {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.game.Captured()
}

func (c *Coordinator) LastMove() (core.Move, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.game.LastMove()
}

func (c *Coordinator) InCheck() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.game.InCheck(c.role.Color)
}

// Propose classifies moving the piece on from to target. Turn and
// ownership are checked here so the validator only sees the mover's pieces.
// An illegal move is reported through the outcome, not the error.
func (c *Coordinator) Propose(from, to core.Square) (core.Move, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkMoverLocked(); err != nil {
		return core.Move{}, err
	}
	p, ok := c.game.PieceAt(from)
	if !ok {
		return core.Move{}, fmt.Errorf("%w: nothing on %s", core.ErrPieceNotFound, from)
	}
	if p.Color != c.role.Color {
		return core.Move{}, core.ErrNotYourPiece
	}
	return core.Move{Piece: p, To: to, Outcome: c.game.Validate(p, to)}, nil
}

// Play commits a proposed move locally and sends it to the room
func (c *Coordinator) Play(move core.Move) error {
	c.mu.Lock()
	if err := c.checkMoverLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	if move.Piece.Color != c.role.Color {
		c.mu.Unlock()
		return core.ErrNotYourPiece
	}
	if err := c.recheckLocked(move); err != nil {
		c.mu.Unlock()
		return err
	}
	if err := c.game.Apply(move); err != nil {
		c.mu.Unlock()
		return err
	}
	update := c.updateLocked(UpdateLocalMove, &move)
	c.mu.Unlock()

	c.log.Debug("sending move", zap.String("move", move.Key()))
	if err := c.ch.Send(core.MoveDestination(c.code), move); err != nil {
		// The board keeps the optimistic move; the next snapshot corrects it
		c.log.Warn("move not delivered", zap.Error(err))
		c.publish(update)
		return err
	}
	c.publish(update)
	return nil
}

// Move proposes, resolves a promotion with promo when needed, and plays.
// promo is ignored for moves that do not promote.
func (c *Coordinator) Move(from, to core.Square, promo core.PieceType) (core.Move, error) {
	move, err := c.Propose(from, to)
	if err != nil {
		return move, err
	}
	if !move.Outcome.Legal() {
		return move, fmt.Errorf("%w: %s", core.ErrIllegalMove, move.Outcome.Reason)
	}
	if move.Outcome.Kind == core.OutcomePromotionPending {
		if promo == 0 {
			return move, core.ErrUnresolvedPromotion
		}
		resolved, err := move.Outcome.Resolve(promo)
		if err != nil {
			return move, err
		}
		move.Outcome = resolved
	}
	return move, c.Play(move)
}

// recheckLocked rejects a move whose outcome no longer matches the board
func (c *Coordinator) recheckLocked(move core.Move) error {
	current := c.game.Validate(move.Piece, move.To)
	if !current.Legal() {
		return fmt.Errorf("%w: %s", core.ErrIllegalMove, current.Reason)
	}
	want := move.Outcome.Kind
	if want == core.OutcomePromotionResolved {
		want = core.OutcomePromotionPending
	}
	if current.Kind != want {
		return fmt.Errorf("%w: board now says %s", core.ErrIllegalMove, current.Kind)
	}
	return nil
}

func (c *Coordinator) checkMoverLocked() error {
	switch {
	case !c.active:
		return core.ErrInactive
	case c.winner != 0:
		return core.ErrGameOver
	case !c.game.IsMyTurn():
		return core.ErrNotYourTurn
	}
	return nil
}

// OnUpdate registers fn for every subsequent room update
func (c *Coordinator) OnUpdate(fn func(Update)) (cancel func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// Close stops listening to the room. Broadcasts still in flight are dropped.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return
	}
	c.active = false
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.log.Debug("left room")
}

func (c *Coordinator) handle(body json.RawMessage) {
	in := Decode(body)
	switch {
	case in.Snapshot != nil:
		c.handleSnapshot(*in.Snapshot)
	case in.Move != nil:
		c.handleMove(*in.Move)
	case in.Notice != "":
		c.mu.Lock()
		if !c.active {
			c.mu.Unlock()
			return
		}
		update := c.updateLocked(UpdateNotice, nil)
		update.Notice = in.Notice
		c.mu.Unlock()
		c.publish(update)
	}
}

func (c *Coordinator) handleSnapshot(snap core.RoomSnapshot) {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return
	}
	role, err := AssignRole(snap, c.self)
	if err != nil {
		c.mu.Unlock()
		c.log.Warn("snapshot without our seat", zap.String("code", snap.Code))
		return
	}
	if role.Color != c.role.Color {
		g, err := game.New(snap.FEN, role.Color, snap.CapturedPieces)
		if err != nil {
			c.mu.Unlock()
			c.log.Warn("bad snapshot", zap.Error(err))
			return
		}
		c.game = g
	} else if err := c.game.Load(snap.FEN, snap.CapturedPieces); err != nil {
		c.mu.Unlock()
		c.log.Warn("bad snapshot", zap.Error(err))
		return
	}
	c.role = role
	c.applyWinnerLocked(snap.GameStatus)
	update := c.updateLocked(UpdateSnapshot, nil)
	c.mu.Unlock()

	c.log.Debug("snapshot", zap.String("fen", snap.FEN), zap.String("status", snap.RoomStatus))
	c.publish(update)
}

func (c *Coordinator) handleMove(lm core.LiveMove) {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return
	}

	// Our own move coming back only confirms the position string
	if lm.Move.Piece.Color == c.role.Color {
		c.game.Observe(lm.FEN)
		update := c.updateLocked(UpdateEcho, &lm.Move)
		c.mu.Unlock()
		c.publish(update)
		return
	}

	key := lm.Move.Key()
	if key == c.lastRemote || (lm.FEN != "" && lm.FEN == c.game.FEN()) {
		c.mu.Unlock()
		c.log.Debug("duplicate move ignored", zap.String("move", key))
		return
	}

	move, ok := c.rebindLocked(lm.Move.Mirror())
	kind := UpdateRemoteMove
	if ok {
		if err := c.game.Apply(move); err != nil {
			c.log.Warn("remote move rejected", zap.String("move", key), zap.Error(err))
			ok = false
		}
	}
	if ok {
		c.game.Observe(lm.FEN)
	} else {
		kind = UpdateResync
		tally := c.game.Captured()
		if move.Outcome.Captured != nil {
			tally.Record(*move.Outcome.Captured)
		}
		if err := c.game.Load(lm.FEN, tally.String()); err != nil {
			c.mu.Unlock()
			c.log.Error("cannot resync", zap.String("fen", lm.FEN), zap.Error(err))
			return
		}
	}
	c.lastRemote = key
	update := c.updateLocked(kind, &move)
	c.mu.Unlock()

	c.publish(update)
}

// rebindLocked swaps the sender's piece identities for the ones on this
// board by square; ids drift apart when either side reloads
func (c *Coordinator) rebindLocked(move core.Move) (core.Move, bool) {
	p, ok := c.game.PieceAt(move.Piece.Square)
	if !ok || p.Color != move.Piece.Color || p.Type != move.Piece.Type {
		return move, false
	}
	move.Piece = p

	if move.Outcome.Captured != nil {
		victim, ok := c.game.PieceAt(move.Outcome.Captured.Square)
		if !ok || victim.Color == p.Color {
			return move, false
		}
		move.Outcome.Captured = &victim
	}
	return move, true
}

func (c *Coordinator) applyWinnerLocked(status string) {
	if w, ok := ParseWinner(status); ok {
		c.winner = w
		if w == core.ColorWhite {
			c.game.SetState(core.StateWhiteWins)
		} else {
			c.game.SetState(core.StateBlackWins)
		}
		return
	}
	c.winner = 0
}

func (c *Coordinator) updateLocked(kind UpdateKind, move *core.Move) Update {
	return Update{
		Kind:   kind,
		Move:   move,
		FEN:    c.game.FEN(),
		MyTurn: c.myTurnLocked(),
		Winner: c.winner,
	}
}

func (c *Coordinator) publish(u Update) {
	c.mu.Lock()
	fns := make([]func(Update), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(u)
	}
}
