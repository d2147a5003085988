// Package session is the interactive client's state: who is playing, the
// room they sit in, and the realtime channel feeding it.
package session

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"

	"mychess/internal/board"
	"mychess/internal/client/api"
	"mychess/internal/client/display"
	"mychess/internal/client/live"
	"mychess/internal/client/notify"
	"mychess/internal/client/room"
	"mychess/internal/core"
)

var (
	ErrNoRoom     = errors.New("not in a room (use create or join)")
	ErrNoIdentity = errors.New("username and email required (use 'user <name> <email>')")
	ErrNoPending  = errors.New("no promotion waiting for a piece")
)

type Config struct {
	APIBaseURL string
	LiveURL    string
	Live       live.Config
	Notify     notify.Config
	Theme      display.Theme
}

// TransportFunc builds the realtime transport for a join token source
type TransportFunc func(token func() string) live.Transport

type Option func(*Session)

func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

func WithTransport(fn TransportFunc) Option {
	return func(s *Session) {
		if fn != nil {
			s.transport = fn
		}
	}
}

type promotion struct {
	from, to core.Square
}

type Session struct {
	Client  *api.Client
	Notices *notify.Queue
	Verbose bool

	cfg       Config
	out       io.Writer
	log       *zap.Logger
	transport TransportFunc

	mu      sync.Mutex
	self    core.Participant
	theme   display.Theme
	channel *live.Client
	room    *room.Coordinator
	pending *promotion
	unsubs  []func()
}

func New(cfg Config, out io.Writer, opts ...Option) (*Session, error) {
	s := &Session{
		Client: api.New(cfg.APIBaseURL),
		cfg:    cfg,
		out:    out,
		log:    zap.NewNop(),
		theme:  cfg.Theme,
	}
	s.transport = func(token func() string) live.Transport {
		return &live.WebsocketTransport{URL: s.cfg.LiveURL, Token: token}
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Client.Out = out

	q, err := notify.New(cfg.Notify, notify.WithListener(func(t notify.Toast) {
		fmt.Fprintln(s.out, display.Toast(t))
	}))
	if err != nil {
		return nil, err
	}
	s.Notices = q
	return s, nil
}

func (s *Session) Out() io.Writer { return s.out }

func (s *Session) SetIdentity(username, email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.self = core.Participant{Username: username, Email: strings.TrimSpace(email)}
}

func (s *Session) Identity() core.Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.self
}

func (s *Session) SetAPIBaseURL(u string) {
	s.cfg.APIBaseURL = u
	s.Client.SetBaseURL(u)
}

func (s *Session) SetLiveURL(u string) {
	s.cfg.LiveURL = u
}

func (s *Session) URLs() (apiURL, liveURL string) {
	return s.cfg.APIBaseURL, s.cfg.LiveURL
}

func (s *Session) SetTheme(t display.Theme) {
	s.mu.Lock()
	s.theme = t
	s.mu.Unlock()
}

// Room returns the current coordinator, or nil outside a room
func (s *Session) Room() *room.Coordinator {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room
}

// Channel returns the realtime client, or nil outside a room
func (s *Session) Channel() *live.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channel
}

// Create opens a new room and sits down as white
func (s *Session) Create() error {
	self := s.Identity()
	if self.Username == "" || self.Email == "" {
		return ErrNoIdentity
	}
	resp, err := s.Client.CreateRoom(&core.CreateRoomRequest{Username: self.Username, Email: self.Email})
	if err != nil {
		return err
	}
	return s.enter(resp)
}

// Join takes a seat in an existing room
func (s *Session) Join(code string) error {
	self := s.Identity()
	if self.Username == "" || self.Email == "" {
		return ErrNoIdentity
	}
	resp, err := s.Client.JoinRoom(strings.ToUpper(code), &core.JoinRoomRequest{Username: self.Username, Email: self.Email})
	if err != nil {
		return err
	}
	return s.enter(resp)
}

func (s *Session) enter(resp *core.JoinResponse) error {
	s.Leave()

	seat := resp.Room.WhitePlayer
	if resp.Color == core.ColorBlack {
		seat = resp.Room.BlackPlayer
	}
	if seat == nil {
		return fmt.Errorf("room %s has no %s seat for us", resp.Room.Code, resp.Color.Name())
	}

	client := s.Client
	ch, err := live.New(s.cfg.Live, s.transport(func() string { return client.AuthToken }),
		live.WithLogger(s.log.Named("live")),
		live.WithNotices(func(n live.Notice) {
			s.Notices.Enqueue(n.Message, notify.Variant(n.Level), 0)
		}))
	if err != nil {
		return err
	}

	coord, err := room.Join(ch, *seat, resp.Room, room.WithLogger(s.log.Named("room")))
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.self.ID = seat.ID
	s.channel = ch
	s.room = coord
	s.pending = nil
	s.unsubs = []func(){coord.OnUpdate(s.onUpdate)}
	s.mu.Unlock()

	ch.Connect()

	display.Println(s.out, display.Green, fmt.Sprintf("Joined room %s as %s", resp.Room.Code, resp.Color.Name()))
	if resp.Color == core.ColorWhite && resp.Room.BlackPlayer == nil {
		display.Println(s.out, display.Cyan, "Share the room code with your opponent: "+resp.Room.Code)
	}
	s.RenderBoard()
	return nil
}

// Leave closes the room and its channel
func (s *Session) Leave() {
	s.mu.Lock()
	coord, ch, unsubs := s.room, s.channel, s.unsubs
	s.room, s.channel, s.unsubs, s.pending = nil, nil, nil, nil
	s.mu.Unlock()

	for _, fn := range unsubs {
		fn()
	}
	if coord != nil {
		coord.Close()
	}
	if ch != nil {
		ch.Disconnect()
	}
}

// Move plays from-to given in algebraic notation. A promotion without a
// piece is parked until Promote.
func (s *Session) Move(fromAlg, toAlg string, promo core.PieceType) error {
	coord := s.Room()
	if coord == nil {
		return ErrNoRoom
	}
	o := core.OrientationFor(coord.Color())
	from, err := board.SquareFromAlgebraic(fromAlg, o)
	if err != nil {
		return err
	}
	to, err := board.SquareFromAlgebraic(toAlg, o)
	if err != nil {
		return err
	}

	_, err = coord.Move(from, to, promo)
	if errors.Is(err, core.ErrUnresolvedPromotion) {
		s.mu.Lock()
		s.pending = &promotion{from: from, to: to}
		s.mu.Unlock()
		display.Println(s.out, display.Yellow, "Promotion: choose a piece with 'promote q|r|b|n'")
		return nil
	}
	return err
}

// Promote finishes a parked promotion
func (s *Session) Promote(letter string) error {
	s.mu.Lock()
	p := s.pending
	s.mu.Unlock()
	if p == nil {
		return ErrNoPending
	}
	coord := s.Room()
	if coord == nil {
		return ErrNoRoom
	}

	if len(letter) != 1 {
		return fmt.Errorf("%w: %q", core.ErrInvalidPromotion, letter)
	}
	t, ok := core.PieceTypeFromLetter(letter[0])
	if !ok || !t.IsPromotionChoice() {
		return fmt.Errorf("%w: %q", core.ErrInvalidPromotion, letter)
	}
	if _, err := coord.Move(p.from, p.to, t); err != nil {
		return err
	}
	s.mu.Lock()
	s.pending = nil
	s.mu.Unlock()
	return nil
}

// PendingPromotion reports whether a promotion is waiting for a piece
func (s *Session) PendingPromotion() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil
}

func (s *Session) Resign() error {
	coord := s.Room()
	if coord == nil {
		return ErrNoRoom
	}
	_, err := s.Client.Resign(coord.Code())
	return err
}

func (s *Session) Reconnect() error {
	ch := s.Channel()
	if ch == nil {
		return ErrNoRoom
	}
	ch.Reconnect()
	return nil
}

// RenderBoard draws the room from the player's side
func (s *Session) RenderBoard() {
	coord := s.Room()
	if coord == nil {
		return
	}
	s.mu.Lock()
	theme := s.theme
	s.mu.Unlock()

	var last *core.Move
	if m, ok := coord.LastMove(); ok {
		last = &m
	}
	display.RenderBoard(s.out, coord.Position(), theme, last)
	s.printStatus(coord)
}

func (s *Session) printStatus(coord *room.Coordinator) {
	if winner, ok := coord.Winner(); ok {
		display.Println(s.out, display.Magenta, "Game over: "+winner.Name()+" won")
		return
	}
	pos := coord.Position()
	line := "Turn: " + display.ColorForTurn(pos.Turn)
	if coord.IsMyTurn() {
		line += " (your move)"
	}
	if coord.InCheck() {
		line += display.Paint(display.Red, " CHECK")
	}
	fmt.Fprintln(s.out, line)
}

// PrintState summarizes the room and the channel
func (s *Session) PrintState() error {
	coord := s.Room()
	if coord == nil {
		return ErrNoRoom
	}
	ch := s.Channel()
	me := coord.Color()

	fmt.Fprintf(s.out, "Room:       %s\n", coord.Code())
	fmt.Fprintf(s.out, "You:        %s\n", display.ColorForTurn(me))
	if opp, ok := coord.Opponent(); ok {
		fmt.Fprintf(s.out, "Opponent:   %s <%s>\n", opp.Username, opp.Email)
	} else {
		fmt.Fprintf(s.out, "Opponent:   waiting\n")
	}
	fmt.Fprintf(s.out, "FEN:        %s\n", coord.FEN())
	fmt.Fprintf(s.out, "Captured:   you %s / them %s\n",
		display.Captured(coord.Captured(), me), display.Captured(coord.Captured(), core.OppositeColor(me)))
	if ch != nil {
		fmt.Fprintf(s.out, "Connection: %s (attempts %d, queued %d)\n", ch.State(), ch.Attempts(), ch.QueueLen())
	}
	s.printStatus(coord)
	return nil
}

func (s *Session) onUpdate(u room.Update) {
	switch u.Kind {
	case room.UpdateLocalMove, room.UpdateRemoteMove, room.UpdateResync:
		if u.Kind == room.UpdateResync {
			s.Notices.Warning("Board resynced with the room.")
		}
		if u.Kind == room.UpdateRemoteMove && u.Move != nil {
			coord := s.Room()
			if coord != nil {
				o := core.OrientationFor(coord.Color())
				s.Notices.Info("Opponent played " +
					board.Algebraic(u.Move.Piece.Square, o) + board.Algebraic(u.Move.To, o))
			}
		}
		s.RenderBoard()
	case room.UpdateSnapshot:
		if u.Winner != 0 {
			s.Notices.Success("Game over: " + u.Winner.Name() + " won.")
		}
		s.RenderBoard()
	case room.UpdateNotice:
		s.Notices.Info(u.Notice)
	case room.UpdateEcho:
		s.log.Debug("move confirmed", zap.String("fen", u.FEN))
	}
}
