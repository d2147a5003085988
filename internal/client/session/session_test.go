package session

import (
	"bytes"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"mychess/internal/client/display"
	"mychess/internal/client/live"
	"mychess/internal/client/notify"
	"mychess/internal/core"
	"mychess/internal/server/hub"
	relay "mychess/internal/server/http"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func startRelay(t *testing.T) (apiURL, liveURL string) {
	t.Helper()
	tokens, err := relay.NewTokens([]byte("test-secret-minimum-32-characters-long"))
	if err != nil {
		t.Fatal(err)
	}
	app := relay.NewFiberApp(hub.New(nil, nil), tokens, true, nil)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go app.Listener(ln)
	t.Cleanup(func() { app.Shutdown() })

	addr := ln.Addr().String()
	return "http://" + addr, "ws://" + addr + "/live"
}

func newSession(t *testing.T, apiURL, liveURL, name string) (*Session, *syncBuffer) {
	t.Helper()
	display.SetEnabled(false)
	out := &syncBuffer{}
	s, err := New(Config{
		APIBaseURL: apiURL,
		LiveURL:    liveURL,
		Live:       live.DefaultConfig(),
		Notify:     notify.DefaultConfig(),
	}, out)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	s.SetIdentity(name, name+"@example.com")
	t.Cleanup(s.Leave)
	return s, out
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestTwoPlayersOverRelay(t *testing.T) {
	apiURL, liveURL := startRelay(t)
	ann, annOut := newSession(t, apiURL, liveURL, "ann")
	bob, _ := newSession(t, apiURL, liveURL, "bob")

	if err := ann.Create(); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	code := ann.Room().Code()
	if err := bob.Join(strings.ToLower(code)); err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	if ann.Room().Color() != core.ColorWhite || bob.Room().Color() != core.ColorBlack {
		t.Fatalf("colors = %v / %v", ann.Room().Color(), bob.Room().Color())
	}

	eventually(t, "both channels connected", func() bool {
		return ann.Channel().State() == live.StateConnected && bob.Channel().State() == live.StateConnected
	})
	eventually(t, "ann to see her opponent", func() bool {
		_, ok := ann.Room().Opponent()
		return ok
	})

	if err := bob.Move("e7", "e5", 0); !errors.Is(err, core.ErrNotYourTurn) {
		t.Errorf("black moving first error = %v", err)
	}
	if err := ann.Move("e2", "e4", 0); err != nil {
		t.Fatalf("ann Move() error = %v", err)
	}
	eventually(t, "bob's turn", bob.Room().IsMyTurn)

	if err := bob.Move("e7", "e5", 0); err != nil {
		t.Fatalf("bob Move() error = %v", err)
	}
	eventually(t, "ann's turn", ann.Room().IsMyTurn)
	if fen := ann.Room().FEN(); !strings.HasPrefix(fen, "rnbqkbnr/pppp1ppp/8/4p3/4P3/8/PPPP1PPP/RNBQKBNR w") {
		t.Errorf("ann FEN = %q", fen)
	}
	if !strings.Contains(annOut.String(), "Opponent played e7e5") {
		t.Errorf("ann output missing the remote move:\n%s", annOut.String())
	}

	if err := ann.Resign(); err != nil {
		t.Fatalf("Resign() error = %v", err)
	}
	eventually(t, "bob to see the result", func() bool {
		w, ok := bob.Room().Winner()
		return ok && w == core.ColorBlack
	})
	if err := bob.PrintState(); err != nil {
		t.Errorf("PrintState() error = %v", err)
	}
}

func TestCommandsOutsideARoom(t *testing.T) {
	s, _ := newSession(t, "http://127.0.0.1:1", "ws://127.0.0.1:1/live", "ann")

	if err := s.Move("e2", "e4", 0); !errors.Is(err, ErrNoRoom) {
		t.Errorf("Move() error = %v", err)
	}
	if err := s.Promote("q"); !errors.Is(err, ErrNoPending) {
		t.Errorf("Promote() error = %v", err)
	}
	if err := s.Reconnect(); !errors.Is(err, ErrNoRoom) {
		t.Errorf("Reconnect() error = %v", err)
	}
	if err := s.PrintState(); !errors.Is(err, ErrNoRoom) {
		t.Errorf("PrintState() error = %v", err)
	}

	s.SetIdentity("", "")
	if err := s.Create(); !errors.Is(err, ErrNoIdentity) {
		t.Errorf("Create() error = %v", err)
	}
	if err := s.Join("ABC123"); !errors.Is(err, ErrNoIdentity) {
		t.Errorf("Join() error = %v", err)
	}
}
