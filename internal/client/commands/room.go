package commands

import (
	"fmt"
	"strings"

	"mychess/internal/client/display"
	"mychess/internal/client/session"
	"mychess/internal/core"
)

func (r *Registry) registerRoomCommands() {
	const title = "Room"
	r.Register(title, &Command{
		Name:        "create",
		ShortName:   "n",
		Description: "Open a new room and play white",
		Usage:       "create",
		Handler:     createHandler,
	})
	r.Register(title, &Command{
		Name:        "join",
		ShortName:   "j",
		Description: "Join a room by its code",
		Usage:       "join <code>",
		Handler:     joinHandler,
	})
	r.Register(title, &Command{
		Name:        "move",
		ShortName:   "m",
		Description: "Make a move",
		Usage:       "move <from> <to> [q|r|b|n]  or  move e7e8q",
		Handler:     moveHandler,
	})
	r.Register(title, &Command{
		Name:        "promote",
		ShortName:   "p",
		Description: "Choose the piece for a waiting promotion",
		Usage:       "promote <q|r|b|n>",
		Handler:     promoteHandler,
	})
	r.Register(title, &Command{
		Name:        "board",
		ShortName:   "b",
		Description: "Show the board from your side",
		Usage:       "board [relay]",
		Handler:     boardHandler,
	})
	r.Register(title, &Command{
		Name:        "state",
		ShortName:   "s",
		Description: "Show room, captures and connection state",
		Usage:       "state",
		Handler:     stateHandler,
	})
	r.Register(title, &Command{
		Name:        "resign",
		Description: "Resign the current game",
		Usage:       "resign",
		Handler:     resignHandler,
	})
	r.Register(title, &Command{
		Name:        "reconnect",
		ShortName:   "r",
		Description: "Reconnect the realtime channel now",
		Usage:       "reconnect",
		Handler:     reconnectHandler,
	})
	r.Register(title, &Command{
		Name:        "leave",
		ShortName:   "l",
		Description: "Leave the current room",
		Usage:       "leave",
		Handler:     leaveHandler,
	})
	r.Register(title, &Command{
		Name:        "theme",
		ShortName:   "t",
		Description: "Set the board theme",
		Usage:       "theme <off|brown|green|gray>",
		Handler:     themeHandler,
	})
}

func createHandler(s *session.Session, args []string) error {
	return s.Create()
}

func joinHandler(s *session.Session, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: join <code>")
	}
	return s.Join(args[0])
}

// parseMove accepts "e2 e4", "e2 e4 q", "e2e4" and "e7e8q"
func parseMove(args []string) (from, to string, promo core.PieceType, err error) {
	var rest string
	switch len(args) {
	case 1:
		a := strings.ToLower(args[0])
		if len(a) < 4 || len(a) > 5 {
			return "", "", 0, fmt.Errorf("invalid move %q", args[0])
		}
		from, to, rest = a[:2], a[2:4], a[4:]
	case 2, 3:
		from, to = strings.ToLower(args[0]), strings.ToLower(args[1])
		if len(args) == 3 {
			rest = strings.ToLower(args[2])
		}
	default:
		return "", "", 0, fmt.Errorf("usage: move <from> <to> [q|r|b|n]")
	}

	if rest != "" {
		t, ok := core.PieceTypeFromLetter(rest[0])
		if len(rest) != 1 || !ok || !t.IsPromotionChoice() {
			return "", "", 0, fmt.Errorf("%w: %q", core.ErrInvalidPromotion, rest)
		}
		promo = t
	}
	return from, to, promo, nil
}

func moveHandler(s *session.Session, args []string) error {
	from, to, promo, err := parseMove(args)
	if err != nil {
		return err
	}
	return s.Move(from, to, promo)
}

func promoteHandler(s *session.Session, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: promote <q|r|b|n>")
	}
	return s.Promote(strings.ToLower(args[0]))
}

func boardHandler(s *session.Session, args []string) error {
	coord := s.Room()
	if coord == nil {
		return session.ErrNoRoom
	}
	if len(args) > 0 && args[0] == "relay" {
		b, err := s.Client.GetBoard(coord.Code())
		if err != nil {
			return err
		}
		fmt.Fprintln(s.Out(), b.Board)
		fmt.Fprintln(s.Out(), "FEN: "+b.FEN)
		return nil
	}
	s.RenderBoard()
	return nil
}

func stateHandler(s *session.Session, args []string) error {
	return s.PrintState()
}

func resignHandler(s *session.Session, args []string) error {
	return s.Resign()
}

func reconnectHandler(s *session.Session, args []string) error {
	return s.Reconnect()
}

func leaveHandler(s *session.Session, args []string) error {
	if s.Room() == nil {
		return session.ErrNoRoom
	}
	s.Leave()
	display.Println(s.Out(), display.Cyan, "Left the room")
	return nil
}

func themeHandler(s *session.Session, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: theme <off|brown|green|gray>")
	}
	t, err := display.ParseTheme(args[0])
	if err != nil {
		return err
	}
	s.SetTheme(t)
	s.RenderBoard()
	return nil
}
