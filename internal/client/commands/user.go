package commands

import (
	"fmt"
	"strings"

	"mychess/internal/client/display"
	"mychess/internal/client/session"
)

func (r *Registry) registerUserCommands() {
	const title = "User"
	r.Register(title, &Command{
		Name:        "user",
		ShortName:   "u",
		Description: "Set the name and email you play under",
		Usage:       "user <username> <email>",
		Handler:     userHandler,
	})
	r.Register(title, &Command{
		Name:        "whoami",
		ShortName:   "i",
		Description: "Show your identity and seat",
		Usage:       "whoami",
		Handler:     whoamiHandler,
	})
}

func userHandler(s *session.Session, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: user <username> <email>")
	}
	if !strings.Contains(args[1], "@") {
		return fmt.Errorf("invalid email: %s", args[1])
	}
	s.SetIdentity(args[0], args[1])
	display.Println(s.Out(), display.Green, fmt.Sprintf("Playing as %s <%s>", args[0], args[1]))
	return nil
}

func whoamiHandler(s *session.Session, args []string) error {
	me := s.Identity()
	if me.Username == "" {
		fmt.Fprintln(s.Out(), "No identity set (use 'user <username> <email>')")
		return nil
	}
	fmt.Fprintf(s.Out(), "Username: %s\n", me.Username)
	fmt.Fprintf(s.Out(), "Email:    %s\n", me.Email)
	if coord := s.Room(); coord != nil {
		fmt.Fprintf(s.Out(), "Seat:     %s in %s\n", display.ColorForTurn(coord.Color()), coord.Code())
	}
	return nil
}
