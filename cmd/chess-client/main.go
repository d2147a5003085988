// Package main implements the interactive chess client: it seats a player
// in a relay room and keeps the board in sync over the live channel.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"go.uber.org/zap"

	"mychess/internal/client/commands"
	"mychess/internal/client/display"
	"mychess/internal/client/live"
	"mychess/internal/client/notify"
	"mychess/internal/client/session"
)

func main() {
	var (
		apiURL   = flag.String("api", "http://localhost:8080", "Relay API base URL")
		liveURL  = flag.String("live", "", "Relay live URL (derived from -api if empty)")
		username = flag.String("username", "", "Player name")
		email    = flag.String("email", "", "Player email, the identity seats are matched by")
		roomCode = flag.String("room", "", "Room code to join on start")
		theme    = flag.String("theme", "brown", "Board theme: off, brown, green, gray")
		logPath  = flag.String("log", "", "Write debug logs to this file")
	)
	flag.Parse()

	t, err := display.ParseTheme(*theme)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if *liveURL == "" {
		*liveURL = commands.LiveURLFor(strings.TrimSuffix(*apiURL, "/"))
	}

	logger, err := newLogger(*logPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          display.Prompt("chess"),
		HistoryFile:     ".chess_history",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		display.Println(os.Stderr, display.Red, err.Error())
		os.Exit(1)
	}
	defer rl.Close()

	// Background updates print through readline so the prompt is redrawn
	out := rl.Stdout()
	s, err := session.New(session.Config{
		APIBaseURL: strings.TrimSuffix(*apiURL, "/"),
		LiveURL:    *liveURL,
		Live:       live.DefaultConfig(),
		Notify:     notify.DefaultConfig(),
		Theme:      t,
	}, out, session.WithLogger(logger))
	if err != nil {
		display.Println(os.Stderr, display.Red, err.Error())
		os.Exit(1)
	}
	defer s.Leave()

	display.Println(out, display.Cyan, "Chess Client")
	display.Println(out, display.Cyan, "API: "+*apiURL+"  Live: "+*liveURL)
	fmt.Fprintf(out, "Type 'help' for commands\n\n")

	registry := commands.NewRegistry(s)
	if *username != "" && *email != "" {
		registry.Execute(fmt.Sprintf("user %s %s", *username, *email))
		if *roomCode != "" {
			registry.Execute("join " + *roomCode)
		}
	}

	for {
		rl.SetPrompt(buildPrompt(s))

		line, err := rl.Readline()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" || line == "x" {
			break
		}

		// Check for verbose flag
		s.Verbose = strings.HasSuffix(line, " -v")
		line = strings.TrimSuffix(line, " -v")

		registry.Execute(line)
	}
	display.Println(out, display.Cyan, "Goodbye!")
}

func newLogger(path string) (*zap.Logger, error) {
	if path == "" {
		return zap.NewNop(), nil
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}
	return cfg.Build()
}

func buildPrompt(s *session.Session) string {
	me := s.Identity()
	var parts []string
	if me.Username != "" {
		parts = append(parts, display.Paint(display.Magenta, me.Username))
	}

	coord := s.Room()
	if coord != nil {
		parts = append(parts, display.Paint(display.White, coord.Code()), display.ColorForTurn(coord.Color()))
	}

	prompt := "chess"
	if len(parts) > 0 {
		prompt += display.Paint(display.Yellow, " [") + strings.Join(parts, " ") + display.Paint(display.Yellow, "]")
	}

	if coord != nil {
		switch {
		case s.PendingPromotion():
			prompt += " - promote?"
		case coord.IsMyTurn():
			prompt += " - your move"
		}
		if ch := s.Channel(); ch != nil && ch.State() != live.StateConnected {
			prompt += " (" + ch.State().String() + ")"
		}
	}
	return display.Prompt(prompt)
}
