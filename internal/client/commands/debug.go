package commands

import (
	"fmt"
	"strings"
	"time"

	"mychess/internal/client/display"
	"mychess/internal/client/session"
)

func (r *Registry) registerDebugCommands() {
	const title = "Utility"
	r.Register(title, &Command{
		Name:        "health",
		ShortName:   ".",
		Description: "Check relay health",
		Usage:       "health",
		Handler:     healthHandler,
	})
	r.Register(title, &Command{
		Name:        "url",
		ShortName:   "/",
		Description: "Show or set the relay URLs",
		Usage:       "url [apiUrl [liveUrl]]",
		Handler:     urlHandler,
	})
	r.Register(title, &Command{
		Name:        "notices",
		ShortName:   "!",
		Description: "List notifications still on screen",
		Usage:       "notices",
		Handler:     noticesHandler,
	})
	r.Register(title, &Command{
		Name:        "clear",
		ShortName:   "-",
		Description: "Clear screen",
		Usage:       "clear",
		Handler:     clearHandler,
	})
}

func healthHandler(s *session.Session, args []string) error {
	resp, err := s.Client.Health()
	if err != nil {
		return err
	}

	out := s.Out()
	fmt.Fprintln(out, display.Paint(display.Cyan, "Relay Health:"))
	fmt.Fprintf(out, "  Status:  %s\n", resp.Status)
	fmt.Fprintf(out, "  Time:    %s\n", time.Unix(resp.Time, 0).Format("2006-01-02 15:04:05"))
	if resp.Storage != "" {
		fmt.Fprintf(out, "  Storage: %s\n", resp.Storage)
	}
	fmt.Fprintf(out, "  Rooms:   %d\n", resp.Rooms)
	return nil
}

// LiveURLFor derives the websocket endpoint from an API base URL
func LiveURLFor(apiURL string) string {
	switch {
	case strings.HasPrefix(apiURL, "https://"):
		return "wss://" + strings.TrimPrefix(apiURL, "https://") + "/live"
	default:
		return "ws://" + strings.TrimPrefix(apiURL, "http://") + "/live"
	}
}

func urlHandler(s *session.Session, args []string) error {
	if len(args) == 0 {
		apiURL, liveURL := s.URLs()
		fmt.Fprintf(s.Out(), "API URL:  %s\nLive URL: %s\n", apiURL, liveURL)
		return nil
	}

	apiURL := strings.TrimSuffix(args[0], "/")
	if !strings.HasPrefix(apiURL, "http://") && !strings.HasPrefix(apiURL, "https://") {
		apiURL = "http://" + apiURL
	}
	liveURL := LiveURLFor(apiURL)
	if len(args) > 1 {
		liveURL = args[1]
	}

	s.SetAPIBaseURL(apiURL)
	s.SetLiveURL(liveURL)
	display.Println(s.Out(), display.Cyan, "API URL set to: "+apiURL)
	display.Println(s.Out(), display.Cyan, "Live URL set to: "+liveURL)
	if s.Room() != nil {
		fmt.Fprintln(s.Out(), "The new URLs apply from the next create or join")
	}
	return nil
}

func noticesHandler(s *session.Session, args []string) error {
	visible := s.Notices.Visible()
	if len(visible) == 0 {
		fmt.Fprintln(s.Out(), "No notifications")
		return nil
	}
	for _, t := range visible {
		fmt.Fprintln(s.Out(), display.Toast(t))
	}
	return nil
}

func clearHandler(s *session.Session, args []string) error {
	fmt.Fprint(s.Out(), "\033[H\033[2J")
	return nil
}
