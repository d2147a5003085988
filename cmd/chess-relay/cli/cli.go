// Package cli implements the relay's offline database commands
package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"mychess/internal/server/storage"
)

// Run is the entry point for the db mini-app
func Run(args []string) error {
	return run(os.Stdout, args)
}

func run(out io.Writer, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("subcommand required: init, delete, rooms, moves")
	}

	switch args[0] {
	case "init":
		return runInit(out, args[1:])
	case "delete":
		return runDelete(out, args[1:])
	case "rooms":
		return runRooms(out, args[1:])
	case "moves":
		return runMoves(out, args[1:])
	default:
		return fmt.Errorf("unknown subcommand: %s", args[0])
	}
}

// openStore parses the common -path flag plus any extra flags on fs
func openStore(fs *flag.FlagSet, args []string) (*storage.Store, error) {
	path := fs.String("path", "", "Database file path (required)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if *path == "" {
		return nil, fmt.Errorf("database path required")
	}
	store, err := storage.NewStore(*path, false, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return store, nil
}

func runInit(out io.Writer, args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	store, err := openStore(fs, args)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.InitDB(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	fmt.Fprintf(out, "Database initialized at: %s\n", fs.Lookup("path").Value)
	return nil
}

func runDelete(out io.Writer, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	store, err := openStore(fs, args)
	if err != nil {
		return err
	}
	if err := store.DeleteDB(); err != nil {
		return fmt.Errorf("failed to delete database: %w", err)
	}
	fmt.Fprintf(out, "Database deleted: %s\n", fs.Lookup("path").Value)
	return nil
}

func runRooms(out io.Writer, args []string) error {
	fs := flag.NewFlagSet("rooms", flag.ContinueOnError)
	code := fs.String("code", "", "Room code to filter (optional, * for all)")
	email := fs.String("email", "", "Player email to filter (optional, * for all)")
	store, err := openStore(fs, args)
	if err != nil {
		return err
	}
	defer store.Close()

	rooms, err := store.QueryRooms(strings.ToUpper(*code), *email)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	if len(rooms) == 0 {
		fmt.Fprintln(out, "No rooms found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Code\tWhite\tBlack\tStatus\tResult\tCreated")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	for _, r := range rooms {
		black := r.BlackName
		if black == "" {
			black = "-"
		}
		result := r.GameStatus
		if result == "" {
			result = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Code, r.WhiteName, black, r.Status, result,
			r.CreatedAtUTC.Format("2006-01-02 15:04:05"))
	}
	w.Flush()

	fmt.Fprintf(out, "\nFound %d room(s)\n", len(rooms))
	return nil
}

func runMoves(out io.Writer, args []string) error {
	fs := flag.NewFlagSet("moves", flag.ContinueOnError)
	code := fs.String("code", "", "Room code (required)")
	store, err := openStore(fs, args)
	if err != nil {
		return err
	}
	defer store.Close()

	if *code == "" {
		return fmt.Errorf("room code required")
	}
	rooms, err := store.QueryRooms(strings.ToUpper(*code), "")
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	if len(rooms) == 0 {
		return fmt.Errorf("room not found: %s", *code)
	}

	moves, err := store.QueryMoves(rooms[0].RoomID)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tColor\tMove\tKind\tFEN")
	for _, m := range moves {
		fmt.Fprintf(w, "%d\t%s\t%s%s\t%s\t%s\n",
			m.MoveNumber, m.PlayerColor, m.FromSquare, m.ToSquare, m.Outcome, m.FENAfterMove)
	}
	w.Flush()

	fmt.Fprintf(out, "\n%d move(s) in room %s\n", len(moves), rooms[0].Code)
	return nil
}
