package commands

import (
	"fmt"
	"strings"

	"mychess/internal/client/display"
	"mychess/internal/client/session"
)

// Command defines a client command with its handler
type Command struct {
	Name        string
	ShortName   string
	Description string
	Usage       string
	Handler     func(*session.Session, []string) error
}

type group struct {
	title string
	names []string
}

// Registry manages command registration and execution
type Registry struct {
	session  *session.Session
	commands map[string]*Command
	groups   []group
}

func NewRegistry(s *session.Session) *Registry {
	r := &Registry{
		session:  s,
		commands: make(map[string]*Command),
	}

	r.registerRoomCommands()
	r.registerUserCommands()
	r.registerDebugCommands()

	r.Register("Utility", &Command{
		Name:        "help",
		ShortName:   "?",
		Description: "Show available commands",
		Usage:       "help [command]",
		Handler:     r.helpHandler,
	})

	return r
}

// Register adds cmd under its name and short name, listed in help under title
func (r *Registry) Register(title string, cmd *Command) {
	r.commands[cmd.Name] = cmd
	if cmd.ShortName != "" {
		r.commands[cmd.ShortName] = cmd
	}
	for i := range r.groups {
		if r.groups[i].title == title {
			r.groups[i].names = append(r.groups[i].names, cmd.Name)
			return
		}
	}
	r.groups = append(r.groups, group{title: title, names: []string{cmd.Name}})
}

// Execute runs one input line; errors are printed, not returned
func (r *Registry) Execute(input string) {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return
	}
	out := r.session.Out()

	cmdName := parts[0]
	args := parts[1:]

	cmd, exists := r.commands[cmdName]
	if !exists {
		display.Println(out, display.Red, "Unknown command: "+cmdName)
		fmt.Fprintln(out, "Type 'help' for available commands")
		return
	}

	r.session.Client.SetVerbose(r.session.Verbose)

	if err := cmd.Handler(r.session, args); err != nil {
		display.Println(out, display.Red, "Error: "+err.Error())
	}
}

func (r *Registry) helpHandler(s *session.Session, args []string) error {
	out := s.Out()
	if len(args) > 0 {
		cmd, exists := r.commands[args[0]]
		if !exists {
			return fmt.Errorf("unknown command: %s", args[0])
		}
		fmt.Fprintf(out, "\n%s - %s\n", display.Paint(display.Cyan, cmd.Name), cmd.Description)
		if cmd.ShortName != "" {
			fmt.Fprintf(out, "Short form: %s\n", display.Paint(display.Cyan, cmd.ShortName))
		}
		fmt.Fprintf(out, "Usage: %s\n", cmd.Usage)
		return nil
	}

	fmt.Fprintf(out, "\n%s\n\n", display.Paint(display.Cyan, "Available Commands:"))
	for i, g := range r.groups {
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintln(out, display.Paint(display.Yellow, g.title+" Commands:"))
		for _, name := range g.names {
			cmd := r.commands[name]
			shortPart := "    "
			if cmd.ShortName != "" {
				shortPart = "[" + display.Paint(display.Cyan, cmd.ShortName) + "] "
			}
			fmt.Fprintf(out, "  %s%-10s %s\n", shortPart, cmd.Name, cmd.Description)
		}
	}

	fmt.Fprintf(out, "\nType 'help <command>' for detailed usage\n")
	fmt.Fprintf(out, "Add '-v' to any command for verbose output\n")
	return nil
}
