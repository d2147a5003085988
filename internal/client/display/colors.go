package display

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// Terminal color codes
const (
	Reset   = "\033[0m"
	Red     = "\033[31m"
	Green   = "\033[32m"
	Yellow  = "\033[33m"
	Blue    = "\033[34m"
	Magenta = "\033[35m"
	Cyan    = "\033[36m"
	White   = "\033[37m"
)

var enabled = detect()

// detect turns colors off for pipes, dumb terminals and NO_COLOR
func detect() bool {
	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func SetEnabled(on bool) {
	enabled = on
}

func Enabled() bool {
	return enabled
}

// Paint wraps text in color when colors are enabled
func Paint(color, text string) string {
	if !enabled || color == "" {
		return text
	}
	return color + text + Reset
}

// Println writes one colored line
func Println(w io.Writer, color, text string) {
	fmt.Fprintln(w, Paint(color, text))
}

// Prompt returns a colored prompt string
func Prompt(text string) string {
	return Paint(Yellow, text+" > ")
}
