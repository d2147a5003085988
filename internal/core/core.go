package core

import "fmt"

// State is the server-supplied game status as seen by the client
type State int

const (
	StateOngoing State = iota
	StateWhiteWins
	StateBlackWins
)

func (s State) String() string {
	switch s {
	case StateWhiteWins:
		return "white won"
	case StateBlackWins:
		return "black won"
	default:
		return "ongoing"
	}
}

type Color byte

const (
	ColorWhite Color = 'w'
	ColorBlack Color = 'b'
)

func (c Color) String() string {
	switch c {
	case ColorWhite:
		return "w"
	case ColorBlack:
		return "b"
	default:
		return "-"
	}
}

// Name returns the long form used in room status strings
func (c Color) Name() string {
	if c == ColorBlack {
		return "black"
	}
	return "white"
}

func (c Color) Valid() bool {
	return c == ColorWhite || c == ColorBlack
}

func (c Color) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid color %q", byte(c))
	}
	return []byte(c.String()), nil
}

func (c *Color) UnmarshalText(text []byte) error {
	switch string(text) {
	case "w":
		*c = ColorWhite
	case "b":
		*c = ColorBlack
	default:
		return fmt.Errorf("invalid color %q", text)
	}
	return nil
}

func OppositeColor(c Color) Color {
	if c == ColorWhite {
		return ColorBlack
	}
	return ColorWhite
}

// Orientation decides which FEN rank is rendered as row 0
type Orientation int

const (
	OrientationNormal Orientation = iota // row 0 = rank 8
	OrientationFlip                      // row 0 = rank 1
)

func (o Orientation) String() string {
	if o == OrientationFlip {
		return "flip"
	}
	return "normal"
}

// OrientationFor keeps the viewer's own pieces at the bottom
func OrientationFor(viewer Color) Orientation {
	if viewer == ColorBlack {
		return OrientationFlip
	}
	return OrientationNormal
}
