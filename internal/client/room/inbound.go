package room

import (
	"bytes"
	"encoding/json"
	"strings"

	"mychess/internal/core"
)

// Inbound is one decoded room broadcast; exactly one field is set
type Inbound struct {
	Snapshot *core.RoomSnapshot
	Move     *core.LiveMove
	Notice   string
}

// Decode classifies a room broadcast. Objects carrying a room code are
// snapshots, objects carrying a move are live moves, anything else is
// shown to the user as a notice.
func Decode(body json.RawMessage) Inbound {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return Inbound{}
	}

	switch trimmed[0] {
	case '{':
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &probe); err != nil {
			break
		}
		if _, ok := probe["code"]; ok {
			var snap core.RoomSnapshot
			if err := json.Unmarshal(trimmed, &snap); err == nil {
				return Inbound{Snapshot: &snap}
			}
		}
		if _, ok := probe["move"]; ok {
			var lm core.LiveMove
			if err := json.Unmarshal(trimmed, &lm); err == nil {
				return Inbound{Move: &lm}
			}
		}
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return Inbound{Notice: s}
		}
	}
	return Inbound{Notice: string(trimmed)}
}

// ParseWinner reads the winner out of a free-form game status such as
// "white won by resignation"
func ParseWinner(status string) (core.Color, bool) {
	s := strings.ToLower(status)
	if !strings.Contains(s, "won") {
		return 0, false
	}
	if strings.Contains(s, "white") {
		return core.ColorWhite, true
	}
	return core.ColorBlack, true
}

// Role is the viewer's seat in a room
type Role struct {
	Color    core.Color
	Opponent *core.Participant
}

// AssignRole seats self by comparing emails against the room's players.
// A viewer in neither seat is an error.
func AssignRole(snap core.RoomSnapshot, self core.Participant) (Role, error) {
	switch {
	case sameParticipant(snap.WhitePlayer, self):
		return Role{Color: core.ColorWhite, Opponent: snap.BlackPlayer}, nil
	case sameParticipant(snap.BlackPlayer, self):
		return Role{Color: core.ColorBlack, Opponent: snap.WhitePlayer}, nil
	}
	return Role{}, ErrNotSeated
}

func sameParticipant(p *core.Participant, self core.Participant) bool {
	if p == nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(p.Email), strings.TrimSpace(self.Email))
}
