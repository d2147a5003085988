package core

import (
	"encoding/json"
	"strings"
)

type FrameType string

const (
	FrameSubscribe   FrameType = "subscribe"
	FrameUnsubscribe FrameType = "unsubscribe"
	FrameSend        FrameType = "send"
	FrameMessage     FrameType = "message"
	FrameHeartbeat   FrameType = "heartbeat"
)

// Frame is one realtime envelope; Topic is a subscription topic for
// subscribe and message frames and a destination for send frames
type Frame struct {
	Type  FrameType       `json:"type"`
	Topic string          `json:"topic,omitempty"`
	Body  json.RawMessage `json:"body,omitempty"`
}

const (
	roomTopicPrefix = "/topic/room/"
	roomAppPrefix   = "/app/room/"
	moveDestSuffix  = "/move"
)

// RoomTopic is where a room's snapshots, moves and notices are published
func RoomTopic(code string) string {
	return roomTopicPrefix + code
}

// MoveDestination is where a player sends moves for a room
func MoveDestination(code string) string {
	return roomAppPrefix + code + moveDestSuffix
}

// RoomFromTopic extracts the room code from a topic
func RoomFromTopic(topic string) (string, bool) {
	code, ok := strings.CutPrefix(topic, roomTopicPrefix)
	return code, ok && code != ""
}

// RoomFromDestination extracts the room code from a move destination
func RoomFromDestination(dest string) (string, bool) {
	rest, ok := strings.CutPrefix(dest, roomAppPrefix)
	if !ok {
		return "", false
	}
	code, ok := strings.CutSuffix(rest, moveDestSuffix)
	return code, ok && code != "" && !strings.Contains(code, "/")
}
