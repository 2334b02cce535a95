package main

import (
	"encoding/json"
	"fmt"
)

// ClientFrame is every client→server message after the identity handshake.
// The handshake itself is the raw display name on the first line, not JSON.
type ClientFrame struct {
	Type   string `json:"type"`             // "chat", "join_room", "list_rooms", "direct_message", "start_game", "fire"
	Text   string `json:"text,omitempty"`   // chat / direct_message
	Room   string `json:"room,omitempty"`   // join_room
	Target string `json:"target,omitempty"` // direct_message
}

// ChatMessage carries one chat line to a room or a single recipient.
type ChatMessage struct {
	Type   string `json:"type"` // "chat"
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

// RosterUpdateMessage announces the current membership of a room. During a
// round it reflects the surviving participants.
type RosterUpdateMessage struct {
	Type    string   `json:"type"` // "roster_update"
	Room    string   `json:"room"`
	Players []string `json:"players"`
}

// RoomListMessage answers a list_rooms request.
type RoomListMessage struct {
	Type  string   `json:"type"` // "room_list"
	Rooms []string `json:"rooms"`
}

// ShotFiredMessage reports one trigger pull.
type ShotFiredMessage struct {
	Type       string `json:"type"` // "shot_fired"
	Player     string `json:"player"`
	Fired      bool   `json:"fired"`
	Eliminated bool   `json:"eliminated"`
	Winner     string `json:"winner,omitempty"`
}

// NoticeMessage is for generic notifications sent to a single client or a room.
type NoticeMessage struct {
	Type    string `json:"type"` // "notice"
	Message string `json:"message"`
}

// ServerFullMessage is sent to a connection that was rejected at capacity,
// immediately before it is closed.
type ServerFullMessage struct {
	Type    string `json:"type"` // "server_full"
	Message string `json:"message"`
}

func decodeClientFrame(data []byte) (ClientFrame, error) {
	var frame ClientFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return ClientFrame{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if frame.Type == "" {
		return ClientFrame{}, fmt.Errorf("%w: missing type", ErrMalformedFrame)
	}
	return frame, nil
}
