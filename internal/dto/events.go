// Package dto defines the JSON event envelope exchanged over the WebSocket.
// Event names and payload shapes are part of the client contract.
package dto

import (
	"encoding/json"

	"collaborative-whiteboard/internal/domain"
)

// Client-to-server event types.
const (
	EventJoinRoom    = "join-room"
	EventLeaveRoom   = "leave-room"
	EventCursorMove  = "cursor-move"
	EventDrawStart   = "draw-start"
	EventDrawMove    = "draw-move"
	EventDrawEnd     = "draw-end"
	EventClearCanvas = "clear-canvas"
)

// Server-to-client event types. Draw events are relayed under their inbound
// names.
const (
	EventUserJoined    = "user-joined"
	EventUserLeft      = "user-left"
	EventCursorUpdate  = "cursor-update"
	EventDrawingData   = "drawing-data"
	EventCanvasCleared = "canvas-cleared"
)

// Inbound is the tagged envelope for every client-to-server event. Fields
// not used by an event type are left at their zero value.
type Inbound struct {
	Type   string  `json:"type"`
	RoomID string  `json:"roomId,omitempty"`
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	Color  string  `json:"color,omitempty"`
	Width  float64 `json:"width,omitempty"`
}

type outbound struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// PresencePayload carries the updated member list and the connection that
// joined or left.
type PresencePayload struct {
	Users  []string `json:"users"`
	UserID string   `json:"userId"`
}

// CursorPayload carries one relayed cursor position.
type CursorPayload struct {
	UserID string       `json:"userId"`
	Cursor domain.Point `json:"cursor"`
}

// DrawPayload carries one relayed draw-start or draw-move point with style.
type DrawPayload struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Color string  `json:"color,omitempty"`
	Width float64 `json:"width,omitempty"`
}

func marshal(typ string, payload interface{}) []byte {
	// Payloads are server-built structs; marshaling cannot fail on them.
	b, _ := json.Marshal(outbound{Type: typ, Payload: payload})
	return b
}

// NewUserJoined builds a user-joined broadcast.
func NewUserJoined(users []string, userID string) []byte {
	return marshal(EventUserJoined, PresencePayload{Users: users, UserID: userID})
}

// NewUserLeft builds a user-left broadcast.
func NewUserLeft(users []string, userID string) []byte {
	return marshal(EventUserLeft, PresencePayload{Users: users, UserID: userID})
}

// NewCursorUpdate builds a cursor-update broadcast.
func NewCursorUpdate(userID string, cursor domain.Point) []byte {
	return marshal(EventCursorUpdate, CursorPayload{UserID: userID, Cursor: cursor})
}

// NewDrawEvent builds a relayed draw-start or draw-move broadcast.
func NewDrawEvent(typ string, p DrawPayload) []byte {
	return marshal(typ, p)
}

// NewDrawEnd builds the end-of-stroke marker broadcast.
func NewDrawEnd() []byte {
	return marshal(EventDrawEnd, nil)
}

// NewDrawingData builds the history replay message sent to a joiner. A nil
// history is sent as an empty sequence so the joiner always receives a list.
func NewDrawingData(history []domain.DrawingCommand) []byte {
	if history == nil {
		history = []domain.DrawingCommand{}
	}
	return marshal(EventDrawingData, history)
}

// NewCanvasCleared builds the canvas-cleared broadcast.
func NewCanvasCleared() []byte {
	return marshal(EventCanvasCleared, nil)
}
