package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Command kinds stored in a room's drawing history. Replaying the history in
// insertion order reconstructs the current canvas.
const (
	CommandStroke = "stroke"
	CommandClear  = "clear"
)

// DrawingCommand is one persisted, ordered element of a room's history.
// The auto-increment ID provides the replay order within a room. Payload is
// raw JSON so replay and HTTP responses embed the object directly instead of
// a string the client would have to parse again.
type DrawingCommand struct {
	ID        uint            `gorm:"primaryKey" json:"-"`
	RoomID    string          `gorm:"index;size:64;not null" json:"-"`
	Kind      string          `gorm:"size:16;not null" json:"kind"`
	Payload   json.RawMessage `gorm:"type:text" json:"payload,omitempty"`
	Timestamp time.Time       `gorm:"not null" json:"timestamp"`
}

// Point is a single canvas coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// StrokePayload is the kind-specific data of a "stroke" command: the ordered
// points of one completed freehand stroke plus its style. A "clear" command
// carries no payload.
type StrokePayload struct {
	Points []Point `json:"points"`
	Color  string  `json:"color"`
	Width  float64 `json:"width"`
}

// ParseStroke decodes the Payload of a stroke command.
func (c *DrawingCommand) ParseStroke() (StrokePayload, error) {
	var p StrokePayload
	if c.Kind != CommandStroke {
		return p, fmt.Errorf("command kind %q has no stroke payload", c.Kind)
	}
	if err := json.Unmarshal(c.Payload, &p); err != nil {
		return p, fmt.Errorf("failed to unmarshal stroke payload: %w", err)
	}
	return p, nil
}

// SetStroke encodes a stroke payload into the command and marks its kind.
func (c *DrawingCommand) SetStroke(p StrokePayload) error {
	bytes, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal stroke payload: %w", err)
	}
	c.Kind = CommandStroke
	c.Payload = bytes
	return nil
}
