package hub

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"collaborative-whiteboard/internal/domain"
	"collaborative-whiteboard/internal/dto"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	// Per-client outbound buffer. A full buffer drops, never blocks.
	sendBufferSize = 256
)

// Client is one live WebSocket connection. Its read pump is the single entry
// point for the connection's events, so per-connection state (the stroke
// accumulator) needs no locking.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	id   string
	send chan []byte

	// pending stroke between draw-start and draw-end; read pump only.
	stroke *strokeAccumulator
}

type strokeAccumulator struct {
	points []domain.Point
	color  string
	width  float64
}

// NewClient creates a Client for an upgraded connection.
func NewClient(h *Hub, conn *websocket.Conn, connID string) *Client {
	return &Client{
		hub:  h,
		conn: conn,
		id:   connID,
		send: make(chan []byte, sendBufferSize),
	}
}

// ID returns the opaque connection identifier.
func (c *Client) ID() string { return c.id }

// Run starts the read and write pumps.
func (c *Client) Run() {
	go c.writePump()
	go c.readPump()
}

// readPump reads events off the connection and dispatches them in order.
// On exit it synchronously removes the connection from the registry and
// emits the user-left broadcast.
func (c *Client) readPump() {
	defer func() {
		c.hub.HandleDisconnect(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			logCtx := logrus.WithField("conn_id", c.id)
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logCtx.WithError(err).Warn("WebSocket read error")
			} else {
				logCtx.Debug("WebSocket connection closed")
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		c.dispatch(message)
	}
}

// dispatch decodes the event envelope and routes it to the matching hub
// operation. Unknown event types are dropped.
func (c *Client) dispatch(raw []byte) {
	var in dto.Inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		logrus.WithField("conn_id", c.id).WithError(err).Warn("Dropping malformed event")
		return
	}

	switch in.Type {
	case dto.EventJoinRoom:
		c.hub.HandleJoin(c, in.RoomID)
	case dto.EventLeaveRoom:
		c.hub.HandleLeave(c, in.RoomID)
	case dto.EventCursorMove:
		c.hub.HandleCursorMove(c, in)
	case dto.EventDrawStart:
		c.hub.HandleDrawStart(c, in)
	case dto.EventDrawMove:
		c.hub.HandleDrawMove(c, in)
	case dto.EventDrawEnd:
		c.hub.HandleDrawEnd(c, in)
	case dto.EventClearCanvas:
		c.hub.HandleClear(c, in)
	default:
		logrus.WithFields(logrus.Fields{"conn_id": c.id, "event": in.Type}).Debug("Dropping unknown event type")
	}
}

// writePump drains the send buffer onto the connection and keeps the
// connection alive with periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel during disconnect.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logrus.WithField("conn_id", c.id).WithError(err).Warn("Failed to write message to websocket")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// beginStroke opens a new accumulator at the stroke's starting point. An
// unfinished previous stroke is discarded.
func (c *Client) beginStroke(in dto.Inbound) {
	c.stroke = &strokeAccumulator{
		points: []domain.Point{{X: in.X, Y: in.Y}},
		color:  in.Color,
		width:  in.Width,
	}
}

// addStrokePoint appends a point to the open stroke. Moves without a
// preceding draw-start are ignored.
func (c *Client) addStrokePoint(in dto.Inbound) {
	if c.stroke == nil {
		return
	}
	c.stroke.points = append(c.stroke.points, domain.Point{X: in.X, Y: in.Y})
}

// finishStroke closes the accumulator and returns the completed stroke.
func (c *Client) finishStroke() (domain.StrokePayload, bool) {
	if c.stroke == nil {
		return domain.StrokePayload{}, false
	}
	stroke := domain.StrokePayload{
		Points: c.stroke.points,
		Color:  c.stroke.color,
		Width:  c.stroke.width,
	}
	c.stroke = nil
	return stroke, true
}

// resetStroke drops any in-progress stroke, used on leave and clear.
func (c *Client) resetStroke() {
	c.stroke = nil
}
