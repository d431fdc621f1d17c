// Package hub coordinates live connections: room membership changes with
// presence broadcasts and history replay, throttled cursor relay, and the
// ordered drawing relay with selective write-through to the Room Store.
package hub

import (
	"context"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"collaborative-whiteboard/internal/domain"
	"collaborative-whiteboard/internal/dto"
	"collaborative-whiteboard/internal/registry"
	"collaborative-whiteboard/internal/service"
	"collaborative-whiteboard/internal/tasks"
)

// TaskEnqueuer queues background tasks. *asynq.Client satisfies it; tests
// substitute a fake.
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Hub routes events between the connections of a room. Event handlers run on
// each connection's read pump, so one connection's events are processed in
// emission order; no ordering is guaranteed across connections. Broadcasts
// are non-blocking sends into per-client buffers, so a slow receiver drops
// messages rather than stalling the room.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client

	registry *registry.Registry
	rooms    *service.RoomService
	enqueuer TaskEnqueuer
}

// NewHub creates a Hub.
func NewHub(reg *registry.Registry, rooms *service.RoomService, enqueuer TaskEnqueuer) *Hub {
	if reg == nil {
		panic("Registry cannot be nil for Hub")
	}
	if rooms == nil {
		panic("RoomService cannot be nil for Hub")
	}
	if enqueuer == nil {
		panic("TaskEnqueuer cannot be nil for Hub")
	}
	return &Hub{
		clients:  make(map[string]*Client),
		registry: reg,
		rooms:    rooms,
		enqueuer: enqueuer,
	}
}

// Register makes a freshly connected client addressable for broadcasts and
// creates its session.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.ID()] = c
	h.mu.Unlock()
	h.registry.Register(c.ID())
	logrus.WithField("conn_id", c.ID()).Info("Client registered")
}

// HandleJoin moves the client into a room: implicit leave from any previous
// room, user-joined broadcast, best-effort presence upsert, then history
// replay to the joiner only. The registry change takes effect and the
// broadcasts go out even when the Room Store is unreachable.
func (h *Hub) HandleJoin(c *Client, roomID string) {
	logCtx := logrus.WithFields(logrus.Fields{"conn_id": c.ID(), "room_id": roomID})
	if !service.ValidRoomID(roomID) {
		logCtx.Debug("Dropping join for invalid room id")
		return
	}
	ctx := context.Background()

	prevRoom, prevMembers, members := h.registry.Join(c.ID(), roomID)
	if prevRoom != "" {
		c.resetStroke()
		h.sendToAll(prevMembers, dto.NewUserLeft(prevMembers, c.ID()))
		h.rooms.RecordLeave(ctx, prevRoom)
	}

	h.sendToAll(members, dto.NewUserJoined(members, c.ID()))
	h.rooms.RecordJoin(ctx, roomID)

	history := h.rooms.History(ctx, roomID)
	h.sendTo(c.ID(), dto.NewDrawingData(history))
	logCtx.WithField("history_len", len(history)).Info("Client joined room")
}

// HandleLeave removes the client from the room. An unknown room/connection
// pair is a no-op, not an error.
func (h *Hub) HandleLeave(c *Client, roomID string) {
	members, ok := h.registry.Leave(c.ID(), roomID)
	if !ok {
		return
	}
	c.resetStroke()
	h.sendToAll(members, dto.NewUserLeft(members, c.ID()))
	h.rooms.RecordLeave(context.Background(), roomID)
	logrus.WithFields(logrus.Fields{"conn_id": c.ID(), "room_id": roomID}).Info("Client left room")
}

// HandleDisconnect destroys the client's session and emits the user-left
// broadcast. It runs synchronously on the read pump's exit path, so the
// leave is visible before any later join in the same room is processed.
func (h *Hub) HandleDisconnect(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c.ID()]; ok {
		delete(h.clients, c.ID())
		close(c.send)
	}
	h.mu.Unlock()

	roomID, members, ok := h.registry.Disconnect(c.ID())
	if ok {
		h.sendToAll(members, dto.NewUserLeft(members, c.ID()))
		h.rooms.RecordLeave(context.Background(), roomID)
	}
	logrus.WithFields(logrus.Fields{"conn_id": c.ID(), "room_id": roomID}).Info("Client disconnected")
}

// HandleCursorMove relays the cursor position to the room's other members,
// at most once per throttle window. Dropped positions are not queued.
func (h *Hub) HandleCursorMove(c *Client, in dto.Inbound) {
	roomID, ok := h.currentRoom(c, in.RoomID)
	if !ok {
		return
	}
	if !h.registry.AllowCursor(c.ID(), in.X, in.Y, time.Now()) {
		return
	}
	cursor := dto.NewCursorUpdate(c.ID(), domain.Point{X: in.X, Y: in.Y})
	h.sendToPeers(h.registry.Members(roomID), c.ID(), cursor)
}

// HandleDrawStart relays the stroke's starting point and style to peers,
// touches room activity and opens the client's stroke accumulator.
func (h *Hub) HandleDrawStart(c *Client, in dto.Inbound) {
	roomID, ok := h.currentRoom(c, in.RoomID)
	if !ok {
		return
	}
	h.sendToPeers(h.registry.Members(roomID), c.ID(),
		dto.NewDrawEvent(dto.EventDrawStart, dto.DrawPayload{X: in.X, Y: in.Y, Color: in.Color, Width: in.Width}))
	h.rooms.TouchActivity(context.Background(), roomID)
	c.beginStroke(in)
}

// HandleDrawMove relays an incremental point to peers and accumulates it.
// Intermediate points are not individually durable.
func (h *Hub) HandleDrawMove(c *Client, in dto.Inbound) {
	roomID, ok := h.currentRoom(c, in.RoomID)
	if !ok {
		return
	}
	h.sendToPeers(h.registry.Members(roomID), c.ID(),
		dto.NewDrawEvent(dto.EventDrawMove, dto.DrawPayload{X: in.X, Y: in.Y, Color: in.Color, Width: in.Width}))
	c.addStrokePoint(in)
}

// HandleDrawEnd relays the end-of-stroke marker to peers and queues the
// accumulated stroke for persistence as one history command, so replay
// reconstructs full strokes rather than isolated segments.
func (h *Hub) HandleDrawEnd(c *Client, in dto.Inbound) {
	roomID, ok := h.currentRoom(c, in.RoomID)
	if !ok {
		return
	}
	h.sendToPeers(h.registry.Members(roomID), c.ID(), dto.NewDrawEnd())

	stroke, ok := c.finishStroke()
	if !ok {
		return
	}
	task, err := tasks.NewStrokePersistTask(roomID, stroke, time.Now().UTC())
	if err != nil {
		logrus.WithFields(logrus.Fields{"conn_id": c.ID(), "room_id": roomID}).WithError(err).Error("Failed to build stroke persistence task")
		return
	}
	if _, err := h.enqueuer.Enqueue(task); err != nil {
		// The stroke was seen live by peers; it will simply be missing from
		// replay for later joiners.
		logrus.WithFields(logrus.Fields{"conn_id": c.ID(), "room_id": roomID}).WithError(err).Error("Failed to enqueue stroke persistence task")
	}
}

// HandleClear broadcasts canvas-cleared to every member including the sender,
// then truncates the persisted history. The broadcast never waits on the
// store.
func (h *Hub) HandleClear(c *Client, in dto.Inbound) {
	roomID, ok := h.currentRoom(c, in.RoomID)
	if !ok {
		return
	}
	c.resetStroke()
	h.sendToAll(h.registry.Members(roomID), dto.NewCanvasCleared())
	h.rooms.ClearCanvas(context.Background(), roomID)
	logrus.WithFields(logrus.Fields{"conn_id": c.ID(), "room_id": roomID}).Info("Canvas cleared")
}

// currentRoom validates that the event's room is the client's current room.
// Events referencing a room the connection has not joined are dropped
// silently.
func (h *Hub) currentRoom(c *Client, claimed string) (string, bool) {
	roomID, ok := h.registry.RoomOf(c.ID())
	if !ok || (claimed != "" && claimed != roomID) {
		logrus.WithFields(logrus.Fields{"conn_id": c.ID(), "claimed_room": claimed}).Debug("Dropping event for room the connection has not joined")
		return "", false
	}
	return roomID, true
}

// sendTo delivers a message to one connection without blocking; a full
// buffer drops the message. The read lock is held across the send itself:
// HandleDisconnect closes the channel under the write lock, so a broadcaster
// can never send on a channel that disconnect has already closed.
func (h *Hub) sendTo(connID string, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[connID]
	if !ok {
		return
	}
	select {
	case c.send <- message:
	default:
		logrus.WithField("conn_id", connID).Warn("Client send buffer full, dropping message")
	}
}

// sendToAll delivers to every listed member, in the list's (stable) order.
func (h *Hub) sendToAll(members []string, message []byte) {
	for _, id := range members {
		h.sendTo(id, message)
	}
}

// sendToPeers delivers to every listed member except the originator.
func (h *Hub) sendToPeers(members []string, exclude string, message []byte) {
	for _, id := range members {
		if id != exclude {
			h.sendTo(id, message)
		}
	}
}
