// Package registry is the in-memory authority for which connections currently
// belong to which room. Sessions are owned exclusively by the Registry; no
// other component mutates them.
package registry

import (
	"sort"
	"sync"
	"time"

	"collaborative-whiteboard/internal/domain"
)

// DefaultCursorWindow is the minimum spacing between cursor broadcasts for a
// single connection (~60Hz). Updates inside the window are dropped, not
// queued.
const DefaultCursorWindow = 16 * time.Millisecond

// Session is the ephemeral per-connection state. A connection belongs to at
// most one room at a time.
type Session struct {
	ConnectionID string
	RoomID       string
	Cursor       domain.Point

	lastCursorSent time.Time
}

// Registry tracks live sessions and per-room member sets. A single mutex
// serializes mutations; registry operations are map lookups and small set
// updates, so per-room sharding buys little here and one lock keeps join
// with implicit leave (two rooms touched) trivially linearizable.
type Registry struct {
	mu           sync.RWMutex
	sessions     map[string]*Session
	rooms        map[string]map[string]struct{}
	cursorWindow time.Duration
}

// New creates an empty Registry. A cursorWindow of zero selects
// DefaultCursorWindow.
func New(cursorWindow time.Duration) *Registry {
	if cursorWindow <= 0 {
		cursorWindow = DefaultCursorWindow
	}
	return &Registry{
		sessions:     make(map[string]*Session),
		rooms:        make(map[string]map[string]struct{}),
		cursorWindow: cursorWindow,
	}
}

// Register creates the session for a freshly established connection.
func (r *Registry) Register(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[connID]; !ok {
		r.sessions[connID] = &Session{ConnectionID: connID}
	}
}

// Join moves the connection into roomID, leaving any previous room first.
// It returns the previous room and its remaining members (empty when there
// was none) and the updated member list of the joined room.
func (r *Registry) Join(connID, roomID string) (prevRoom string, prevMembers, members []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[connID]
	if !ok {
		sess = &Session{ConnectionID: connID}
		r.sessions[connID] = sess
	}

	if sess.RoomID != "" && sess.RoomID != roomID {
		prevRoom = sess.RoomID
		prevMembers = r.removeLocked(connID, prevRoom)
	}

	set, ok := r.rooms[roomID]
	if !ok {
		set = make(map[string]struct{})
		r.rooms[roomID] = set
	}
	set[connID] = struct{}{}
	sess.RoomID = roomID

	return prevRoom, prevMembers, sortedKeys(set)
}

// Leave removes the connection from roomID and returns the remaining member
// list. ok is false when the connection was not a member, which callers
// treat as a no-op rather than an error.
func (r *Registry) Leave(connID, roomID string) (members []string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, exists := r.sessions[connID]
	if !exists || sess.RoomID != roomID {
		return nil, false
	}
	members = r.removeLocked(connID, roomID)
	sess.RoomID = ""
	return members, true
}

// Disconnect destroys the session, removing it from its room if any. It
// returns the departed room and its remaining members when the connection
// was in one.
func (r *Registry) Disconnect(connID string) (roomID string, members []string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, exists := r.sessions[connID]
	if !exists {
		return "", nil, false
	}
	delete(r.sessions, connID)
	if sess.RoomID == "" {
		return "", nil, false
	}
	return sess.RoomID, r.removeLocked(connID, sess.RoomID), true
}

// Members returns the sorted member list of roomID. Sorting gives broadcasts
// a stable enumeration order.
func (r *Registry) Members(roomID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set, ok := r.rooms[roomID]
	if !ok {
		return nil
	}
	return sortedKeys(set)
}

// RoomOf reports the room the connection currently belongs to.
func (r *Registry) RoomOf(connID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[connID]
	if !ok || sess.RoomID == "" {
		return "", false
	}
	return sess.RoomID, true
}

// AllowCursor records the connection's cursor position and reports whether a
// broadcast is due. At most one broadcast per cursor window is allowed;
// positions arriving inside the window are recorded but not relayed.
func (r *Registry) AllowCursor(connID string, x, y float64, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[connID]
	if !ok {
		return false
	}
	sess.Cursor = domain.Point{X: x, Y: y}
	if now.Sub(sess.lastCursorSent) < r.cursorWindow {
		return false
	}
	sess.lastCursorSent = now
	return true
}

// removeLocked drops connID from roomID's set, evicting the room entry when
// it becomes empty, and returns the remaining members. Callers hold r.mu.
func (r *Registry) removeLocked(connID, roomID string) []string {
	set, ok := r.rooms[roomID]
	if !ok {
		return nil
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(r.rooms, roomID)
		return []string{}
	}
	return sortedKeys(set)
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
