package hub

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Identity is a verified user identity attached to a connection.
type Identity struct {
	UserID      string
	DisplayName string
}

// Verifier turns a connection credential into a stable identity. The hub
// treats it as a black box.
type Verifier interface {
	Verify(ctx context.Context, credential string) (Identity, error)
}

// Connection is one physical real-time link, owned by the Registry for its
// lifetime.
type Connection struct {
	id        string
	identity  Identity
	createdAt time.Time
	out       *outbox

	mu    sync.Mutex
	rooms map[string]struct{}
}

func (c *Connection) ID() string          { return c.id }
func (c *Connection) UserID() string      { return c.identity.UserID }
func (c *Connection) DisplayName() string { return c.identity.DisplayName }
func (c *Connection) Identity() Identity  { return c.identity }
func (c *Connection) CreatedAt() time.Time {
	return c.createdAt
}

// deliver enqueues ev on the connection's outbound queue. Fire-and-forget:
// a closed or saturated queue is not an error for the publisher.
func (c *Connection) deliver(ev Event) {
	c.out.push(ev)
}

// Dropped returns how many events were discarded because this consumer fell
// behind.
func (c *Connection) Dropped() uint64 { return c.out.droppedCount() }

func (c *Connection) trackRoom(roomID string) {
	c.mu.Lock()
	c.rooms[roomID] = struct{}{}
	c.mu.Unlock()
}

func (c *Connection) untrackRoom(roomID string) {
	c.mu.Lock()
	delete(c.rooms, roomID)
	c.mu.Unlock()
}

// trackedRooms snapshots the rooms this connection is subscribed to.
func (c *Connection) trackedRooms() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.rooms))
	for id := range c.rooms {
		out = append(out, id)
	}
	return out
}

// presenceEntry exists iff the user has at least one live connection.
// All transitions for one user serialize on its mutex.
type presenceEntry struct {
	mu             sync.Mutex
	identity       Identity
	conns          map[string]*Connection
	since          time.Time
	lastTransition time.Time
	gone           bool
}

// Registry authenticates incoming connections and maintains the live
// user → connections mapping.
type Registry struct {
	verifier  Verifier
	queueSize int

	conns *shardedMap[*Connection]
	users *shardedMap[*presenceEntry]

	// onTransition is invoked with the user's presence entry lock held, so
	// online/offline announcements for one user can never interleave.
	onTransition func(id Identity, online bool, at time.Time)
}

func NewRegistry(verifier Verifier, queueSize int) *Registry {
	return &Registry{
		verifier:  verifier,
		queueSize: queueSize,
		conns:     newShardedMap[*Connection](),
		users:     newShardedMap[*presenceEntry](),
	}
}

// SetTransitionHook wires the presence broadcaster. Must be called before
// the first Register.
func (r *Registry) SetTransitionHook(fn func(id Identity, online bool, at time.Time)) {
	r.onTransition = fn
}

// Register verifies the credential, creates the connection, and starts its
// writer goroutine feeding sink. The first connection of a user announces an
// online transition.
func (r *Registry) Register(ctx context.Context, credential, connID string, sink func(Event)) (*Connection, error) {
	id, err := r.verifier.Verify(ctx, credential)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthentication, err)
	}

	conn := &Connection{
		id:        connID,
		identity:  id,
		createdAt: time.Now(),
		out:       newOutbox(r.queueSize),
		rooms:     make(map[string]struct{}),
	}
	go conn.out.run(sink)

	r.conns.Set(connID, conn)

	for {
		entry, _ := r.users.GetOrCreate(id.UserID, func() *presenceEntry {
			return &presenceEntry{identity: id, conns: make(map[string]*Connection), since: time.Now()}
		})
		entry.mu.Lock()
		if entry.gone {
			// Lost a race with the user's last disconnect; the entry is
			// already unlinked, take a fresh one.
			entry.mu.Unlock()
			continue
		}
		first := len(entry.conns) == 0
		entry.conns[connID] = conn
		entry.identity = id
		if first {
			now := time.Now()
			entry.lastTransition = now
			if r.onTransition != nil {
				r.onTransition(id, true, now)
			}
		}
		entry.mu.Unlock()
		return conn, nil
	}
}

// Unregister removes the connection and closes its outbound queue. The
// user's last connection announces an offline transition and deletes the
// presence entry.
func (r *Registry) Unregister(connID string) {
	conn, ok := r.conns.Get(connID)
	if !ok {
		return
	}
	r.conns.Delete(connID)
	conn.out.close()

	entry, ok := r.users.Get(conn.UserID())
	if !ok {
		return
	}
	entry.mu.Lock()
	delete(entry.conns, connID)
	last := len(entry.conns) == 0 && !entry.gone
	if last {
		entry.gone = true
		now := time.Now()
		entry.lastTransition = now
		if r.onTransition != nil {
			r.onTransition(entry.identity, false, now)
		}
	}
	entry.mu.Unlock()

	if last {
		r.users.DeleteIf(conn.UserID(), func(e *presenceEntry) bool { return e == entry })
	}
}

// Get returns a live connection by id.
func (r *Registry) Get(connID string) (*Connection, bool) {
	return r.conns.Get(connID)
}

// ConnectionsFor returns all live connections of a user.
func (r *Registry) ConnectionsFor(userID string) []*Connection {
	entry, ok := r.users.Get(userID)
	if !ok {
		return nil
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	out := make([]*Connection, 0, len(entry.conns))
	for _, c := range entry.conns {
		out = append(out, c)
	}
	return out
}

// IsOnline reports whether the user has at least one live connection.
func (r *Registry) IsOnline(userID string) bool {
	entry, ok := r.users.Get(userID)
	if !ok {
		return false
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return !entry.gone && len(entry.conns) > 0
}

// RangeConnections visits every live connection.
func (r *Registry) RangeConnections(fn func(c *Connection) bool) {
	r.conns.Range(func(_ string, c *Connection) bool { return fn(c) })
}

// OnlineSnapshot lists all currently online users, sorted by user id for a
// stable wire representation.
func (r *Registry) OnlineSnapshot() []OnlineUser {
	var out []OnlineUser
	r.users.Range(func(_ string, e *presenceEntry) bool {
		e.mu.Lock()
		if !e.gone && len(e.conns) > 0 {
			out = append(out, OnlineUser{
				UserID:      e.identity.UserID,
				DisplayName: e.identity.DisplayName,
				Since:       e.since,
			})
		}
		e.mu.Unlock()
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// ConnectionCount returns the number of live connections.
func (r *Registry) ConnectionCount() int { return r.conns.Len() }

// OnlineCount returns the number of online users.
func (r *Registry) OnlineCount() int { return r.users.Len() }
