package hub

import (
	"sync"
	"time"
)

// Broadcaster announces user online/offline transitions to every live
// connection. Presence is global, not room-scoped.
type Broadcaster struct {
	registry *Registry

	mu     sync.Mutex
	online map[string]bool

	relay func(Event)
}

func NewBroadcaster(registry *Registry) *Broadcaster {
	return &Broadcaster{
		registry: registry,
		online:   make(map[string]bool),
	}
}

// SetRelay wires the cross-instance relay hook.
func (b *Broadcaster) SetRelay(fn func(Event)) { b.relay = fn }

// Announce broadcasts a presence transition. Duplicate announcements for a
// user already in that state are suppressed.
func (b *Broadcaster) Announce(id Identity, online bool, at time.Time) {
	b.mu.Lock()
	if b.online[id.UserID] == online {
		b.mu.Unlock()
		return
	}
	b.online[id.UserID] = online
	if !online {
		delete(b.online, id.UserID)
	}
	b.mu.Unlock()

	kind := EventUserOnline
	if !online {
		kind = EventUserOffline
	}
	ev := Event{Kind: kind, Payload: PresencePayload{
		UserID:      id.UserID,
		DisplayName: id.DisplayName,
		At:          at,
	}}

	b.Deliver(ev)
	if b.relay != nil {
		b.relay(ev)
	}
}

// Deliver pushes a presence event to every local connection.
func (b *Broadcaster) Deliver(ev Event) {
	b.registry.RangeConnections(func(c *Connection) bool {
		c.deliver(ev)
		return true
	})
}

// Snapshot returns the online-users snapshot event sent to a freshly
// connected client.
func (b *Broadcaster) Snapshot() Event {
	return Event{Kind: EventOnlineUsers, Payload: OnlineUsersPayload{
		Users: b.registry.OnlineSnapshot(),
	}}
}
