package hub

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/teamspace/hub/internal/models"
	"github.com/teamspace/hub/internal/store"
)

// roomState caches which connections are currently subscribed to one room.
// Publishing holds the mutex for the whole enqueue pass, which gives every
// subscriber the same per-room event order.
type roomState struct {
	mu   sync.Mutex
	kind models.RoomKind
	subs map[string]*Connection
}

// Fanout maintains room subscriptions and delivers events to all
// subscribers of a room.
type Fanout struct {
	store store.Store
	rooms *shardedMap[*roomState]

	relay func(Event)
}

func NewFanout(st store.Store) *Fanout {
	return &Fanout{
		store: st,
		rooms: newShardedMap[*roomState](),
	}
}

// SetRelay wires the cross-instance relay hook.
func (f *Fanout) SetRelay(fn func(Event)) { f.relay = fn }

// Subscribe adds the connection to the room after checking authoritative
// membership against the persistence gateway. Returns the room kind.
func (f *Fanout) Subscribe(ctx context.Context, conn *Connection, roomID string) (models.RoomKind, error) {
	kind, err := f.store.RoomKind(ctx, roomID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", fmt.Errorf("%w: %s", ErrRoomNotFound, roomID)
		}
		return "", persistenceErr("room lookup", err)
	}

	member, err := f.store.IsRoomMember(ctx, roomID, conn.UserID())
	if err != nil {
		return "", persistenceErr("membership check", err)
	}
	if !member {
		return "", fmt.Errorf("%w: user %s, room %s", ErrNotAMember, conn.UserID(), roomID)
	}

	rs, _ := f.rooms.GetOrCreate(roomID, func() *roomState {
		return &roomState{subs: make(map[string]*Connection)}
	})
	rs.mu.Lock()
	rs.kind = kind
	rs.subs[conn.ID()] = conn
	rs.mu.Unlock()

	conn.trackRoom(roomID)
	return kind, nil
}

// Unsubscribe removes the connection from the room. Unknown rooms and
// non-subscribers are no-ops.
func (f *Fanout) Unsubscribe(conn *Connection, roomID string) {
	rs, ok := f.rooms.Get(roomID)
	if !ok {
		return
	}
	rs.mu.Lock()
	delete(rs.subs, conn.ID())
	empty := len(rs.subs) == 0
	rs.mu.Unlock()

	conn.untrackRoom(roomID)
	if empty {
		f.rooms.DeleteIf(roomID, func(r *roomState) bool {
			r.mu.Lock()
			defer r.mu.Unlock()
			return len(r.subs) == 0
		})
	}
}

// Publish delivers ev to every current subscriber of the room except the
// optional excluded connection, then hands the event to the cross-instance
// relay. The room lock is held across both, so remote subscribers observe
// the same per-room order as local ones. The relay hook only enqueues, it
// never touches the network. Fire-and-forget per destination.
func (f *Fanout) Publish(roomID string, ev Event, excludeConnID string) {
	ev.Room = roomID
	rs, ok := f.rooms.Get(roomID)
	if !ok {
		if f.relay != nil {
			f.relay(ev)
		}
		return
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	for id, c := range rs.subs {
		if id == excludeConnID {
			continue
		}
		c.deliver(ev)
	}
	if f.relay != nil {
		f.relay(ev)
	}
}

// deliverLocal enqueues ev for local subscribers only. Used directly when
// the event arrived from another hub instance.
func (f *Fanout) deliverLocal(roomID string, ev Event, excludeConnID string) {
	rs, ok := f.rooms.Get(roomID)
	if !ok {
		return
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	for id, c := range rs.subs {
		if id == excludeConnID {
			continue
		}
		c.deliver(ev)
	}
}

// IsSubscribed reports whether the connection currently subscribes to the
// room.
func (f *Fanout) IsSubscribed(connID, roomID string) bool {
	rs, ok := f.rooms.Get(roomID)
	if !ok {
		return false
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	_, ok = rs.subs[connID]
	return ok
}

// RoomKindOf returns the cached kind of a room with at least one local
// subscriber.
func (f *Fanout) RoomKindOf(roomID string) (models.RoomKind, bool) {
	rs, ok := f.rooms.Get(roomID)
	if !ok {
		return "", false
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.kind, true
}

// Participants lists the distinct users currently subscribed to the room,
// sorted by user id.
func (f *Fanout) Participants(roomID string) []OnlineUser {
	rs, ok := f.rooms.Get(roomID)
	if !ok {
		return nil
	}
	rs.mu.Lock()
	byUser := make(map[string]OnlineUser)
	for _, c := range rs.subs {
		if _, seen := byUser[c.UserID()]; !seen {
			byUser[c.UserID()] = OnlineUser{
				UserID:      c.UserID(),
				DisplayName: c.DisplayName(),
				Since:       c.CreatedAt(),
			}
		}
	}
	rs.mu.Unlock()

	out := make([]OnlineUser, 0, len(byUser))
	for _, u := range byUser {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// DropConnection unsubscribes the connection from every room it was in and
// returns those room ids. Part of the single connection-closed cleanup path.
func (f *Fanout) DropConnection(conn *Connection) []string {
	rooms := conn.trackedRooms()
	for _, roomID := range rooms {
		f.Unsubscribe(conn, roomID)
	}
	return rooms
}

// SubscriberCounts returns per-room subscriber counts for the stats surface.
func (f *Fanout) SubscriberCounts() map[string]int {
	out := make(map[string]int)
	f.rooms.Range(func(roomID string, rs *roomState) bool {
		rs.mu.Lock()
		if len(rs.subs) > 0 {
			out[roomID] = len(rs.subs)
		}
		rs.mu.Unlock()
		return true
	})
	return out
}
