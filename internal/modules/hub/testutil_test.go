package hub

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/teamspace/hub/internal/models"
	"github.com/teamspace/hub/internal/store"
)

// fakeVerifier accepts any credential of the form "token:<userID>" and maps
// it to a deterministic identity.
type fakeVerifier struct{}

func (fakeVerifier) Verify(_ context.Context, credential string) (Identity, error) {
	const prefix = "token:"
	if len(credential) <= len(prefix) || credential[:len(prefix)] != prefix {
		return Identity{}, fmt.Errorf("bad credential %q", credential)
	}
	userID := credential[len(prefix):]
	return Identity{UserID: userID, DisplayName: "User " + userID}, nil
}

// fakeStore is an in-memory store.Store with injectable failures.
type fakeStore struct {
	mu            sync.Mutex
	rooms         map[string]models.RoomKind
	members       map[string][]string
	messages      []*models.MessageModel
	notifications []*models.NotificationModel
	readCount     int64

	failCreateMessage error
	failRoomKind      error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rooms:   make(map[string]models.RoomKind),
		members: make(map[string][]string),
	}
}

func (s *fakeStore) addRoom(roomID string, kind models.RoomKind, memberIDs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[roomID] = kind
	s.members[roomID] = memberIDs
}

func (s *fakeStore) RoomKind(_ context.Context, roomID string) (models.RoomKind, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failRoomKind != nil {
		return "", s.failRoomKind
	}
	kind, ok := s.rooms[roomID]
	if !ok {
		return "", store.ErrNotFound
	}
	return kind, nil
}

func (s *fakeStore) RoomMembers(_ context.Context, roomID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.members[roomID]...), nil
}

func (s *fakeStore) IsRoomMember(_ context.Context, roomID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.members[roomID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) RoomsOfUser(_ context.Context, userID string) ([]store.RoomRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var refs []store.RoomRef
	for roomID, members := range s.members {
		for _, id := range members {
			if id == userID {
				refs = append(refs, store.RoomRef{ID: roomID, Kind: s.rooms[roomID]})
			}
		}
	}
	return refs, nil
}

func (s *fakeStore) CreateMessage(_ context.Context, msg *models.MessageModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreateMessage != nil {
		return s.failCreateMessage
	}
	msg.ID = uuid.New().String()
	msg.CreatedAt = time.Now()
	s.messages = append(s.messages, msg)
	return nil
}

func (s *fakeStore) MarkMessagesRead(_ context.Context, roomID, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, m := range s.messages {
		if m.RoomID == roomID && m.SenderID != userID && !m.ReadByUser(userID) {
			m.ReadBy = append(m.ReadBy, userID)
			n++
		}
	}
	s.readCount = n
	return n, nil
}

func (s *fakeStore) CreateNotification(_ context.Context, n *models.NotificationModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append(s.notifications, n)
	return nil
}

func (s *fakeStore) messageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

func (s *fakeStore) notificationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.notifications)
}

// collector records events delivered through a connection sink.
type collector struct {
	mu     sync.Mutex
	events []Event
}

func newCollector() *collector { return &collector{} }

func (c *collector) sink(ev Event) {
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
}

func (c *collector) snapshot() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.events...)
}

func (c *collector) count(kind EventKind) int {
	n := 0
	for _, ev := range c.snapshot() {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

// waitFor blocks until at least one event of kind arrived or the deadline
// passed. Delivery runs on the connection's writer goroutine, so tests must
// not assert on the collector synchronously.
func (c *collector) waitFor(t *testing.T, kind EventKind) Event {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, ev := range c.snapshot() {
			if ev.Kind == kind {
				return ev
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s event, got %v", kind, c.kinds())
	return Event{}
}

// waitForCount blocks until at least n events of kind arrived.
func (c *collector) waitForCount(t *testing.T, kind EventKind, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.count(kind) >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d %s events, got %d", n, kind, c.count(kind))
}

func (c *collector) kinds() []EventKind {
	evs := c.snapshot()
	out := make([]EventKind, len(evs))
	for i, ev := range evs {
		out[i] = ev.Kind
	}
	return out
}

// settle gives in-flight writer goroutines a moment to drain.
func settle() { time.Sleep(30 * time.Millisecond) }

// newTestHub builds a hub with fakes and no redis relay.
func newTestHub(st *fakeStore, opts Options) *Hub {
	return New(fakeVerifier{}, st, nil, nil, opts)
}

// mustConnect registers a connection or fails the test.
func mustConnect(t *testing.T, h *Hub, userID, connID string, c *collector) *Connection {
	t.Helper()
	conn, err := h.Connect(context.Background(), "token:"+userID, connID, c.sink)
	if err != nil {
		t.Fatalf("Connect(%s): %v", userID, err)
	}
	return conn
}
