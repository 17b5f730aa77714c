package hub

import (
	"context"
	"testing"
	"time"

	"github.com/teamspace/hub/internal/models"
)

func typingFixture(t *testing.T, ttl time.Duration) (*Typing, *Connection, *collector) {
	t.Helper()
	st := newFakeStore()
	st.addRoom("general", models.RoomKindChat, "alice", "bob")

	r := NewRegistry(fakeVerifier{}, 0)
	f := NewFanout(st)
	typing := NewTyping(f, ttl)

	// bob observes alice's indicator.
	bobEvents := newCollector()
	bob := register(t, r, "bob", "bob-conn", bobEvents.sink)
	if _, err := f.Subscribe(context.Background(), bob, "general"); err != nil {
		t.Fatal(err)
	}

	alice := register(t, r, "alice", "alice-conn", nil)
	if _, err := f.Subscribe(context.Background(), alice, "general"); err != nil {
		t.Fatal(err)
	}
	return typing, alice, bobEvents
}

func TestTypingStartPublishesOnce(t *testing.T) {
	typing, alice, bobEvents := typingFixture(t, time.Minute)

	typing.Start(alice.Identity(), "general", alice.ID())
	typing.Start(alice.Identity(), "general", alice.ID())
	typing.Start(alice.Identity(), "general", alice.ID())

	bobEvents.waitFor(t, EventUserTyping)
	settle()
	if n := bobEvents.count(EventUserTyping); n != 1 {
		t.Errorf("user-typing published %d times for repeated starts, want 1", n)
	}
	if !typing.IsTyping("alice", "general") {
		t.Error("alice not marked typing")
	}
}

func TestTypingStopIsIdempotent(t *testing.T) {
	typing, alice, bobEvents := typingFixture(t, time.Minute)

	typing.Start(alice.Identity(), "general", alice.ID())
	typing.Stop(alice.Identity(), "general", alice.ID())
	typing.Stop(alice.Identity(), "general", alice.ID())

	bobEvents.waitFor(t, EventUserStoppedTyping)
	settle()
	if n := bobEvents.count(EventUserStoppedTyping); n != 1 {
		t.Errorf("user-stopped-typing published %d times, want 1", n)
	}
	if typing.IsTyping("alice", "general") {
		t.Error("alice still typing after Stop")
	}
	if typing.ActiveCount() != 0 {
		t.Errorf("ActiveCount = %d, want 0", typing.ActiveCount())
	}

	// Stop without a prior Start publishes nothing.
	typing.Stop(alice.Identity(), "general", alice.ID())
	settle()
	if n := bobEvents.count(EventUserStoppedTyping); n != 1 {
		t.Errorf("idle Stop published an extra event, total %d", n)
	}
}

func TestTypingExpires(t *testing.T) {
	typing, alice, bobEvents := typingFixture(t, 40*time.Millisecond)

	typing.Start(alice.Identity(), "general", alice.ID())
	bobEvents.waitFor(t, EventUserTyping)

	bobEvents.waitFor(t, EventUserStoppedTyping)
	if typing.IsTyping("alice", "general") {
		t.Error("indicator survived its TTL")
	}
}

// A refresh must reschedule expiry; the stale timer from the first Start
// must not kill the refreshed indicator early.
func TestTypingRefreshExtendsDeadline(t *testing.T) {
	typing, alice, bobEvents := typingFixture(t, 80*time.Millisecond)

	typing.Start(alice.Identity(), "general", alice.ID())
	time.Sleep(50 * time.Millisecond)
	typing.Start(alice.Identity(), "general", alice.ID())
	time.Sleep(50 * time.Millisecond)

	// 100ms after the first Start, but only 50ms after the refresh.
	if !typing.IsTyping("alice", "general") {
		t.Fatal("refreshed indicator expired on the original deadline")
	}

	bobEvents.waitFor(t, EventUserStoppedTyping)
	settle()
	if n := bobEvents.count(EventUserStoppedTyping); n != 1 {
		t.Errorf("stop published %d times, want 1", n)
	}
}

func TestTypingRoomsIndependent(t *testing.T) {
	st := newFakeStore()
	st.addRoom("a", models.RoomKindChat, "alice")
	st.addRoom("b", models.RoomKindChat, "alice")
	r := NewRegistry(fakeVerifier{}, 0)
	f := NewFanout(st)
	typing := NewTyping(f, time.Minute)

	alice := register(t, r, "alice", "c1", nil)
	for _, room := range []string{"a", "b"} {
		if _, err := f.Subscribe(context.Background(), alice, room); err != nil {
			t.Fatal(err)
		}
	}

	typing.Start(alice.Identity(), "a", alice.ID())
	typing.Start(alice.Identity(), "b", alice.ID())
	typing.Stop(alice.Identity(), "a", alice.ID())

	if typing.IsTyping("alice", "a") {
		t.Error("room a indicator survived Stop")
	}
	if !typing.IsTyping("alice", "b") {
		t.Error("room b indicator was affected by room a Stop")
	}
}
