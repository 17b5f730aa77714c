package hub

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/teamspace/hub/internal/models"
)

func fanoutFixture(t *testing.T) (*Registry, *Fanout, *fakeStore) {
	t.Helper()
	st := newFakeStore()
	return NewRegistry(fakeVerifier{}, 0), NewFanout(st), st
}

func register(t *testing.T, r *Registry, userID, connID string, sink func(Event)) *Connection {
	t.Helper()
	if sink == nil {
		sink = func(Event) {}
	}
	conn, err := r.Register(context.Background(), "token:"+userID, connID, sink)
	if err != nil {
		t.Fatal(err)
	}
	return conn
}

func TestSubscribeChecksMembership(t *testing.T) {
	r, f, st := fanoutFixture(t)
	st.addRoom("general", models.RoomKindChat, "alice")

	alice := register(t, r, "alice", "c1", nil)
	mallory := register(t, r, "mallory", "c2", nil)

	kind, err := f.Subscribe(context.Background(), alice, "general")
	if err != nil {
		t.Fatalf("Subscribe(alice): %v", err)
	}
	if kind != models.RoomKindChat {
		t.Errorf("kind = %s, want chat", kind)
	}
	if !f.IsSubscribed("c1", "general") {
		t.Error("alice not subscribed after Subscribe")
	}

	if _, err := f.Subscribe(context.Background(), mallory, "general"); !errors.Is(err, ErrNotAMember) {
		t.Errorf("Subscribe(mallory) err = %v, want ErrNotAMember", err)
	}
	if f.IsSubscribed("c2", "general") {
		t.Error("mallory subscribed despite rejection")
	}

	if _, err := f.Subscribe(context.Background(), alice, "nope"); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("Subscribe(unknown room) err = %v, want ErrRoomNotFound", err)
	}
}

func TestPublishReachesSubscribersOnly(t *testing.T) {
	r, f, st := fanoutFixture(t)
	st.addRoom("general", models.RoomKindChat, "alice", "bob")
	st.addRoom("private", models.RoomKindChat, "alice")

	aliceEvents := newCollector()
	bobEvents := newCollector()
	alice := register(t, r, "alice", "c1", aliceEvents.sink)
	bob := register(t, r, "bob", "c2", bobEvents.sink)

	for _, sub := range []struct {
		conn *Connection
		room string
	}{{alice, "general"}, {alice, "private"}, {bob, "general"}} {
		if _, err := f.Subscribe(context.Background(), sub.conn, sub.room); err != nil {
			t.Fatal(err)
		}
	}

	f.Publish("private", Event{Kind: EventNewMessage, Payload: "secret"}, "")
	aliceEvents.waitFor(t, EventNewMessage)
	settle()
	if n := bobEvents.count(EventNewMessage); n != 0 {
		t.Errorf("bob received %d events from a room he is not in", n)
	}
}

func TestPublishExcludesOriginConnection(t *testing.T) {
	r, f, st := fanoutFixture(t)
	st.addRoom("general", models.RoomKindChat, "alice", "bob")

	aliceEvents := newCollector()
	bobEvents := newCollector()
	alice := register(t, r, "alice", "c1", aliceEvents.sink)
	bob := register(t, r, "bob", "c2", bobEvents.sink)
	if _, err := f.Subscribe(context.Background(), alice, "general"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Subscribe(context.Background(), bob, "general"); err != nil {
		t.Fatal(err)
	}

	f.Publish("general", Event{Kind: EventUserTyping, Payload: "x"}, "c1")
	bobEvents.waitFor(t, EventUserTyping)
	settle()
	if n := aliceEvents.count(EventUserTyping); n != 0 {
		t.Errorf("excluded origin received %d events", n)
	}
}

// Every subscriber must observe room events in the same order.
func TestRoomOrderConsistentAcrossSubscribers(t *testing.T) {
	st := newFakeStore()
	st.addRoom("general", models.RoomKindChat, "alice", "bob")
	// Queue large enough that bursts never hit the drop-oldest path.
	r := NewRegistry(fakeVerifier{}, 1024)
	f := NewFanout(st)

	const total = 200
	collectors := make([]*collector, 2)
	for i, u := range []string{"alice", "bob"} {
		collectors[i] = newCollector()
		conn := register(t, r, u, fmt.Sprintf("c%d", i), collectors[i].sink)
		if _, err := f.Subscribe(context.Background(), conn, "general"); err != nil {
			t.Fatal(err)
		}
	}

	done := make(chan struct{})
	for w := 0; w < 4; w++ {
		go func(w int) {
			for i := 0; i < total/4; i++ {
				f.Publish("general", Event{Kind: EventNewMessage, Payload: fmt.Sprintf("%d-%d", w, i)}, "")
			}
			done <- struct{}{}
		}(w)
	}
	for w := 0; w < 4; w++ {
		<-done
	}

	for _, c := range collectors {
		c.waitForCount(t, EventNewMessage, total)
	}

	a, b := collectors[0].snapshot(), collectors[1].snapshot()
	if len(a) != len(b) {
		t.Fatalf("subscriber event counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Payload != b[i].Payload {
			t.Fatalf("order diverged at %d: %v vs %v", i, a[i].Payload, b[i].Payload)
		}
	}
}

func TestUnsubscribeAndDropConnection(t *testing.T) {
	r, f, st := fanoutFixture(t)
	st.addRoom("general", models.RoomKindChat, "alice")
	st.addRoom("standup", models.RoomKindConference, "alice")

	alice := register(t, r, "alice", "c1", nil)
	for _, room := range []string{"general", "standup"} {
		if _, err := f.Subscribe(context.Background(), alice, room); err != nil {
			t.Fatal(err)
		}
	}

	f.Unsubscribe(alice, "general")
	if f.IsSubscribed("c1", "general") {
		t.Error("still subscribed after Unsubscribe")
	}
	// Emptied room state is discarded.
	if _, ok := f.RoomKindOf("general"); ok {
		t.Error("room state survived its last subscriber")
	}

	rooms := f.DropConnection(alice)
	if len(rooms) != 1 || rooms[0] != "standup" {
		t.Errorf("DropConnection = %v, want [standup]", rooms)
	}
	if len(f.SubscriberCounts()) != 0 {
		t.Errorf("SubscriberCounts = %v after drop", f.SubscriberCounts())
	}
}

func TestParticipantsDistinctUsers(t *testing.T) {
	r, f, st := fanoutFixture(t)
	st.addRoom("standup", models.RoomKindConference, "alice", "bob")

	// alice joins from two devices.
	a1 := register(t, r, "alice", "c1", nil)
	a2 := register(t, r, "alice", "c2", nil)
	b := register(t, r, "bob", "c3", nil)
	for _, conn := range []*Connection{a1, a2, b} {
		if _, err := f.Subscribe(context.Background(), conn, "standup"); err != nil {
			t.Fatal(err)
		}
	}

	got := f.Participants("standup")
	if len(got) != 2 {
		t.Fatalf("Participants = %d entries, want 2", len(got))
	}
	if got[0].UserID != "alice" || got[1].UserID != "bob" {
		t.Errorf("Participants = [%s %s], want [alice bob]", got[0].UserID, got[1].UserID)
	}
}
