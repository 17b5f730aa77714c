package hub

import (
	"sync"
	"time"
)

// DefaultTypingTTL is how long a typing indicator stays alive without a
// refreshing typing-start.
const DefaultTypingTTL = 3 * time.Second

// typingState is the per (user, room) ephemeral indicator. Existence of the
// entry means Typing; removal means Idle. gen guards against a stale expiry
// timer firing after a newer one was scheduled.
type typingState struct {
	mu        sync.Mutex
	gen       uint64
	timer     *time.Timer
	startedAt time.Time
	deadline  time.Time
	gone      bool
}

// Typing is the per (user, room) indicator state machine. Never persisted.
type Typing struct {
	ttl    time.Duration
	fanout *Fanout
	states *shardedMap[*typingState]
}

func NewTyping(fanout *Fanout, ttl time.Duration) *Typing {
	if ttl <= 0 {
		ttl = DefaultTypingTTL
	}
	return &Typing{
		ttl:    ttl,
		fanout: fanout,
		states: newShardedMap[*typingState](),
	}
}

func typingKey(userID, roomID string) string {
	return userID + "\x00" + roomID
}

// Start transitions (user, room) to Typing, or refreshes the expiry timer
// when already Typing. Only the Idle → Typing edge publishes a user-typing
// event, excluding the originating connection.
func (t *Typing) Start(id Identity, roomID, connID string) {
	key := typingKey(id.UserID, roomID)
	for {
		st, created := t.states.GetOrCreate(key, func() *typingState {
			return &typingState{startedAt: time.Now()}
		})
		st.mu.Lock()
		if st.gone {
			st.mu.Unlock()
			continue
		}
		st.gen++
		gen := st.gen
		if st.timer != nil {
			st.timer.Stop()
		}
		st.deadline = time.Now().Add(t.ttl)
		st.timer = time.AfterFunc(t.ttl, func() {
			t.expire(key, gen, id, roomID, connID)
		})
		st.mu.Unlock()

		if created {
			t.fanout.Publish(roomID, Event{Kind: EventUserTyping, Payload: TypingPayload{
				RoomID:      roomID,
				UserID:      id.UserID,
				DisplayName: id.DisplayName,
			}}, connID)
		}
		return
	}
}

// Stop transitions (user, room) to Idle and publishes user-stopped-typing.
// Idempotent: a stop while already Idle is a no-op.
func (t *Typing) Stop(id Identity, roomID, connID string) {
	key := typingKey(id.UserID, roomID)
	st, ok := t.states.Get(key)
	if !ok {
		return
	}
	st.mu.Lock()
	if st.gone {
		st.mu.Unlock()
		return
	}
	st.gone = true
	if st.timer != nil {
		st.timer.Stop()
	}
	st.mu.Unlock()

	t.states.DeleteIf(key, func(s *typingState) bool { return s == st })
	t.publishStopped(id, roomID, connID)
}

// expire is the timer path of Typing → Idle. A fired timer whose generation
// is stale does nothing.
func (t *Typing) expire(key string, gen uint64, id Identity, roomID, connID string) {
	st, ok := t.states.Get(key)
	if !ok {
		return
	}
	st.mu.Lock()
	if st.gone || st.gen != gen {
		st.mu.Unlock()
		return
	}
	st.gone = true
	st.mu.Unlock()

	t.states.DeleteIf(key, func(s *typingState) bool { return s == st })
	t.publishStopped(id, roomID, connID)
}

func (t *Typing) publishStopped(id Identity, roomID, connID string) {
	t.fanout.Publish(roomID, Event{Kind: EventUserStoppedTyping, Payload: TypingPayload{
		RoomID:      roomID,
		UserID:      id.UserID,
		DisplayName: id.DisplayName,
	}}, connID)
}

// IsTyping reports whether (user, room) is currently in the Typing state.
func (t *Typing) IsTyping(userID, roomID string) bool {
	st, ok := t.states.Get(typingKey(userID, roomID))
	if !ok {
		return false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return !st.gone
}

// ActiveCount returns the number of live typing indicators.
func (t *Typing) ActiveCount() int { return t.states.Len() }
