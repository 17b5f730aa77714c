// Package hub is the real-time collaboration core: it tracks which users
// are connected, routes chat and typing/read events to room subscribers,
// and relays peer negotiation envelopes for conferences.
package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/teamspace/hub/internal/models"
	pkgredis "github.com/teamspace/hub/internal/pkg/redis"
	"github.com/teamspace/hub/internal/store"
	"go.uber.org/zap"
)

const (
	redisChanEvents = "hub:events"
	relayQueueSize  = 256
)

// Options tunes the hub. Zero values fall back to defaults.
type Options struct {
	// QueueSize bounds each connection's outbound queue.
	QueueSize int
	// TypingTTL is the typing indicator expiry.
	TypingTTL time.Duration
	// MaxMessageLength bounds message content.
	MaxMessageLength int
}

// Hub wires the session registry, room fanout, message pipeline, typing
// state machine, presence broadcaster, and signaling relay together, and
// relays room/presence events across instances through Redis.
type Hub struct {
	registry    *Registry
	fanout      *Fanout
	broadcaster *Broadcaster
	typing      *Typing
	pipeline    *Pipeline
	signals     *SignalRelay

	rc         *pkgredis.Client
	relayCh    chan Event
	logger     *zap.Logger
	instanceID string
}

// New assembles a hub. rc may be nil to run without cross-instance relay.
func New(verifier Verifier, st store.Store, rc *pkgredis.Client, logger *zap.Logger, opts Options) *Hub {
	registry := NewRegistry(verifier, opts.QueueSize)
	fanout := NewFanout(st)
	broadcaster := NewBroadcaster(registry)
	typing := NewTyping(fanout, opts.TypingTTL)
	pipeline := NewPipeline(st, fanout, registry, logger, opts.MaxMessageLength)
	signals := NewSignalRelay(fanout, registry)

	h := &Hub{
		registry:    registry,
		fanout:      fanout,
		broadcaster: broadcaster,
		typing:      typing,
		pipeline:    pipeline,
		signals:     signals,
		rc:          rc,
		relayCh:     make(chan Event, relayQueueSize),
		logger:      logger,
		instanceID:  uuid.New().String(),
	}

	registry.SetTransitionHook(broadcaster.Announce)
	if rc != nil {
		fanout.SetRelay(h.enqueueRelay)
		broadcaster.SetRelay(h.enqueueRelay)
	}
	return h
}

// Registry exposes the session registry (stats surface, signaling lookups).
func (h *Hub) Registry() *Registry { return h.registry }

// Fanout exposes the room fanout engine.
func (h *Hub) Fanout() *Fanout { return h.fanout }

// Connect authenticates the credential and registers the connection. The
// fresh connection receives an online-users snapshot.
func (h *Hub) Connect(ctx context.Context, credential, connID string, sink func(Event)) (*Connection, error) {
	conn, err := h.registry.Register(ctx, credential, connID, sink)
	if err != nil {
		return nil, err
	}
	conn.deliver(h.broadcaster.Snapshot())
	return conn, nil
}

// Disconnect is the single connection-closed cleanup path: typing state,
// room subscriptions, then presence, in that order, so no component is left
// referencing a dead connection.
func (h *Hub) Disconnect(connID string) {
	conn, ok := h.registry.Get(connID)
	if !ok {
		return
	}

	for _, roomID := range conn.trackedRooms() {
		h.typing.Stop(conn.Identity(), roomID, conn.ID())
		kind, _ := h.fanout.RoomKindOf(roomID)
		h.fanout.Unsubscribe(conn, roomID)
		if kind == models.RoomKindConference {
			h.announceConferenceLeave(conn, roomID)
		}
	}

	h.registry.Unregister(connID)
}

// JoinRooms subscribes the connection to every chat room its user is an
// authoritative member of. Conference rooms are joined explicitly.
func (h *Hub) JoinRooms(ctx context.Context, conn *Connection) ([]string, error) {
	refs, err := h.fanout.store.RoomsOfUser(ctx, conn.UserID())
	if err != nil {
		return nil, persistenceErr("rooms of user", err)
	}

	joined := make([]string, 0, len(refs))
	for _, ref := range refs {
		if ref.Kind != models.RoomKindChat {
			continue
		}
		if _, err := h.fanout.Subscribe(ctx, conn, ref.ID); err != nil {
			if h.logger != nil {
				h.logger.Warn("join-rooms subscribe failed",
					zap.String("room", ref.ID),
					zap.String("conn", conn.ID()),
					zap.Error(err),
				)
			}
			continue
		}
		joined = append(joined, ref.ID)
	}
	return joined, nil
}

// SendMessage runs the message pipeline for the connection's user.
func (h *Hub) SendMessage(ctx context.Context, conn *Connection, roomID, content string, attachments []string) (*models.MessageModel, error) {
	return h.pipeline.Submit(ctx, conn.Identity(), roomID, content, attachments)
}

// MarkRead updates read state for the room and announces it.
func (h *Hub) MarkRead(ctx context.Context, conn *Connection, roomID string) (int64, error) {
	return h.pipeline.MarkRead(ctx, conn.Identity(), roomID)
}

// TypingStart requires a live subscription to the room; typing is an
// in-memory operation and never touches persistence.
func (h *Hub) TypingStart(conn *Connection, roomID string) error {
	if !h.fanout.IsSubscribed(conn.ID(), roomID) {
		return fmt.Errorf("%w: room %s", ErrNotAMember, roomID)
	}
	h.typing.Start(conn.Identity(), roomID, conn.ID())
	return nil
}

// TypingStop is idempotent.
func (h *Hub) TypingStop(conn *Connection, roomID string) error {
	if !h.fanout.IsSubscribed(conn.ID(), roomID) {
		return fmt.Errorf("%w: room %s", ErrNotAMember, roomID)
	}
	h.typing.Stop(conn.Identity(), roomID, conn.ID())
	return nil
}

// JoinConference subscribes the connection to a conference room, announces
// the participant to the others, and returns the current participant list.
func (h *Hub) JoinConference(ctx context.Context, conn *Connection, roomID string) (ParticipantsPayload, error) {
	wasSubscribed := h.fanout.IsSubscribed(conn.ID(), roomID)
	kind, err := h.fanout.Subscribe(ctx, conn, roomID)
	if err != nil {
		return ParticipantsPayload{}, err
	}
	if kind != models.RoomKindConference {
		// Roll back only a subscription this call created. The connection
		// may already subscribe to the room legitimately as a chat room.
		if !wasSubscribed {
			h.fanout.Unsubscribe(conn, roomID)
		}
		return ParticipantsPayload{}, fmt.Errorf("%w: room %s is not a conference room", ErrValidation, roomID)
	}

	h.fanout.Publish(roomID, Event{Kind: EventParticipantJoined, Payload: ParticipantPayload{
		RoomID:      roomID,
		UserID:      conn.UserID(),
		DisplayName: conn.DisplayName(),
	}}, conn.ID())

	return ParticipantsPayload{
		RoomID:       roomID,
		Participants: h.fanout.Participants(roomID),
	}, nil
}

// LeaveConference unsubscribes the connection and announces the departure
// once the user has no subscribed connection left. A leave for a room the
// connection never joined is a no-op: announcing it would let any client
// inject participant-left events into arbitrary rooms.
func (h *Hub) LeaveConference(conn *Connection, roomID string) {
	if !h.fanout.IsSubscribed(conn.ID(), roomID) {
		return
	}
	h.fanout.Unsubscribe(conn, roomID)
	h.announceConferenceLeave(conn, roomID)
}

func (h *Hub) announceConferenceLeave(conn *Connection, roomID string) {
	for _, p := range h.fanout.Participants(roomID) {
		if p.UserID == conn.UserID() {
			// Another connection of the same user is still in the room.
			return
		}
	}
	h.fanout.Publish(roomID, Event{Kind: EventParticipantLeft, Payload: ParticipantPayload{
		RoomID:      roomID,
		UserID:      conn.UserID(),
		DisplayName: conn.DisplayName(),
	}}, conn.ID())
}

// Signal relays an opaque negotiation envelope (offer, answer, candidate)
// to a specific peer.
func (h *Hub) Signal(kind EventKind, conn *Connection, targetUserID, roomID string, envelope interface{}) error {
	return h.signals.Relay(kind, conn, targetUserID, roomID, envelope)
}

// ToggleMute broadcasts a mute UI-state change to the conference room.
func (h *Hub) ToggleMute(conn *Connection, roomID string, muted bool) error {
	return h.signals.BroadcastMediaState(EventParticipantMuted, conn, roomID, muted)
}

// ToggleVideo broadcasts a video UI-state change to the conference room.
func (h *Hub) ToggleVideo(conn *Connection, roomID string, videoOff bool) error {
	return h.signals.BroadcastMediaState(EventParticipantVideo, conn, roomID, videoOff)
}

// Stats summarizes live hub state for the HTTP stats surface.
type Stats struct {
	OnlineUsers   int            `json:"online_users"`
	Connections   int            `json:"connections"`
	ActiveTyping  int            `json:"active_typing"`
	RoomSubCounts map[string]int `json:"rooms"`
}

func (h *Hub) Stats() Stats {
	return Stats{
		OnlineUsers:   h.registry.OnlineCount(),
		Connections:   h.registry.ConnectionCount(),
		ActiveTyping:  h.typing.ActiveCount(),
		RoomSubCounts: h.fanout.SubscriberCounts(),
	}
}

// clusterEnvelope carries an event between hub instances over Redis.
type clusterEnvelope struct {
	Origin string `json:"origin"`
	Event  Event  `json:"event"`
}

// enqueueRelay hands a room or presence event to the relay drain loop.
// Callers hold room or presence locks, so this never blocks on the network:
// when the queue is full the event is dropped and logged.
func (h *Hub) enqueueRelay(ev Event) {
	select {
	case h.relayCh <- ev:
	default:
		if h.logger != nil {
			h.logger.Warn("relay queue full, event dropped", zap.String("kind", string(ev.Kind)))
		}
	}
}

// publishRelay marshals one envelope and publishes it to Redis. Runs only on
// the Run goroutine, so relayed events keep their enqueue order.
func (h *Hub) publishRelay(ctx context.Context, ev Event) {
	data, err := json.Marshal(clusterEnvelope{Origin: h.instanceID, Event: ev})
	if err != nil {
		return
	}
	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := h.rc.Publish(pctx, redisChanEvents, string(data)); err != nil && h.logger != nil {
		h.logger.Warn("hub relay publish failed", zap.Error(err))
	}
}

// Run drains the outbound relay queue and listens for events relayed by
// other hub instances, delivering them to local subscribers. Returns when
// ctx is cancelled or relay is disabled.
func (h *Hub) Run(ctx context.Context) {
	if h.rc == nil {
		return
	}
	pubsub := h.rc.Subscribe(ctx, redisChanEvents)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return

		case ev := <-h.relayCh:
			h.publishRelay(ctx, ev)

		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env clusterEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				continue
			}
			if env.Origin == h.instanceID {
				continue
			}
			if env.Event.Room != "" {
				h.fanout.deliverLocal(env.Event.Room, env.Event, "")
			} else {
				h.broadcaster.Deliver(env.Event)
			}
		}
	}
}
