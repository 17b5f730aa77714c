package hub

import "fmt"

// SignalRelay forwards opaque media-negotiation envelopes between specific
// peers of a conference room. Pure routing: the envelope is never inspected,
// validated, or stored.
type SignalRelay struct {
	fanout   *Fanout
	registry *Registry
}

func NewSignalRelay(fanout *Fanout, registry *Registry) *SignalRelay {
	return &SignalRelay{fanout: fanout, registry: registry}
}

// Relay forwards envelope from sender to every live connection of the
// target user, tagged with the sender's identity. The sender must currently
// subscribe to the conference room; an offline target is a soft failure.
func (r *SignalRelay) Relay(kind EventKind, sender *Connection, targetUserID, roomID string, envelope interface{}) error {
	if !r.fanout.IsSubscribed(sender.ID(), roomID) {
		return fmt.Errorf("%w: room %s", ErrNotInConference, roomID)
	}

	targets := r.registry.ConnectionsFor(targetUserID)
	if len(targets) == 0 {
		return fmt.Errorf("%w: %s", ErrTargetOffline, targetUserID)
	}

	ev := Event{Kind: kind, Room: roomID, Payload: SignalPayload{
		RoomID:   roomID,
		SenderID: sender.UserID(),
		Envelope: envelope,
	}}
	for _, c := range targets {
		c.deliver(ev)
	}
	return nil
}

// BroadcastMediaState announces a mute/video UI-state change to the other
// subscribers of the conference room. Not persisted.
func (r *SignalRelay) BroadcastMediaState(kind EventKind, sender *Connection, roomID string, state bool) error {
	if !r.fanout.IsSubscribed(sender.ID(), roomID) {
		return fmt.Errorf("%w: room %s", ErrNotInConference, roomID)
	}
	r.fanout.Publish(roomID, Event{Kind: kind, Payload: MediaStatePayload{
		RoomID: roomID,
		UserID: sender.UserID(),
		State:  state,
	}}, sender.ID())
	return nil
}
