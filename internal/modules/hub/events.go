package hub

import "time"

// EventKind identifies an outbound event. The constants double as the wire
// names the gateway emits, but nothing outside the gateway should ever
// compare against raw strings.
type EventKind string

const (
	EventNewMessage             EventKind = "new-message"
	EventMessagesRead           EventKind = "messages-read"
	EventUserTyping             EventKind = "user-typing"
	EventUserStoppedTyping      EventKind = "user-stopped-typing"
	EventUserOnline             EventKind = "user-online"
	EventUserOffline            EventKind = "user-offline"
	EventOnlineUsers            EventKind = "online-users"
	EventConferenceParticipants EventKind = "conference-participants"
	EventParticipantJoined      EventKind = "participant-joined"
	EventParticipantLeft        EventKind = "participant-left"
	EventOffer                  EventKind = "offer"
	EventAnswer                 EventKind = "answer"
	EventICECandidate           EventKind = "ice-candidate"
	EventParticipantMuted       EventKind = "participant-muted"
	EventParticipantVideo       EventKind = "participant-video-toggled"
	EventError                  EventKind = "error"
)

// Event is the envelope delivered to connections and relayed between hub
// instances. Room is routing metadata; only Kind and Payload reach clients.
type Event struct {
	Kind    EventKind   `json:"kind"`
	Room    string      `json:"room,omitempty"`
	Payload interface{} `json:"payload"`
}

// MessagePayload is the body of a new-message event.
type MessagePayload struct {
	ID          string    `json:"id"`
	RoomID      string    `json:"roomId"`
	SenderID    string    `json:"senderId"`
	SenderName  string    `json:"senderName"`
	Content     string    `json:"content"`
	Attachments []string  `json:"attachments"`
	CreatedAt   time.Time `json:"createdAt"`
}

// MessagesReadPayload is the body of a messages-read event.
type MessagesReadPayload struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
	Count  int64  `json:"count"`
}

// TypingPayload is the body of user-typing / user-stopped-typing events.
type TypingPayload struct {
	RoomID      string `json:"roomId"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName,omitempty"`
}

// PresencePayload is the body of user-online / user-offline events.
type PresencePayload struct {
	UserID      string    `json:"userId"`
	DisplayName string    `json:"displayName"`
	At          time.Time `json:"at"`
}

// OnlineUser is one entry of the online-users snapshot.
type OnlineUser struct {
	UserID      string    `json:"userId"`
	DisplayName string    `json:"displayName"`
	Since       time.Time `json:"since"`
}

// OnlineUsersPayload is the snapshot sent to a freshly connected client.
type OnlineUsersPayload struct {
	Users []OnlineUser `json:"users"`
}

// ParticipantPayload is the body of participant-joined / participant-left.
type ParticipantPayload struct {
	RoomID      string `json:"roomId"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName,omitempty"`
}

// ParticipantsPayload is the conference-participants snapshot returned on
// join-conference.
type ParticipantsPayload struct {
	RoomID       string       `json:"roomId"`
	Participants []OnlineUser `json:"participants"`
}

// SignalPayload carries a relayed negotiation envelope. Envelope is opaque:
// the hub never inspects it beyond the routing header.
type SignalPayload struct {
	RoomID   string      `json:"roomId"`
	SenderID string      `json:"senderId"`
	Envelope interface{} `json:"envelope"`
}

// MediaStatePayload is the body of participant-muted /
// participant-video-toggled broadcasts. UI state only, never persisted.
type MediaStatePayload struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
	State  bool   `json:"state"`
}

// ErrorPayload is the body of an error event sent back to the originating
// connection.
type ErrorPayload struct {
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}
