// Package store is the persistence gateway boundary of the real-time hub.
// The hub only sees this interface; everything durable lives behind it.
package store

import (
	"context"
	"errors"

	"github.com/teamspace/hub/internal/models"
)

// ErrNotFound is returned when the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// RoomRef is a light reference to a room a user belongs to.
type RoomRef struct {
	ID   string
	Kind models.RoomKind
}

// Store is the durable-state surface consumed by the hub: room membership,
// message persistence, read state, and offline notifications.
type Store interface {
	// RoomKind returns the kind of the room, or ErrNotFound.
	RoomKind(ctx context.Context, roomID string) (models.RoomKind, error)

	// RoomMembers returns the authoritative member user ids of the room.
	RoomMembers(ctx context.Context, roomID string) ([]string, error)

	// IsRoomMember reports authoritative membership of one user.
	IsRoomMember(ctx context.Context, roomID, userID string) (bool, error)

	// RoomsOfUser returns the rooms the user is an authoritative member of.
	RoomsOfUser(ctx context.Context, userID string) ([]RoomRef, error)

	// CreateMessage durably persists a new message.
	CreateMessage(ctx context.Context, msg *models.MessageModel) error

	// MarkMessagesRead marks all of the user's unread messages in the room
	// as read and returns how many were updated.
	MarkMessagesRead(ctx context.Context, roomID, userID string) (int64, error)

	// CreateNotification records an offline notification for later retrieval.
	CreateNotification(ctx context.Context, n *models.NotificationModel) error
}
