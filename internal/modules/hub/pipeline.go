package hub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/teamspace/hub/internal/models"
	"github.com/teamspace/hub/internal/store"
	"go.uber.org/zap"
)

// DefaultMaxMessageLength bounds message content size, counted in runes.
const DefaultMaxMessageLength = 4096

// notificationPreviewBytes caps the content excerpt stored in an offline
// notification.
const notificationPreviewBytes = 100

// Pipeline accepts message submissions: validate, persist, fan out, and
// leave offline notifications for members with no live session.
type Pipeline struct {
	store    store.Store
	fanout   *Fanout
	registry *Registry
	logger   *zap.Logger
	maxLen   int
}

func NewPipeline(st store.Store, fanout *Fanout, registry *Registry, logger *zap.Logger, maxLen int) *Pipeline {
	if maxLen <= 0 {
		maxLen = DefaultMaxMessageLength
	}
	return &Pipeline{
		store:    st,
		fanout:   fanout,
		registry: registry,
		logger:   logger,
		maxLen:   maxLen,
	}
}

// Submit persists a message and fans it out to the room. Persistence
// strictly precedes fanout: a subscriber never observes a message that
// could vanish on a history reload. Offline notifications are best-effort
// and never fail the submission.
func (p *Pipeline) Submit(ctx context.Context, sender Identity, roomID, content string, attachments []string) (*models.MessageModel, error) {
	if _, err := p.store.RoomKind(ctx, roomID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, roomID)
		}
		return nil, persistenceErr("room lookup", err)
	}

	members, err := p.store.RoomMembers(ctx, roomID)
	if err != nil {
		return nil, persistenceErr("membership check", err)
	}
	if !contains(members, sender.UserID) {
		return nil, fmt.Errorf("%w: user %s is not a member of room %s", ErrPermission, sender.UserID, roomID)
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: message content is empty", ErrValidation)
	}
	if utf8.RuneCountInString(content) > p.maxLen {
		return nil, fmt.Errorf("%w: message exceeds %d characters", ErrValidation, p.maxLen)
	}

	msg := &models.MessageModel{
		RoomID:      roomID,
		SenderID:    sender.UserID,
		Content:     content,
		Attachments: models.StringArray(attachments),
		ReadBy:      models.StringArray{sender.UserID},
	}
	if err := p.store.CreateMessage(ctx, msg); err != nil {
		return nil, persistenceErr("create message", err)
	}

	p.fanout.Publish(roomID, Event{Kind: EventNewMessage, Payload: MessagePayload{
		ID:          msg.ID,
		RoomID:      roomID,
		SenderID:    sender.UserID,
		SenderName:  sender.DisplayName,
		Content:     content,
		Attachments: attachments,
		CreatedAt:   msg.CreatedAt,
	}}, "")

	p.notifyOffline(ctx, sender, roomID, content, members)
	return msg, nil
}

// notifyOffline leaves a durable notification for each member without a
// live session. Failures are logged and swallowed.
func (p *Pipeline) notifyOffline(ctx context.Context, sender Identity, roomID, content string, members []string) {
	preview := content
	if len(preview) > notificationPreviewBytes {
		// Back up to a rune boundary so the stored excerpt stays valid UTF-8.
		cut := notificationPreviewBytes
		for cut > 0 && !utf8.RuneStart(preview[cut]) {
			cut--
		}
		preview = preview[:cut] + "..."
	}
	for _, userID := range members {
		if userID == sender.UserID || p.registry.IsOnline(userID) {
			continue
		}
		n := &models.NotificationModel{
			UserID:  userID,
			Kind:    models.NotificationKindMessage,
			Content: fmt.Sprintf("%s: %s", sender.DisplayName, preview),
			RoomID:  roomID,
		}
		if err := p.store.CreateNotification(ctx, n); err != nil && p.logger != nil {
			p.logger.Warn("offline notification failed",
				zap.String("user", userID),
				zap.String("room", roomID),
				zap.Error(err),
			)
		}
	}
}

// MarkRead marks all of the user's unread messages in the room as read,
// then announces it to the room. The caller must be an authoritative member
// of the room.
func (p *Pipeline) MarkRead(ctx context.Context, user Identity, roomID string) (int64, error) {
	if _, err := p.store.RoomKind(ctx, roomID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, fmt.Errorf("%w: %s", ErrRoomNotFound, roomID)
		}
		return 0, persistenceErr("room lookup", err)
	}
	member, err := p.store.IsRoomMember(ctx, roomID, user.UserID)
	if err != nil {
		return 0, persistenceErr("membership check", err)
	}
	if !member {
		return 0, fmt.Errorf("%w: user %s is not a member of room %s", ErrPermission, user.UserID, roomID)
	}

	count, err := p.store.MarkMessagesRead(ctx, roomID, user.UserID)
	if err != nil {
		return 0, persistenceErr("mark read", err)
	}
	p.fanout.Publish(roomID, Event{Kind: EventMessagesRead, Payload: MessagesReadPayload{
		RoomID: roomID,
		UserID: user.UserID,
		Count:  count,
	}}, "")
	return count, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
