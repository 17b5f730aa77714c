package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/teamspace/hub/internal/models"
	"gorm.io/gorm"
)

// GormStore implements Store on a gorm database handle.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) RoomKind(ctx context.Context, roomID string) (models.RoomKind, error) {
	var room models.RoomModel
	err := s.db.WithContext(ctx).Select("kind").First(&room, "id = ?", roomID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("%w: room %s", ErrNotFound, roomID)
		}
		return "", err
	}
	return room.Kind, nil
}

func (s *GormStore) RoomMembers(ctx context.Context, roomID string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&models.RoomMemberModel{}).
		Where("room_id = ?", roomID).
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *GormStore) IsRoomMember(ctx context.Context, roomID, userID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.RoomMemberModel{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *GormStore) RoomsOfUser(ctx context.Context, userID string) ([]RoomRef, error) {
	var rows []struct {
		ID   string
		Kind models.RoomKind
	}
	err := s.db.WithContext(ctx).
		Model(&models.RoomModel{}).
		Select("rooms.id, rooms.kind").
		Joins("JOIN room_members ON room_members.room_id = rooms.id").
		Where("room_members.user_id = ? AND room_members.deleted_at IS NULL", userID).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]RoomRef, 0, len(rows))
	for _, r := range rows {
		out = append(out, RoomRef{ID: r.ID, Kind: r.Kind})
	}
	return out, nil
}

func (s *GormStore) CreateMessage(ctx context.Context, msg *models.MessageModel) error {
	if msg.Attachments == nil {
		msg.Attachments = models.StringArray{}
	}
	if msg.ReadBy == nil {
		msg.ReadBy = models.StringArray{msg.SenderID}
	}
	return s.db.WithContext(ctx).Create(msg).Error
}

// MarkMessagesRead appends the user to read_by on every message in the room
// the user has not read yet. Read state lives in a JSON column, so the
// update walks candidate rows inside one transaction.
func (s *GormStore) MarkMessagesRead(ctx context.Context, roomID, userID string) (int64, error) {
	var updated int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var msgs []models.MessageModel
		if err := tx.Select("id", "read_by").
			Where("room_id = ? AND sender_id <> ?", roomID, userID).
			Find(&msgs).Error; err != nil {
			return err
		}
		for i := range msgs {
			if msgs[i].ReadBy.Contains(userID) {
				continue
			}
			readBy := append(msgs[i].ReadBy, userID)
			if err := tx.Model(&models.MessageModel{}).
				Where("id = ?", msgs[i].ID).
				Update("read_by", readBy).Error; err != nil {
				return err
			}
			updated++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

func (s *GormStore) CreateNotification(ctx context.Context, n *models.NotificationModel) error {
	return s.db.WithContext(ctx).Create(n).Error
}
