// Package room is the REST surface around rooms, message history, and
// offline notifications. Real-time delivery lives in the hub; this package
// only reads and writes durable state.
package room

import (
	"errors"
	"strings"

	"github.com/teamspace/hub/internal/models"
	"gorm.io/gorm"
)

var (
	errNotAMember  = errors.New("not a member of this room")
	errInvalidKind = errors.New("invalid room kind")
)

type Service struct{ db *gorm.DB }

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

// ListForUser returns the rooms the user is an authoritative member of.
func (s *Service) ListForUser(userID string) ([]models.RoomModel, error) {
	var rooms []models.RoomModel
	err := s.db.
		Joins("JOIN room_members ON room_members.room_id = rooms.id").
		Where("room_members.user_id = ? AND room_members.deleted_at IS NULL", userID).
		Order("rooms.created_at").
		Find(&rooms).Error
	return rooms, err
}

// Create makes a new room with the creator and the given users as members.
func (s *Service) Create(creatorID, name string, kind models.RoomKind, memberIDs []string) (*models.RoomModel, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("room name is required")
	}
	if !kind.Valid() {
		return nil, errInvalidKind
	}

	room := &models.RoomModel{Name: name, Kind: kind, CreatorID: creatorID}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(room).Error; err != nil {
			return err
		}
		seen := map[string]bool{}
		for _, userID := range append([]string{creatorID}, memberIDs...) {
			if userID == "" || seen[userID] {
				continue
			}
			seen[userID] = true
			if err := tx.Create(&models.RoomMemberModel{RoomID: room.ID, UserID: userID}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return room, nil
}

// MessagesQuery returns a history query for the room, newest first, after
// verifying the caller's membership.
func (s *Service) MessagesQuery(userID, roomID string) (*gorm.DB, error) {
	var count int64
	err := s.db.Model(&models.RoomMemberModel{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Count(&count).Error
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, errNotAMember
	}
	return s.db.Model(&models.MessageModel{}).
		Where("room_id = ?", roomID).
		Order("created_at DESC"), nil
}

// Notifications returns the user's offline notifications, unread first.
func (s *Service) Notifications(userID string, unreadOnly bool) ([]models.NotificationModel, error) {
	q := s.db.Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("`read` = ?", false)
	}
	var out []models.NotificationModel
	err := q.Order("`read` ASC, created_at DESC").Limit(200).Find(&out).Error
	return out, err
}

// MarkNotificationsRead flags all of the user's notifications as read.
func (s *Service) MarkNotificationsRead(userID string) (int64, error) {
	res := s.db.Model(&models.NotificationModel{}).
		Where("user_id = ? AND `read` = ?", userID, false).
		Update("read", true)
	return res.RowsAffected, res.Error
}
