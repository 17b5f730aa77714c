package models

// NotificationKind classifies offline notifications for client rendering.
type NotificationKind string

const (
	NotificationKindMessage NotificationKind = "message"
	NotificationKindSystem  NotificationKind = "system"
)

// NotificationModel is a durable record created for a room member who had no
// live connection when a message arrived, for later retrieval.
type NotificationModel struct {
	Base
	UserID  string           `json:"user_id" gorm:"index:idx_notifications_user;not null"`
	Kind    NotificationKind `json:"kind"    gorm:"type:varchar(16);not null"`
	Content string           `json:"content" gorm:"type:text"`
	RoomID  string           `json:"room_id" gorm:"index"`
	Read    bool             `json:"read"    gorm:"index:idx_notifications_user"`
}

func (NotificationModel) TableName() string { return "notifications" }
