package models

// MessageModel is a persisted chat message. Immutable after creation except
// for the read-state column.
type MessageModel struct {
	Base
	RoomID      string      `json:"room_id"     gorm:"index:idx_messages_room;not null"`
	SenderID    string      `json:"sender_id"   gorm:"index;not null"`
	Content     string      `json:"content"     gorm:"type:text;not null"`
	Attachments StringArray `json:"attachments" gorm:"type:longtext"`
	ReadBy      StringArray `json:"read_by"     gorm:"type:longtext"`
}

func (MessageModel) TableName() string { return "messages" }

// ReadByUser reports whether userID has marked this message read.
func (m *MessageModel) ReadByUser(userID string) bool {
	for _, id := range m.ReadBy {
		if id == userID {
			return true
		}
	}
	return false
}
