package models

// RoomKind distinguishes chat rooms from conference rooms.
type RoomKind string

const (
	RoomKindChat       RoomKind = "chat"
	RoomKindConference RoomKind = "conference"
)

// Valid reports whether k is one of the known room kinds.
func (k RoomKind) Valid() bool {
	return k == RoomKindChat || k == RoomKindConference
}

// RoomModel is a named group of members sharing a message or conference stream.
type RoomModel struct {
	Base
	Name      string   `json:"name"       gorm:"not null"`
	Kind      RoomKind `json:"kind"       gorm:"type:varchar(16);index;not null"`
	CreatorID string   `json:"creator_id" gorm:"index"`
}

func (RoomModel) TableName() string { return "rooms" }

// RoomMemberModel is the authoritative membership relation. The hub only
// caches which connections are currently subscribed; this table decides who
// may subscribe at all.
type RoomMemberModel struct {
	Base
	RoomID string `json:"room_id" gorm:"uniqueIndex:idx_room_user;not null"`
	UserID string `json:"user_id" gorm:"uniqueIndex:idx_room_user;index;not null"`
}

func (RoomMemberModel) TableName() string { return "room_members" }
