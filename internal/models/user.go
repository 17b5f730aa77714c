package models

import "time"

// UserModel represents a registered account.
type UserModel struct {
	Base
	Username      string     `json:"username"  gorm:"uniqueIndex;not null"`
	Name          string     `json:"name"`
	Avatar        string     `json:"avatar"`
	Password      string     `json:"-"         gorm:"not null"`
	Mail          string     `json:"mail"`
	LastLoginTime *time.Time `json:"last_login_time"`
	LastLoginIP   string     `json:"last_login_ip"`
}

func (UserModel) TableName() string { return "users" }

// DisplayName returns the preferred human-readable name.
func (u *UserModel) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}
