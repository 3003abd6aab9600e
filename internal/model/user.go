package model

import (
	"time"
)

// Role defines what a user is allowed to do
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User owns zero or more videos
type User struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Name     string `gorm:"size:100;not null" json:"name"`
	Email    string `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Password string `gorm:"size:100;not null" json:"-"`
	Role     Role   `gorm:"size:20;not null;default:user" json:"role"`

	ResetTokenHash   string     `gorm:"size:64;index" json:"-"`
	ResetTokenExpiry *time.Time `json:"-"`

	TelegramChatID     *int64     `gorm:"uniqueIndex" json:"-"`
	TelegramLinkCode   string     `gorm:"size:32;index" json:"-"`
	TelegramLinkExpiry *time.Time `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName returns the table name for User
func (User) TableName() string {
	return "users"
}

// IsAdmin reports whether the user has the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// TelegramLinked reports whether a share-bot chat is bound to the user
func (u *User) TelegramLinked() bool {
	return u.TelegramChatID != nil
}
