package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultAvatar is assigned to users who never set one.
const DefaultAvatar = "/assets/images/default-avatar.png"

// Profile holds the user-editable part of an account.
type Profile struct {
	Avatar    string  `json:"avatar" gorm:"size:512"`
	Bio       string  `json:"bio" gorm:"size:500"`
	CustomURL *string `json:"customUrl,omitempty" gorm:"size:64;uniqueIndex"`
}

// User represents a registered marketplace member.
type User struct {
	ID           uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	Username     string    `json:"username" gorm:"size:20;uniqueIndex;not null"`
	Email        string    `json:"email" gorm:"size:255;uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"size:255;not null"` // Never expose in JSON
	Role         Role      `json:"role" gorm:"type:varchar(20);not null;default:'user';index"`
	Profile      Profile   `json:"profile" gorm:"embedded;embeddedPrefix:profile_"`
	Reputation   int       `json:"reputation" gorm:"not null;default:0"`
	PostCount    int       `json:"postCount" gorm:"not null;default:0"`
	IsActive     bool      `json:"isActive" gorm:"not null;index"`
	LastActive   time.Time `json:"lastActive" gorm:"index"`
	CreatedAt    time.Time `json:"createdAt" gorm:"index"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// BeforeCreate fills in ID and defaults before the insert.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	u.applyDefaults()
	return nil
}

// PrepareForCreate applies the same defaults as the GORM hook for stores
// that do not run hooks.
func (u *User) PrepareForCreate(now time.Time) {
	if u.LastActive.IsZero() {
		u.LastActive = now
	}
	u.applyDefaults()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
}

func (u *User) applyDefaults() {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	if u.Profile.Avatar == "" {
		u.Profile.Avatar = DefaultAvatar
	}
	if u.LastActive.IsZero() {
		u.LastActive = time.Now()
	}
}

// UserSummary is the slice of a user embedded in posts and replies.
type UserSummary struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Avatar   string    `json:"avatar"`
}

// Summary returns the public summary of u.
func (u *User) Summary() *UserSummary {
	if u == nil {
		return nil
	}
	return &UserSummary{ID: u.ID, Username: u.Username, Avatar: u.Profile.Avatar}
}
