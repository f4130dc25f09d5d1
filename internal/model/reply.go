package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Reply is a comment on a post. It lives and dies with its post.
type Reply struct {
	ID        uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	PostID    uuid.UUID `json:"postId" gorm:"type:char(36);not null;index"`
	UserID    uuid.UUID `json:"userId" gorm:"type:char(36);not null;index"`
	Content   string    `json:"content" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"createdAt" gorm:"index"`

	User *User `json:"-" gorm:"foreignKey:UserID"`

	// Likes is filled from reply_likes by the repository.
	Likes []uuid.UUID `json:"likes" gorm:"-"`
}

// BeforeCreate sets UUID before creating the record.
func (r *Reply) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// MarshalJSON renders the reply author as a summary.
func (r Reply) MarshalJSON() ([]byte, error) {
	type reply Reply
	likes := r.Likes
	if likes == nil {
		likes = []uuid.UUID{}
	}
	return json.Marshal(struct {
		reply
		User  *UserSummary `json:"user,omitempty"`
		Likes []uuid.UUID  `json:"likes"`
	}{
		reply: reply(r),
		User:  r.User.Summary(),
		Likes: likes,
	})
}

// ReplyLike records that a user likes a reply.
type ReplyLike struct {
	ReplyID   uuid.UUID `gorm:"type:char(36);primaryKey"`
	UserID    uuid.UUID `gorm:"type:char(36);primaryKey;index"`
	CreatedAt time.Time
}
