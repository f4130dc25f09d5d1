package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Post is a marketplace listing or forum thread.
type Post struct {
	ID         uuid.UUID       `json:"id" gorm:"type:char(36);primaryKey"`
	Title      string          `json:"title" gorm:"size:200;not null"`
	Content    string          `json:"content" gorm:"type:text;not null"`
	AuthorID   uuid.UUID       `json:"authorId" gorm:"type:char(36);not null;index"`
	CategoryID *uuid.UUID      `json:"categoryId" gorm:"type:char(36);index"`
	Tags       []string        `json:"tags" gorm:"serializer:json;type:json"`
	Price      decimal.Decimal `json:"price" gorm:"type:decimal(20,2);not null"`
	IsFree     bool            `json:"isFree" gorm:"not null"`
	Views      int             `json:"views" gorm:"not null;default:0"`
	IsSold     bool            `json:"isSold" gorm:"not null"`
	IsPinned   bool            `json:"isPinned" gorm:"not null"`
	CreatedAt  time.Time       `json:"createdAt" gorm:"index"`
	UpdatedAt  time.Time       `json:"updatedAt"`

	// Relations
	Author   *User     `json:"-" gorm:"foreignKey:AuthorID"`
	Category *Category `json:"-" gorm:"foreignKey:CategoryID"`
	Replies  []Reply   `json:"replies" gorm:"foreignKey:PostID"`

	// Likes is filled from post_likes by the repository.
	Likes []uuid.UUID `json:"likes" gorm:"-"`
}

// BeforeCreate sets UUID before creating the record.
func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// NormalizePrice enforces that free posts carry no price.
func (p *Post) NormalizePrice() {
	if p.IsFree {
		p.Price = decimal.Zero
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
}

// MarshalJSON renders author and category as summaries.
func (p Post) MarshalJSON() ([]byte, error) {
	type post Post
	likes := p.Likes
	if likes == nil {
		likes = []uuid.UUID{}
	}
	replies := p.Replies
	if replies == nil {
		replies = []Reply{}
	}
	return json.Marshal(struct {
		post
		Author   *UserSummary     `json:"author,omitempty"`
		Category *CategorySummary `json:"category,omitempty"`
		Likes    []uuid.UUID      `json:"likes"`
		Replies  []Reply          `json:"replies"`
	}{
		post:     post(p),
		Author:   p.Author.Summary(),
		Category: p.Category.Summary(),
		Likes:    likes,
		Replies:  replies,
	})
}

// PostLike records that a user likes a post. The composite key keeps each
// user in a post's like set at most once.
type PostLike struct {
	PostID    uuid.UUID `gorm:"type:char(36);primaryKey"`
	UserID    uuid.UUID `gorm:"type:char(36);primaryKey;index"`
	CreatedAt time.Time
}
