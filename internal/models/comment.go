package models

import "time"

// Comment represents a reply attached to one post
type Comment struct {
	ID       uint      `json:"id" gorm:"primaryKey"`
	PostID   uint      `json:"post_id" gorm:"not null;index"`
	Post     *Post     `json:"post,omitempty" gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE"`
	AuthorID uint      `json:"author_id" gorm:"not null;index"`
	Author   User      `json:"author" gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
	Text     string    `json:"text" gorm:"type:text;not null"`
	Created  time.Time `json:"created" gorm:"autoCreateTime;index"`
}

func (c Comment) String() string {
	return c.Text
}

// CommentRequest defines the form for adding a comment
type CommentRequest struct {
	Text string `form:"text" validate:"required"`
}
