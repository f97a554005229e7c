package models

import (
	"time"

	"gorm.io/gorm"
)

// Post is a user-authored text entry, optionally grouped and illustrated.
// Deleting the author removes the post; deleting the group only detaches it.
type Post struct {
	ID       uint      `json:"id" gorm:"primaryKey"`
	Text     string    `json:"text" gorm:"type:text;not null"`
	PubDate  time.Time `json:"pub_date" gorm:"index;not null"`
	AuthorID uint      `json:"author_id" gorm:"not null;index"`
	Author   User      `json:"author" gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
	GroupID  *uint     `json:"group_id,omitempty" gorm:"index"`
	Group    *Group    `json:"group,omitempty" gorm:"foreignKey:GroupID;constraint:OnDelete:SET NULL"`
	Image    string    `json:"image,omitempty" gorm:"size:255"` // media object name, e.g. posts/<uuid>.jpg
}

func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.PubDate.IsZero() {
		p.PubDate = time.Now()
	}
	return nil
}

func (p Post) String() string {
	return p.Text
}

// PostRequest defines the form for creating or editing a post
type PostRequest struct {
	Text       string `form:"text" validate:"required"`
	Group      string `form:"group" validate:"omitempty,number"`
	ImageClear string `form:"image_clear"`
}
