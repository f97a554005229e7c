package models

// Group is a sluggable category a post may belong to. Groups are created only
// from the admin surface or the blogctl command.
type Group struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	Title       string `json:"title" gorm:"size:200;not null"`
	Slug        string `json:"slug" gorm:"size:50;uniqueIndex;not null"`
	Description string `json:"description" gorm:"type:text"`
}

func (g Group) String() string {
	return "Group - " + g.Title
}

// GroupRequest defines the admin form for creating a group
type GroupRequest struct {
	Title       string `form:"title" validate:"required,max=200"`
	Slug        string `form:"slug" validate:"required,max=50,slug"`
	Description string `form:"description" validate:"required"`
}
