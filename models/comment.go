package models

import "time"

// Comment is a reply attached to a post.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"index;not null" json:"post_id"`
	AuthorID  uint      `gorm:"index;not null" json:"author_id"`
	Author    User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	CreatedAt time.Time `json:"created"`
	UpdatedAt time.Time `json:"updated"`
	Active    bool      `gorm:"default:true;not null" json:"active"`
}

func (c Comment) String() string {
	return Excerpt(c.Text, 15)
}
