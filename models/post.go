package models

import "time"

// Post is a user-authored text entry, optionally tagged to a group and carrying an image.
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	CreatedAt time.Time `gorm:"index" json:"pub_date"`
	UpdatedAt time.Time `json:"updated_at"`
	AuthorID  uint      `gorm:"index;not null" json:"author_id"`
	Author    User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	GroupID   *uint     `gorm:"index" json:"group_id"`
	Group     *Group    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"group,omitempty"`
	Image     string    `gorm:"size:255" json:"image"` // relative to media root, like posts/small.gif
	Comments  []Comment `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}

// Editable lists the columns a post's author may change. Author is never among them.
var Editable = []string{"Text", "GroupID", "Image"}

func (p Post) String() string {
	return Excerpt(p.Text, 15)
}

// Excerpt returns at most n runes of s.
func Excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
