package models

import (
	"fmt"
	"time"
)

// Follow subscribes User to Author's posts. The pair is unique.
type Follow struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_follow_pair,priority:1" json:"user_id"`
	User      User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
	AuthorID  uint      `gorm:"not null;index;uniqueIndex:idx_follow_pair,priority:2" json:"author_id"`
	Author    User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	CreatedAt time.Time `json:"created_at"`
}

func (f Follow) String() string {
	return fmt.Sprintf("%s follows %s", f.User, f.Author)
}
