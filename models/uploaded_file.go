package models

import "time"

// UploadedFile records a stored post image so orphaned files can be removed later.
// ExpireAt stays nil while a post references the file.
type UploadedFile struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	FilePath  string     `gorm:"size:1024;not null" json:"file_path"`
	Name      string     `gorm:"size:255;index;not null" json:"name"` // relative to media root, like posts/a.gif
	PostID    *uint      `gorm:"index" json:"post_id"`
	ExpireAt  *time.Time `gorm:"index" json:"expire_at"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// All lists every model for migrations.
func All() []interface{} {
	return []interface{}{&User{}, &Group{}, &Post{}, &Comment{}, &Follow{}, &UploadedFile{}}
}
