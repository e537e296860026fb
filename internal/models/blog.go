package models

import "time"

// Blog is a post together with its whole comment tree. The tree is stored
// inline with the post and only ever written back as a whole.
type Blog struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Title     string     `gorm:"size:255;not null" json:"title"`
	Content   string     `gorm:"type:text;not null" json:"content"`
	Image     string     `gorm:"size:512" json:"image,omitempty"`
	Tags      []string   `gorm:"serializer:json;type:text" json:"tags"`
	Author    string     `gorm:"size:50;index;not null" json:"author"`
	Comments  []*Comment `gorm:"serializer:json;type:text" json:"comments"`
	Revision  uint64     `gorm:"not null;default:0" json:"revision"`
	CreatedAt time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// IsAuthor reports whether username wrote the blog.
func (b *Blog) IsAuthor(username string) bool {
	return username != "" && b.Author == username
}
