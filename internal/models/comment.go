package models

import (
	"slices"
	"time"
)

// Comment is a node of a blog's discussion tree. Top-level comments and
// replies at any depth share this type.
type Comment struct {
	ID        string     `json:"id"`
	Author    string     `json:"author"`
	Text      string     `json:"text"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
	Replies   []*Comment `json:"replies"`
}

// NewComment returns a leaf node with an empty reply list.
func NewComment(id, author, text string, now time.Time) *Comment {
	return &Comment{
		ID:        id,
		Author:    author,
		Text:      text,
		CreatedAt: now,
		Replies:   []*Comment{},
	}
}

// IsAuthor reports whether username wrote the comment.
func (c *Comment) IsAuthor(username string) bool {
	return username != "" && c.Author == username
}

// FindComment walks the tree depth-first and returns the node with the given id.
func FindComment(nodes []*Comment, id string) *Comment {
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if n.ID == id {
			return n
		}
		if found := FindComment(n.Replies, id); found != nil {
			return found
		}
	}
	return nil
}

// RemoveComment deletes the node with the given id from whichever list holds
// it, together with its replies. The order of the remaining siblings is kept.
func RemoveComment(nodes []*Comment, id string) ([]*Comment, bool) {
	for i, n := range nodes {
		if n == nil {
			continue
		}
		if n.ID == id {
			return slices.Delete(nodes, i, i+1), true
		}
		if replies, ok := RemoveComment(n.Replies, id); ok {
			n.Replies = replies
			return nodes, true
		}
	}
	return nodes, false
}

// CountComments returns the number of nodes in the tree.
func CountComments(nodes []*Comment) int {
	total := 0
	for _, n := range nodes {
		if n == nil {
			continue
		}
		total += 1 + CountComments(n.Replies)
	}
	return total
}
