package repository

import (
	"context"
	"time"

	"writeflow/internal/models"
)

// BlogRepository persists blogs as whole documents, comment tree included.
//
// Save is an optimistic compare-and-set on Blog.Revision: it succeeds only
// if the stored revision still equals the one the caller loaded, and on
// success bumps blog.Revision. Otherwise it returns ErrStaleRevision.
type BlogRepository interface {
	Create(ctx context.Context, blog *models.Blog) error
	GetByID(ctx context.Context, id uint) (*models.Blog, error)
	// List returns every blog, newest first.
	List(ctx context.Context) ([]*models.Blog, error)
	// ListByAuthor returns the author's blogs, newest first.
	ListByAuthor(ctx context.Context, author string) ([]*models.Blog, error)
	Save(ctx context.Context, blog *models.Blog) error
	Delete(ctx context.Context, id uint) error
}

// normalizeBlog replaces nil collections so they serialize as [] rather than null.
func normalizeBlog(b *models.Blog) *models.Blog {
	if b == nil {
		return nil
	}
	if b.Tags == nil {
		b.Tags = []string{}
	}
	if b.Comments == nil {
		b.Comments = []*models.Comment{}
	}
	normalizeReplies(b.Comments)
	return b
}

func normalizeReplies(nodes []*models.Comment) {
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if n.Replies == nil {
			n.Replies = []*models.Comment{}
		}
		normalizeReplies(n.Replies)
	}
}

func stampNew(b *models.Blog, now time.Time) {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
	b.Revision = 0
	normalizeBlog(b)
}
