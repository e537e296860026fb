package service

import (
	"context"
	"errors"
	"log/slog"

	"writeflow/internal/middleware"
	"writeflow/internal/models"
	"writeflow/internal/observability"
	"writeflow/internal/repository"
)

// MaxSaveAttempts bounds how often a blog mutation is replayed after
// losing a revision race.
const MaxSaveAttempts = 5

// mutateBlog loads the blog, applies fn and saves it, replaying the whole
// cycle when another writer saved first. fn must be safe to run again on a
// freshly loaded copy.
func mutateBlog(ctx context.Context, blogs repository.BlogRepository, blogID uint, fn func(*models.Blog) error) (*models.Blog, error) {
	var lastErr error
	for attempt := 1; attempt <= MaxSaveAttempts; attempt++ {
		blog, err := loadBlog(ctx, blogs, blogID)
		if err != nil {
			return nil, err
		}
		if err := fn(blog); err != nil {
			return nil, err
		}

		err = blogs.Save(ctx, blog)
		switch {
		case err == nil:
			if attempt > 1 {
				observability.RevisionConflicts.WithLabelValues("recovered").Inc()
			}
			return blog, nil
		case errors.Is(err, repository.ErrStaleRevision):
			lastErr = err
			middleware.Logger.DebugContext(ctx, "blog changed during update, retrying",
				slog.Uint64("blog_id", uint64(blogID)),
				slog.Int("attempt", attempt),
			)
		case errors.Is(err, repository.ErrBlogNotFound):
			return nil, models.NewNotFoundError("Blog", nil)
		default:
			return nil, models.NewInternalError(err)
		}
	}

	observability.RevisionConflicts.WithLabelValues("exhausted").Inc()
	middleware.Logger.WarnContext(ctx, "giving up on contended blog update",
		slog.Uint64("blog_id", uint64(blogID)),
	)
	return nil, models.NewStaleWriteError(lastErr)
}

func loadBlog(ctx context.Context, blogs repository.BlogRepository, blogID uint) (*models.Blog, error) {
	blog, err := blogs.GetByID(ctx, blogID)
	if err != nil {
		if errors.Is(err, repository.ErrBlogNotFound) {
			return nil, models.NewNotFoundError("Blog", nil)
		}
		return nil, models.NewInternalError(err)
	}
	return blog, nil
}
