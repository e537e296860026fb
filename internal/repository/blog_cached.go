package repository

import (
	"context"
	"errors"
	"log/slog"

	"writeflow/internal/cache"
	"writeflow/internal/middleware"
	"writeflow/internal/models"

	"github.com/redis/go-redis/v9"
)

// CachedBlogRepository serves GetByID through Redis. Saves publish the new
// revision, deletes leave a tombstone, and cache fills never replace a newer
// revision. Lists are always read from the underlying store.
type CachedBlogRepository struct {
	BlogRepository
	rdb *redis.Client
}

// NewCachedBlogRepository wraps next. A nil client returns next unchanged.
func NewCachedBlogRepository(next BlogRepository, rdb *redis.Client) BlogRepository {
	if rdb == nil {
		return next
	}
	return &CachedBlogRepository{BlogRepository: next, rdb: rdb}
}

func blogRevision(b *models.Blog) uint64 { return b.Revision }

func (r *CachedBlogRepository) GetByID(ctx context.Context, id uint) (*models.Blog, error) {
	blog, err := cache.Aside(ctx, r.rdb, cache.BlogKey(id), cache.BlogTTL, blogRevision, func(ctx context.Context) (*models.Blog, error) {
		return r.BlogRepository.GetByID(ctx, id)
	})
	if errors.Is(err, cache.ErrDeleted) {
		return nil, ErrBlogNotFound
	}
	return blog, err
}

// Create clears any tombstone left under a reused id.
func (r *CachedBlogRepository) Create(ctx context.Context, blog *models.Blog) error {
	if err := r.BlogRepository.Create(ctx, blog); err != nil {
		return err
	}
	r.evict(ctx, blog.ID)
	return nil
}

func (r *CachedBlogRepository) Save(ctx context.Context, blog *models.Blog) error {
	err := r.BlogRepository.Save(ctx, blog)
	switch {
	case err == nil:
		if storeErr := cache.Store(ctx, r.rdb, cache.BlogKey(blog.ID), cache.BlogTTL, blog.Revision, blog); storeErr != nil {
			r.logFailure(ctx, "blog cache write failed", blog.ID, storeErr)
			r.evict(ctx, blog.ID)
		}
	case errors.Is(err, ErrBlogNotFound):
		r.tombstone(ctx, blog.ID)
	}
	// A stale save leaves the cache alone: the winning save already published.
	return err
}

func (r *CachedBlogRepository) Delete(ctx context.Context, id uint) error {
	err := r.BlogRepository.Delete(ctx, id)
	if err == nil || errors.Is(err, ErrBlogNotFound) {
		r.tombstone(ctx, id)
	}
	return err
}

func (r *CachedBlogRepository) tombstone(ctx context.Context, id uint) {
	if err := cache.Tombstone(ctx, r.rdb, cache.BlogKey(id), cache.BlogTTL); err != nil {
		r.logFailure(ctx, "blog cache tombstone failed", id, err)
		r.evict(ctx, id)
	}
}

func (r *CachedBlogRepository) evict(ctx context.Context, id uint) {
	if err := cache.Invalidate(ctx, r.rdb, cache.BlogKey(id)); err != nil {
		r.logFailure(ctx, "blog cache eviction failed", id, err)
	}
}

func (r *CachedBlogRepository) logFailure(ctx context.Context, msg string, id uint, err error) {
	middleware.Logger.WarnContext(ctx, msg,
		slog.Uint64("blog_id", uint64(id)),
		slog.String("error", err.Error()),
	)
}
