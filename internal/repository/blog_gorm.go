package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"writeflow/internal/models"
	"writeflow/internal/observability"

	"gorm.io/gorm"
)

// GormBlogRepository stores each blog as one row; tags and the comment tree
// are JSON columns.
type GormBlogRepository struct {
	db *gorm.DB
}

// NewGormBlogRepository returns a BlogRepository backed by postgres or sqlite.
func NewGormBlogRepository(db *gorm.DB) *GormBlogRepository {
	return &GormBlogRepository{db: db}
}

var _ BlogRepository = (*GormBlogRepository)(nil)

func (r *GormBlogRepository) Create(ctx context.Context, blog *models.Blog) error {
	defer observability.TrackStore("gorm", "blog_create")()
	stampNew(blog, time.Now().UTC())
	if err := r.db.WithContext(ctx).Create(blog).Error; err != nil {
		return fmt.Errorf("create blog: %w", err)
	}
	return nil
}

func (r *GormBlogRepository) GetByID(ctx context.Context, id uint) (*models.Blog, error) {
	defer observability.TrackStore("gorm", "blog_get")()
	ctx, span := observability.StartStoreSpan(ctx, "gorm", "blog_get")

	var blog models.Blog
	err := r.db.WithContext(ctx).First(&blog, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		observability.EndSpan(span, nil)
		return nil, ErrBlogNotFound
	}
	observability.EndSpan(span, err)
	if err != nil {
		return nil, fmt.Errorf("get blog %d: %w", id, err)
	}
	return normalizeBlog(&blog), nil
}

func (r *GormBlogRepository) List(ctx context.Context) ([]*models.Blog, error) {
	return r.list(ctx, r.db.WithContext(ctx))
}

func (r *GormBlogRepository) ListByAuthor(ctx context.Context, author string) ([]*models.Blog, error) {
	return r.list(ctx, r.db.WithContext(ctx).Where("author = ?", author))
}

func (r *GormBlogRepository) list(_ context.Context, q *gorm.DB) ([]*models.Blog, error) {
	defer observability.TrackStore("gorm", "blog_list")()
	var blogs []*models.Blog
	if err := q.Order("created_at DESC").Order("id DESC").Find(&blogs).Error; err != nil {
		return nil, fmt.Errorf("list blogs: %w", err)
	}
	for _, b := range blogs {
		normalizeBlog(b)
	}
	return blogs, nil
}

// Save writes the whole document if nobody saved it since it was loaded.
func (r *GormBlogRepository) Save(ctx context.Context, blog *models.Blog) error {
	defer observability.TrackStore("gorm", "blog_save")()
	ctx, span := observability.StartStoreSpan(ctx, "gorm", "blog_save")

	normalizeBlog(blog)
	next := *blog
	next.Revision = blog.Revision + 1
	next.UpdatedAt = time.Now().UTC()

	res := r.db.WithContext(ctx).
		Model(&next).
		Where("revision = ?", blog.Revision).
		Select("title", "content", "image", "tags", "comments", "revision", "updated_at").
		Updates(&next)
	if res.Error != nil {
		observability.EndSpan(span, res.Error)
		return fmt.Errorf("save blog %d: %w", blog.ID, res.Error)
	}

	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.Blog{}).Where("id = ?", blog.ID).Count(&count).Error; err != nil {
			observability.EndSpan(span, err)
			return fmt.Errorf("save blog %d: %w", blog.ID, err)
		}
		observability.EndSpan(span, nil)
		if count == 0 {
			return ErrBlogNotFound
		}
		return ErrStaleRevision
	}

	observability.EndSpan(span, nil)
	blog.Revision = next.Revision
	blog.UpdatedAt = next.UpdatedAt
	return nil
}

func (r *GormBlogRepository) Delete(ctx context.Context, id uint) error {
	defer observability.TrackStore("gorm", "blog_delete")()
	res := r.db.WithContext(ctx).Delete(&models.Blog{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete blog %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrBlogNotFound
	}
	return nil
}
