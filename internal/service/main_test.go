package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"writeflow/internal/models"
	"writeflow/internal/repository"
	"writeflow/internal/token"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memBlogRepo is an in-memory BlogRepository with the same revision
// semantics as the real stores. beforeSave runs ahead of every Save.
type memBlogRepo struct {
	mu         sync.Mutex
	blogs      map[uint]*models.Blog
	nextID     uint
	saves      int
	beforeSave func(attempt int) error
}

var _ repository.BlogRepository = (*memBlogRepo)(nil)

func newMemBlogRepo() *memBlogRepo {
	return &memBlogRepo{blogs: map[uint]*models.Blog{}}
}

func cloneBlog(b *models.Blog) *models.Blog {
	data, _ := json.Marshal(b)
	var out models.Blog
	_ = json.Unmarshal(data, &out)
	return &out
}

func (r *memBlogRepo) Create(_ context.Context, blog *models.Blog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	blog.ID = r.nextID
	blog.CreatedAt = time.Now().UTC()
	if blog.Comments == nil {
		blog.Comments = []*models.Comment{}
	}
	r.blogs[blog.ID] = cloneBlog(blog)
	return nil
}

func (r *memBlogRepo) GetByID(_ context.Context, id uint) (*models.Blog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.blogs[id]
	if !ok {
		return nil, repository.ErrBlogNotFound
	}
	return cloneBlog(b), nil
}

func (r *memBlogRepo) List(context.Context) ([]*models.Blog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.Blog{}
	for id := r.nextID; id > 0; id-- {
		if b, ok := r.blogs[id]; ok {
			out = append(out, cloneBlog(b))
		}
	}
	return out, nil
}

func (r *memBlogRepo) ListByAuthor(ctx context.Context, author string) ([]*models.Blog, error) {
	all, _ := r.List(ctx)
	out := []*models.Blog{}
	for _, b := range all {
		if b.Author == author {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *memBlogRepo) Save(_ context.Context, blog *models.Blog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	if r.beforeSave != nil {
		if err := r.beforeSave(r.saves); err != nil {
			return err
		}
	}
	current, ok := r.blogs[blog.ID]
	if !ok {
		return repository.ErrBlogNotFound
	}
	if current.Revision != blog.Revision {
		return repository.ErrStaleRevision
	}
	blog.Revision++
	r.blogs[blog.ID] = cloneBlog(blog)
	return nil
}

func (r *memBlogRepo) Delete(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.blogs[id]; !ok {
		return repository.ErrBlogNotFound
	}
	delete(r.blogs, id)
	return nil
}

func (r *memBlogRepo) stored(t *testing.T, id uint) *models.Blog {
	t.Helper()
	b, err := r.GetByID(context.Background(), id)
	require.NoError(t, err)
	return b
}

func seedBlog(t *testing.T, repo repository.BlogRepository, author string) *models.Blog {
	t.Helper()
	blog := &models.Blog{Title: "Hello", Content: "<p>world</p>", Author: author}
	require.NoError(t, repo.Create(context.Background(), blog))
	return blog
}

func identity(userID uint, username string) *token.Identity {
	return &token.Identity{UserID: userID, Username: username, TokenID: "tok-" + username}
}

func assertAppError(t *testing.T, err error, code string) *models.AppError {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
	return appErr
}

// assertValidationError asserts that err is an AppError with code VALIDATION_ERROR.
func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertAppError(t, err, models.CodeValidation)
}
