package service

import (
	"context"
	"strings"
	"testing"

	"writeflow/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTags(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"go", "web dev", "db"}, ParseTags(" go, web dev ,,db, "))
	assert.Equal(t, []string{}, ParseTags(""))
}

func TestBlogService_Create(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newMemBlogRepo()
	svc := NewBlogService(repo)

	_, err := svc.Create(ctx, CreateBlogInput{Author: "alice", Title: "  ", Content: "body"})
	appErr := assertAppError(t, err, models.CodeValidation)
	assert.Equal(t, "Title and content required", appErr.Message)

	_, err = svc.Create(ctx, CreateBlogInput{Author: "alice", Title: strings.Repeat("t", 301), Content: "body"})
	assertValidationError(t, err)

	_, err = svc.Create(ctx, CreateBlogInput{Title: "t", Content: "body"})
	assertAppError(t, err, models.CodeUnauthorized)

	blog, err := svc.Create(ctx, CreateBlogInput{
		Author: "alice", Title: " Hello ", Content: "<p>hi</p>", Tags: "go, fiber", Image: "/media/x.jpg",
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello", blog.Title)
	assert.Equal(t, "alice", blog.Author)
	assert.Equal(t, []string{"go", "fiber"}, blog.Tags)
	assert.Equal(t, "/media/x.jpg", blog.Image)
	assert.NotNil(t, blog.Comments)
}

func TestValidateFields(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateFields(" title ", " body "))
	assert.NoError(t, ValidateFields(strings.Repeat("é", maxTitleLen), "body"))
	assert.NoError(t, ValidateFields("t", strings.Repeat("日本", maxContentLen/2)))

	appErr := assertAppError(t, ValidateFields("  ", "body"), models.CodeValidation)
	assert.Equal(t, "Title and content required", appErr.Message)
	appErr = assertAppError(t, ValidateFields(strings.Repeat("é", maxTitleLen+1), "body"), models.CodeValidation)
	assert.Equal(t, "Title too long (max 300 characters)", appErr.Message)
	appErr = assertAppError(t, ValidateFields("t", strings.Repeat("日", maxContentLen+1)), models.CodeValidation)
	assert.Equal(t, "Content too long (max 200000 characters)", appErr.Message)
}

func TestBlogService_CheckEditable(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newMemBlogRepo()
	svc := NewBlogService(repo)
	blog := seedBlog(t, repo, "alice")

	assert.NoError(t, svc.CheckEditable(ctx, blog.ID, identity(1, "alice")))
	assertAppError(t, svc.CheckEditable(ctx, blog.ID, identity(2, "bob")), models.CodeForbidden)
	assertAppError(t, svc.CheckEditable(ctx, 404, identity(1, "alice")), models.CodeNotFound)
	assertAppError(t, svc.CheckEditable(ctx, blog.ID, nil), models.CodeUnauthorized)
	assert.Equal(t, 0, repo.saves)
}

func TestBlogService_ListAndGet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newMemBlogRepo()
	svc := NewBlogService(repo)

	first := seedBlog(t, repo, "alice")
	seedBlog(t, repo, "bob")
	latest := seedBlog(t, repo, "alice")

	all, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, latest.ID, all[0].ID)

	mine, err := svc.ListByAuthor(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, latest.ID, mine[0].ID)
	assert.Equal(t, first.ID, mine[1].ID)

	got, err := svc.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	_, err = svc.Get(ctx, 404)
	assertAppError(t, err, models.CodeNotFound)
}

func TestBlogService_Update(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newMemBlogRepo()
	svc := NewBlogService(repo)

	blog, err := svc.Create(ctx, CreateBlogInput{Author: "alice", Title: "v1", Content: "c1", Image: "/media/old.jpg"})
	require.NoError(t, err)

	t.Run("non-author is forbidden", func(t *testing.T) {
		_, err := svc.Update(ctx, UpdateBlogInput{BlogID: blog.ID, Identity: identity(2, "bob"), Title: "x", Content: "y"})
		assertAppError(t, err, models.CodeForbidden)
		assert.Equal(t, "v1", repo.stored(t, blog.ID).Title)
	})

	t.Run("keeps image when none supplied", func(t *testing.T) {
		updated, err := svc.Update(ctx, UpdateBlogInput{BlogID: blog.ID, Identity: identity(1, "alice"), Title: "v2", Content: "c2", Tags: "a,b"})
		require.NoError(t, err)
		assert.Equal(t, "v2", updated.Title)
		assert.Equal(t, []string{"a", "b"}, updated.Tags)
		assert.Equal(t, "/media/old.jpg", updated.Image)
	})

	t.Run("replaces image", func(t *testing.T) {
		updated, err := svc.Update(ctx, UpdateBlogInput{BlogID: blog.ID, Identity: identity(1, "alice"), Title: "v3", Content: "c3", Image: "/media/new.jpg"})
		require.NoError(t, err)
		assert.Equal(t, "/media/new.jpg", updated.Image)
	})

	t.Run("missing blog", func(t *testing.T) {
		_, err := svc.Update(ctx, UpdateBlogInput{BlogID: 99, Identity: identity(1, "alice"), Title: "t", Content: "c"})
		assertAppError(t, err, models.CodeNotFound)
	})

	t.Run("keeps comments", func(t *testing.T) {
		comments := newTestCommentService(repo, "")
		_, err := comments.AddComment(ctx, blog.ID, identity(2, "bob"), "hi")
		require.NoError(t, err)
		_, err = svc.Update(ctx, UpdateBlogInput{BlogID: blog.ID, Identity: identity(1, "alice"), Title: "v4", Content: "c4"})
		require.NoError(t, err)
		assert.Len(t, repo.stored(t, blog.ID).Comments, 1)
	})
}

func TestBlogService_Delete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newMemBlogRepo()
	svc := NewBlogService(repo)
	blog := seedBlog(t, repo, "alice")

	err := svc.Delete(ctx, blog.ID, identity(2, "bob"))
	assertAppError(t, err, models.CodeForbidden)

	err = svc.Delete(ctx, blog.ID, nil)
	assertAppError(t, err, models.CodeUnauthorized)

	require.NoError(t, svc.Delete(ctx, blog.ID, identity(1, "alice")))
	_, err = svc.Get(ctx, blog.ID)
	assertAppError(t, err, models.CodeNotFound)

	err = svc.Delete(ctx, blog.ID, identity(1, "alice"))
	assertAppError(t, err, models.CodeNotFound)
}
