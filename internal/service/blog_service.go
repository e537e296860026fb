package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"writeflow/internal/models"
	"writeflow/internal/repository"
	"writeflow/internal/token"
)

const (
	maxTitleLen   = 300
	maxContentLen = 200000
)

type BlogService struct {
	blogs repository.BlogRepository
}

type CreateBlogInput struct {
	Author  string
	Title   string
	Content string
	// Tags is a comma separated list.
	Tags  string
	Image string
}

type UpdateBlogInput struct {
	BlogID   uint
	Identity *token.Identity
	Title    string
	Content  string
	Tags     string
	// Image replaces the current image when non-empty.
	Image string
}

func NewBlogService(blogs repository.BlogRepository) *BlogService {
	return &BlogService{blogs: blogs}
}

// ParseTags splits a comma separated tag list, trimming entries and dropping empty ones.
func ParseTags(csv string) []string {
	tags := []string{}
	for _, t := range strings.Split(csv, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// ValidateFields applies the create/update field rules to untrimmed input.
// Handlers call it before storing an attached image.
func ValidateFields(title, content string) error {
	return validateBlogFields(strings.TrimSpace(title), strings.TrimSpace(content))
}

// Lengths are counted in characters, not bytes.
func validateBlogFields(title, content string) error {
	if title == "" || content == "" {
		return models.NewValidationError("Title and content required")
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return models.NewValidationError("Title too long (max 300 characters)")
	}
	if utf8.RuneCountInString(content) > maxContentLen {
		return models.NewValidationError("Content too long (max 200000 characters)")
	}
	return nil
}

func (s *BlogService) Create(ctx context.Context, in CreateBlogInput) (*models.Blog, error) {
	if in.Author == "" {
		return nil, models.NewUnauthorizedError("Unauthorized")
	}
	title := strings.TrimSpace(in.Title)
	content := strings.TrimSpace(in.Content)
	if err := validateBlogFields(title, content); err != nil {
		return nil, err
	}

	blog := &models.Blog{
		Title:    title,
		Content:  content,
		Image:    strings.TrimSpace(in.Image),
		Tags:     ParseTags(in.Tags),
		Author:   in.Author,
		Comments: []*models.Comment{},
	}
	if err := s.blogs.Create(ctx, blog); err != nil {
		return nil, models.NewInternalError(err)
	}
	return blog, nil
}

func (s *BlogService) List(ctx context.Context) ([]*models.Blog, error) {
	blogs, err := s.blogs.List(ctx)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return blogs, nil
}

func (s *BlogService) ListByAuthor(ctx context.Context, author string) ([]*models.Blog, error) {
	blogs, err := s.blogs.ListByAuthor(ctx, author)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return blogs, nil
}

func (s *BlogService) Get(ctx context.Context, id uint) (*models.Blog, error) {
	return loadBlog(ctx, s.blogs, id)
}

// Update replaces the editable fields. Only the author may update a blog.
func (s *BlogService) Update(ctx context.Context, in UpdateBlogInput) (*models.Blog, error) {
	if in.Identity == nil {
		return nil, models.NewUnauthorizedError("Unauthorized")
	}
	title := strings.TrimSpace(in.Title)
	content := strings.TrimSpace(in.Content)
	if err := validateBlogFields(title, content); err != nil {
		return nil, err
	}
	tags := ParseTags(in.Tags)
	image := strings.TrimSpace(in.Image)

	return mutateBlog(ctx, s.blogs, in.BlogID, func(blog *models.Blog) error {
		if !blog.IsAuthor(in.Identity.Username) {
			return models.NewForbiddenError("You can only edit your own blogs")
		}
		blog.Title = title
		blog.Content = content
		blog.Tags = tags
		if image != "" {
			blog.Image = image
		}
		return nil
	})
}

// CheckEditable reports whether the identity may update the blog, without
// changing it.
func (s *BlogService) CheckEditable(ctx context.Context, id uint, ident *token.Identity) error {
	if ident == nil {
		return models.NewUnauthorizedError("Unauthorized")
	}
	blog, err := loadBlog(ctx, s.blogs, id)
	if err != nil {
		return err
	}
	if !blog.IsAuthor(ident.Username) {
		return models.NewForbiddenError("You can only edit your own blogs")
	}
	return nil
}

// Delete removes a blog and its comment tree. Only the author may delete it.
func (s *BlogService) Delete(ctx context.Context, id uint, identity *token.Identity) error {
	if identity == nil {
		return models.NewUnauthorizedError("Unauthorized")
	}
	blog, err := loadBlog(ctx, s.blogs, id)
	if err != nil {
		return err
	}
	if !blog.IsAuthor(identity.Username) {
		return models.NewForbiddenError("You can only delete your own blogs")
	}
	if err := s.blogs.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrBlogNotFound) {
			return models.NewNotFoundError("Blog", nil)
		}
		return models.NewInternalError(err)
	}
	return nil
}
