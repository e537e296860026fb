package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"writeflow/internal/featureflags"
	"writeflow/internal/models"
	"writeflow/internal/observability"
	"writeflow/internal/repository"
	"writeflow/internal/token"

	"github.com/google/uuid"
)

const maxCommentLen = 10000

// FlagChecker reports whether a named policy is on for a user.
type FlagChecker interface {
	Enabled(name string, userID uint) bool
}

// CommentService mutates the comment tree stored inside each blog. Every
// mutation loads the whole blog, changes one node and saves the document.
type CommentService struct {
	blogs repository.BlogRepository
	flags FlagChecker
	newID func() string
	now   func() time.Time
}

func NewCommentService(blogs repository.BlogRepository, flags FlagChecker) *CommentService {
	return &CommentService{
		blogs: blogs,
		flags: flags,
		newID: uuid.NewString,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func cleanText(text, emptyMessage string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", models.NewValidationError(emptyMessage)
	}
	if utf8.RuneCountInString(text) > maxCommentLen {
		return "", models.NewValidationError("Comment too long (max 10000 characters)")
	}
	return text, nil
}

func requireIdentity(identity *token.Identity) error {
	if identity == nil || identity.Username == "" {
		return models.NewUnauthorizedError("Unauthorized")
	}
	return nil
}

// checkAuthor applies the author-match policy. When the policy is off any
// authenticated user may change any comment.
func (s *CommentService) checkAuthor(c *models.Comment, identity *token.Identity) error {
	if s.flags == nil || !s.flags.Enabled(featureflags.CommentAuthorCheck, identity.UserID) {
		return nil
	}
	if !c.IsAuthor(identity.Username) {
		return models.NewForbiddenError("You can only modify your own comments")
	}
	return nil
}

// ListComments returns the blog's comment tree in insertion order.
func (s *CommentService) ListComments(ctx context.Context, blogID uint) ([]*models.Comment, error) {
	blog, err := loadBlog(ctx, s.blogs, blogID)
	if err != nil {
		return nil, err
	}
	if blog.Comments == nil {
		return []*models.Comment{}, nil
	}
	return blog.Comments, nil
}

// AddComment appends a top-level comment and returns it.
func (s *CommentService) AddComment(ctx context.Context, blogID uint, identity *token.Identity, text string) (*models.Comment, error) {
	if err := requireIdentity(identity); err != nil {
		return nil, err
	}
	text, err := cleanText(text, "Comment text cannot be empty")
	if err != nil {
		return nil, err
	}

	comment := models.NewComment(s.newID(), identity.Username, text, s.now())
	_, err = mutateBlog(ctx, s.blogs, blogID, func(blog *models.Blog) error {
		blog.Comments = append(blog.Comments, comment)
		return nil
	})
	if err != nil {
		return nil, err
	}
	observability.CommentMutations.WithLabelValues("add").Inc()
	return comment, nil
}

// EditComment replaces the text of a comment or reply at any depth.
func (s *CommentService) EditComment(ctx context.Context, blogID uint, commentID string, identity *token.Identity, text string) (*models.Comment, error) {
	if err := requireIdentity(identity); err != nil {
		return nil, err
	}
	text, err := cleanText(text, "Comment text cannot be empty")
	if err != nil {
		return nil, err
	}

	var edited *models.Comment
	_, err = mutateBlog(ctx, s.blogs, blogID, func(blog *models.Blog) error {
		target := models.FindComment(blog.Comments, commentID)
		if target == nil {
			return models.NewNotFoundError("Comment", nil)
		}
		if err := s.checkAuthor(target, identity); err != nil {
			return err
		}
		now := s.now()
		target.Text = text
		target.UpdatedAt = &now
		edited = target
		return nil
	})
	if err != nil {
		return nil, err
	}
	observability.CommentMutations.WithLabelValues("edit").Inc()
	return edited, nil
}

// DeleteComment removes a comment or reply, along with its replies.
func (s *CommentService) DeleteComment(ctx context.Context, blogID uint, commentID string, identity *token.Identity) error {
	if err := requireIdentity(identity); err != nil {
		return err
	}

	_, err := mutateBlog(ctx, s.blogs, blogID, func(blog *models.Blog) error {
		target := models.FindComment(blog.Comments, commentID)
		if target == nil {
			return models.NewNotFoundError("Comment", nil)
		}
		if err := s.checkAuthor(target, identity); err != nil {
			return err
		}
		blog.Comments, _ = models.RemoveComment(blog.Comments, commentID)
		return nil
	})
	if err != nil {
		return err
	}
	observability.CommentMutations.WithLabelValues("delete").Inc()
	return nil
}

// AddReply appends a reply to the comment or reply with commentID.
func (s *CommentService) AddReply(ctx context.Context, blogID uint, commentID string, identity *token.Identity, text string) (*models.Comment, error) {
	if err := requireIdentity(identity); err != nil {
		return nil, err
	}
	text, err := cleanText(text, "Reply text cannot be empty")
	if err != nil {
		return nil, err
	}

	reply := models.NewComment(s.newID(), identity.Username, text, s.now())
	_, err = mutateBlog(ctx, s.blogs, blogID, func(blog *models.Blog) error {
		parent := models.FindComment(blog.Comments, commentID)
		if parent == nil {
			return models.NewNotFoundError("Comment", nil)
		}
		parent.Replies = append(parent.Replies, reply)
		return nil
	})
	if err != nil {
		return nil, err
	}
	observability.CommentMutations.WithLabelValues("reply").Inc()
	return reply, nil
}
