package seed

import (
	"context"
	"fmt"
	"log/slog"

	"writeflow/internal/middleware"
	"writeflow/internal/models"
	"writeflow/internal/repository"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options configures a seeding run.
type Options struct {
	Users       int
	Blogs       int
	MaxComments int
	MaxDepth    int
	// Seed makes the generated content reproducible when non-zero.
	Seed int64
	// Fast skips bcrypt and stores DefaultPassword as-is. Test use only.
	Fast bool
}

// Summary counts what a run created.
type Summary struct {
	Users    int
	Blogs    int
	Comments int
}

// Seeder writes factory output through the repositories, so it works with
// any blog store driver.
type Seeder struct {
	db      *gorm.DB
	users   repository.UserRepository
	blogs   repository.BlogRepository
	factory *Factory
}

func NewSeeder(db *gorm.DB, blogs repository.BlogRepository, seed int64) *Seeder {
	return &Seeder{
		db:      db,
		users:   repository.NewUserRepository(db),
		blogs:   blogs,
		factory: NewFactory(seed),
	}
}

// ClearAll deletes every blog and user.
func (s *Seeder) ClearAll(ctx context.Context) error {
	existing, err := s.blogs.List(ctx)
	if err != nil {
		return fmt.Errorf("list blogs: %w", err)
	}
	for _, b := range existing {
		if err := s.blogs.Delete(ctx, b.ID); err != nil {
			return fmt.Errorf("delete blog %d: %w", b.ID, err)
		}
	}
	if err := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.User{}).Error; err != nil {
		return fmt.Errorf("delete users: %w", err)
	}
	middleware.Logger.InfoContext(ctx, "seed data cleared", slog.Int("blogs", len(existing)))
	return nil
}

// Run creates opts.Users users and opts.Blogs blogs spread across them, each
// blog carrying a random comment thread.
func (s *Seeder) Run(ctx context.Context, opts Options) (Summary, error) {
	var sum Summary
	if opts.Users <= 0 {
		return sum, fmt.Errorf("at least one user is required")
	}

	hash := DefaultPassword
	if !opts.Fast {
		hashed, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.DefaultCost)
		if err != nil {
			return sum, err
		}
		hash = string(hashed)
	}

	usernames := make([]string, 0, opts.Users)
	for i := 0; i < opts.Users; i++ {
		user := s.factory.BuildUser(i+1, hash)
		if err := s.users.Create(ctx, user); err != nil {
			return sum, fmt.Errorf("create user %s: %w", user.Username, err)
		}
		usernames = append(usernames, user.Username)
		sum.Users++
	}

	for i := 0; i < opts.Blogs; i++ {
		blog := s.factory.BuildBlog(usernames[i%len(usernames)])
		blog.Comments = s.factory.BuildThread(usernames, opts.MaxComments, opts.MaxDepth, blog.CreatedAt)
		if err := s.blogs.Create(ctx, blog); err != nil {
			return sum, fmt.Errorf("create blog: %w", err)
		}
		sum.Blogs++
		sum.Comments += models.CountComments(blog.Comments)
	}

	middleware.Logger.InfoContext(ctx, "seed complete",
		slog.Int("users", sum.Users),
		slog.Int("blogs", sum.Blogs),
		slog.Int("comments", sum.Comments),
	)
	return sum, nil
}
