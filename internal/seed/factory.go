// Package seed provides helpers to create demo data: users, blogs and
// comment threads of varying depth. These helpers are intended for
// development and testing only.
package seed

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"writeflow/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
)

// DefaultPassword is the password of every seeded user.
const DefaultPassword = "password123"

var usernameUnsafe = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// Factory builds domain entities without persisting them.
type Factory struct {
	faker *gofakeit.Faker
	now   func() time.Time
	// MaxDays bounds how far back CreatedAt timestamps are spread.
	MaxDays int
}

// NewFactory returns a factory. A zero seed gives a random stream; any other
// value makes output reproducible.
func NewFactory(seed int64) *Factory {
	return &Factory{
		faker:   gofakeit.New(seed),
		now:     time.Now,
		MaxDays: 90,
	}
}

// BuildUser returns a user whose Password is passwordHash. Usernames carry an
// index suffix so a run never collides with itself.
func (f *Factory) BuildUser(i int, passwordHash string) *models.User {
	base := usernameUnsafe.ReplaceAllString(f.faker.Username(), "")
	base = strings.Trim(base, "_-")
	if len(base) < 3 {
		base = "writer"
	}
	if len(base) > 20 {
		base = base[:20]
	}
	username := fmt.Sprintf("%s%d", strings.ToLower(base), i)

	return &models.User{
		Username: username,
		Email:    fmt.Sprintf("%s@%s", username, f.faker.DomainName()),
		Password: passwordHash,
		Birthday: f.faker.DateRange(time.Date(1960, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2005, 12, 31, 0, 0, 0, 0, time.UTC)),
		Gender:   f.faker.RandomString([]string{"female", "male", "other"}),
	}
}

func (f *Factory) pastTime() time.Time {
	maxDays := f.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	back := time.Duration(f.faker.Number(0, maxDays*24*60)) * time.Minute
	return f.now().UTC().Add(-back)
}

// BuildBlog returns an unsaved blog by author with an empty comment list.
func (f *Factory) BuildBlog(author string) *models.Blog {
	paragraphs := make([]string, 0, 3)
	for i, n := 0, f.faker.Number(1, 3); i < n; i++ {
		paragraphs = append(paragraphs, "<p>"+f.faker.Paragraph(1, 4, 12, " ")+"</p>")
	}
	tags := make([]string, 0, 3)
	for i, n := 0, f.faker.Number(0, 3); i < n; i++ {
		tags = append(tags, strings.ToLower(f.faker.HipsterWord()))
	}

	blog := &models.Blog{
		Title:     strings.TrimSuffix(f.faker.Sentence(f.faker.Number(3, 8)), "."),
		Content:   strings.Join(paragraphs, "\n"),
		Tags:      tags,
		Author:    author,
		Comments:  []*models.Comment{},
		CreatedAt: f.pastTime(),
	}
	if f.faker.Bool() {
		blog.Image = fmt.Sprintf("https://picsum.photos/seed/%s/1200/700", f.faker.UUID())
	}
	return blog
}

// BuildThread returns up to maxComments top-level comments by random authors,
// each with replies nested at most maxDepth levels below it.
func (f *Factory) BuildThread(authors []string, maxComments, maxDepth int, after time.Time) []*models.Comment {
	comments := []*models.Comment{}
	if len(authors) == 0 || maxComments <= 0 {
		return comments
	}
	for i, n := 0, f.faker.Number(0, maxComments); i < n; i++ {
		comments = append(comments, f.buildNode(authors, maxDepth, after))
	}
	return comments
}

func (f *Factory) buildNode(authors []string, depth int, after time.Time) *models.Comment {
	at := after.Add(time.Duration(f.faker.Number(1, 600)) * time.Minute)
	node := models.NewComment(uuid.NewString(), f.faker.RandomString(authors), f.faker.Sentence(f.faker.Number(4, 16)), at)
	if depth <= 0 {
		return node
	}
	// Deeper levels get fewer replies.
	for i, n := 0, f.faker.Number(0, min(depth, 3)); i < n; i++ {
		node.Replies = append(node.Replies, f.buildNode(authors, depth-1, at))
	}
	return node
}
