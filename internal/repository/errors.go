package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrBlogNotFound is returned when no blog has the requested id.
	ErrBlogNotFound = errors.New("blog not found")
	// ErrStaleRevision is returned by Save when the stored blog changed after it was loaded.
	ErrStaleRevision = errors.New("blog revision is stale")
	// ErrDuplicateUser is returned by Create when the username or email is taken.
	ErrDuplicateUser = errors.New("user already exists")
)

// isUniqueConstraintError reports unique violations from postgres (SQLSTATE
// 23505) and sqlite.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint")
}
