package repository

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"writeflow/internal/models"
	"writeflow/internal/observability"

	"github.com/dgraph-io/badger/v4"
)

const (
	blogKeyPrefix = "blog:"
	blogSeqKey    = "seq:blog"
)

// BadgerBlogRepository keeps every blog as a single JSON value keyed by id.
// Save runs its revision check inside a badger transaction, so concurrent
// writers either see the check fail or hit badger's own conflict detection.
type BadgerBlogRepository struct {
	db *badger.DB
	// mu serializes id allocation.
	mu sync.Mutex
}

var _ BlogRepository = (*BadgerBlogRepository)(nil)

// OpenBadgerBlogRepository opens (or creates) a badger database at path.
func OpenBadgerBlogRepository(path string) (*BadgerBlogRepository, error) {
	if err := os.MkdirAll(path, 0o750); err != nil {
		return nil, fmt.Errorf("create badger dir: %w", err)
	}
	opts := badger.DefaultOptions(path).
		WithLogger(nil).
		WithNumVersionsToKeep(1)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &BadgerBlogRepository{db: db}, nil
}

// Close releases the underlying database.
func (r *BadgerBlogRepository) Close() error {
	return r.db.Close()
}

// Ping reports whether the database is still open.
func (r *BadgerBlogRepository) Ping() error {
	if r.db.IsClosed() {
		return errors.New("badger is closed")
	}
	return nil
}

func blogKey(id uint) []byte {
	return []byte(fmt.Sprintf("%s%020d", blogKeyPrefix, id))
}

// nextID increments the blog sequence inside txn.
func nextID(txn *badger.Txn) (uint, error) {
	var id uint64
	item, err := txn.Get([]byte(blogSeqKey))
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
	case err != nil:
		return 0, err
	default:
		if err := item.Value(func(val []byte) error {
			if len(val) != 8 {
				return fmt.Errorf("corrupt blog sequence")
			}
			id = binary.BigEndian.Uint64(val)
			return nil
		}); err != nil {
			return 0, err
		}
	}
	id++

	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, id)
	if err := txn.Set([]byte(blogSeqKey), buf); err != nil {
		return 0, err
	}
	return uint(id), nil
}

func readBlog(txn *badger.Txn, id uint) (*models.Blog, error) {
	item, err := txn.Get(blogKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrBlogNotFound
	}
	if err != nil {
		return nil, err
	}
	var blog models.Blog
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &blog)
	}); err != nil {
		return nil, fmt.Errorf("decode blog %d: %w", id, err)
	}
	return &blog, nil
}

func writeBlog(txn *badger.Txn, blog *models.Blog) error {
	data, err := json.Marshal(blog)
	if err != nil {
		return fmt.Errorf("encode blog %d: %w", blog.ID, err)
	}
	return txn.Set(blogKey(blog.ID), data)
}

func (r *BadgerBlogRepository) Create(_ context.Context, blog *models.Blog) error {
	defer observability.TrackStore("badger", "blog_create")()
	stampNew(blog, time.Now().UTC())

	r.mu.Lock()
	defer r.mu.Unlock()
	err := r.db.Update(func(txn *badger.Txn) error {
		id, err := nextID(txn)
		if err != nil {
			return err
		}
		blog.ID = id
		return writeBlog(txn, blog)
	})
	if err != nil {
		return fmt.Errorf("create blog: %w", err)
	}
	return nil
}

func (r *BadgerBlogRepository) GetByID(ctx context.Context, id uint) (*models.Blog, error) {
	defer observability.TrackStore("badger", "blog_get")()
	_, span := observability.StartStoreSpan(ctx, "badger", "blog_get")

	var blog *models.Blog
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		blog, err = readBlog(txn, id)
		return err
	})
	if errors.Is(err, ErrBlogNotFound) {
		observability.EndSpan(span, nil)
		return nil, err
	}
	observability.EndSpan(span, err)
	if err != nil {
		return nil, err
	}
	return normalizeBlog(blog), nil
}

func (r *BadgerBlogRepository) List(ctx context.Context) ([]*models.Blog, error) {
	return r.scan(ctx, func(*models.Blog) bool { return true })
}

func (r *BadgerBlogRepository) ListByAuthor(ctx context.Context, author string) ([]*models.Blog, error) {
	return r.scan(ctx, func(b *models.Blog) bool { return b.Author == author })
}

func (r *BadgerBlogRepository) scan(_ context.Context, keep func(*models.Blog) bool) ([]*models.Blog, error) {
	defer observability.TrackStore("badger", "blog_list")()
	blogs := []*models.Blog{}
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(blogKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var blog models.Blog
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &blog)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			if keep(&blog) {
				blogs = append(blogs, normalizeBlog(&blog))
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list blogs: %w", err)
	}

	sort.SliceStable(blogs, func(i, j int) bool {
		if blogs[i].CreatedAt.Equal(blogs[j].CreatedAt) {
			return blogs[i].ID > blogs[j].ID
		}
		return blogs[i].CreatedAt.After(blogs[j].CreatedAt)
	})
	return blogs, nil
}

func (r *BadgerBlogRepository) Save(ctx context.Context, blog *models.Blog) error {
	defer observability.TrackStore("badger", "blog_save")()
	_, span := observability.StartStoreSpan(ctx, "badger", "blog_save")

	normalizeBlog(blog)
	next := *blog
	next.Revision = blog.Revision + 1
	next.UpdatedAt = time.Now().UTC()

	err := r.db.Update(func(txn *badger.Txn) error {
		current, err := readBlog(txn, blog.ID)
		if err != nil {
			return err
		}
		if current.Revision != blog.Revision {
			return ErrStaleRevision
		}
		return writeBlog(txn, &next)
	})
	switch {
	case errors.Is(err, badger.ErrConflict):
		err = ErrStaleRevision
	case err != nil && !errors.Is(err, ErrBlogNotFound) && !errors.Is(err, ErrStaleRevision):
		err = fmt.Errorf("save blog %d: %w", blog.ID, err)
	}
	observability.EndSpan(span, err)
	if err != nil {
		return err
	}

	blog.Revision = next.Revision
	blog.UpdatedAt = next.UpdatedAt
	return nil
}

func (r *BadgerBlogRepository) Delete(_ context.Context, id uint) error {
	defer observability.TrackStore("badger", "blog_delete")()
	err := r.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(blogKey(id)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrBlogNotFound
			}
			return err
		}
		return txn.Delete(blogKey(id))
	})
	if err != nil && !errors.Is(err, ErrBlogNotFound) {
		return fmt.Errorf("delete blog %d: %w", id, err)
	}
	return err
}
