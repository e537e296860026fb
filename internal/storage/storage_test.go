package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"writeflow/internal/config"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMinio implements minioAPI without a network.
type fakeMinio struct {
	bucketExists    bool
	bucketExistsErr error
	makeBucketErr   error
	madeBucket      string

	putErr      error
	putKey      string
	putBody     []byte
	putSize     int64
	putMimeType string

	statErr error
}

func (f *fakeMinio) BucketExists(_ context.Context, _ string) (bool, error) {
	return f.bucketExists, f.bucketExistsErr
}

func (f *fakeMinio) MakeBucket(_ context.Context, bucket string, _ minio.MakeBucketOptions) error {
	f.madeBucket = bucket
	return f.makeBucketErr
}

func (f *fakeMinio) PutObject(_ context.Context, _ string, key string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if f.putErr != nil {
		return minio.UploadInfo{}, f.putErr
	}
	body, _ := io.ReadAll(r)
	f.putKey, f.putBody, f.putSize, f.putMimeType = key, body, size, opts.ContentType
	return minio.UploadInfo{Key: key, Size: size}, nil
}

func (f *fakeMinio) StatObject(_ context.Context, _ string, _ string, _ minio.StatObjectOptions) (minio.ObjectInfo, error) {
	return minio.ObjectInfo{}, f.statErr
}

func TestNewMinioStore_CreatesMissingBucket(t *testing.T) {
	api := &fakeMinio{}
	s, err := newMinioStoreWithAPI(context.Background(), api, "writeflow", "http://cdn.test/writeflow")
	require.NoError(t, err)
	assert.NotNil(t, s)
	assert.Equal(t, "writeflow", api.madeBucket)
}

func TestNewMinioStore_Errors(t *testing.T) {
	_, err := newMinioStoreWithAPI(context.Background(), &fakeMinio{bucketExistsErr: errors.New("boom")}, "b", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to ensure bucket exists")

	_, err = newMinioStoreWithAPI(context.Background(), &fakeMinio{makeBucketErr: errors.New("denied")}, "b", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create bucket")
}

func TestMinioStore_Put(t *testing.T) {
	api := &fakeMinio{bucketExists: true}
	s, err := newMinioStoreWithAPI(context.Background(), api, "writeflow", "http://cdn.test/writeflow/")
	require.NoError(t, err)

	url, err := s.Put(context.Background(), "writeflow/abc/master.jpg", []byte("jpeg"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "http://cdn.test/writeflow/writeflow/abc/master.jpg", url)
	assert.Equal(t, "writeflow/abc/master.jpg", api.putKey)
	assert.Equal(t, []byte("jpeg"), api.putBody)
	assert.Equal(t, int64(4), api.putSize)
	assert.Equal(t, "image/jpeg", api.putMimeType)

	api.putErr = errors.New("put-fail")
	_, err = s.Put(context.Background(), "k", []byte("x"), "image/jpeg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to upload object")
}

func TestMinioStore_Exists(t *testing.T) {
	api := &fakeMinio{bucketExists: true}
	s, err := newMinioStoreWithAPI(context.Background(), api, "b", "http://cdn.test")
	require.NoError(t, err)

	ok, err := s.Exists(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, ok)

	api.statErr = minio.ErrorResponse{Code: "NoSuchKey"}
	ok, err = s.Exists(context.Background(), "k")
	require.NoError(t, err)
	assert.False(t, ok)

	api.statErr = errors.New("network")
	_, err = s.Exists(context.Background(), "k")
	assert.Error(t, err)
}

func TestLocalStore_PutAndExists(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStore(dir, "/media")
	require.NoError(t, err)
	ctx := context.Background()

	url, err := s.Put(ctx, "writeflow/abc/master.jpg", []byte("jpeg"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "/media/writeflow/abc/master.jpg", url)

	data, err := os.ReadFile(filepath.Join(dir, "writeflow", "abc", "master.jpg"))
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg"), data)

	ok, err := s.Exists(ctx, "writeflow/abc/master.jpg")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Exists(ctx, "writeflow/missing.jpg")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, s.Ping(ctx))
}

func TestLocalStore_RejectsEscapingKeys(t *testing.T) {
	s, err := NewLocalStore(t.TempDir(), "")
	require.NoError(t, err)

	_, err = s.Put(context.Background(), "../outside.jpg", []byte("x"), "image/jpeg")
	assert.Error(t, err)
	_, err = s.Put(context.Background(), "/etc/passwd", []byte("x"), "image/jpeg")
	assert.Error(t, err)
}

func TestNew_SelectsBackend(t *testing.T) {
	cfg := &config.Config{ImageStorage: config.ImageStorageLocal, ImageUploadDir: t.TempDir(), ImagePublicBaseURL: "/media"}
	store, err := New(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &LocalStore{}, store)

	_, err = New(context.Background(), &config.Config{ImageStorage: "ftp"})
	assert.Error(t, err)
}

func TestPublicBase(t *testing.T) {
	assert.Equal(t, "https://img.example.com", publicBase(&config.Config{ImagePublicBaseURL: "https://img.example.com"}))
	assert.Equal(t, "http://localhost:9000/writeflow", publicBase(&config.Config{
		ImagePublicBaseURL: "/media", MinioEndpoint: "localhost:9000", MinioBucket: "writeflow",
	}))
}
