package service

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"testing"

	"writeflow/internal/config"
	"writeflow/internal/models"
	"writeflow/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memObjectStore is an in-memory storage.ObjectStore.
type memObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	putErr  error
	puts    int
}

var _ storage.ObjectStore = (*memObjectStore)(nil)

func newMemObjectStore() *memObjectStore {
	return &memObjectStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memObjectStore) Put(_ context.Context, key string, data []byte, contentType string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	if m.putErr != nil {
		return "", m.putErr
	}
	m.objects[key] = data
	m.types[key] = contentType
	return m.URL(key), nil
}

func (m *memObjectStore) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok, nil
}

func (m *memObjectStore) URL(key string) string { return "/media/" + key }

func (m *memObjectStore) Ping(context.Context) error { return nil }

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestImageService_Upload(t *testing.T) {
	t.Parallel()
	store := newMemObjectStore()
	svc := NewImageService(store, &config.Config{ImageMaxUploadSizeMB: 5})

	out, err := svc.Upload(context.Background(), UploadImageInput{
		Filename: "cover.png", ContentType: "image/png", Content: pngBytes(t, 2400, 700),
	})
	require.NoError(t, err)
	assert.Equal(t, 1200, out.Width)
	assert.Equal(t, 350, out.Height)
	assert.Len(t, out.Hash, 64)
	assert.True(t, strings.HasPrefix(out.URL, "/media/writeflow/"+out.Hash))
	assert.True(t, strings.HasSuffix(out.URL, "master.jpg"))
	assert.True(t, strings.HasSuffix(out.WebPURL, "master.webp"))

	jpgKey := "writeflow/" + out.Hash + "/master.jpg"
	assert.Equal(t, "image/jpeg", store.types[jpgKey])
	assert.Equal(t, "image/webp", store.types["writeflow/"+out.Hash+"/master.webp"])

	decoded, format, err := image.Decode(bytes.NewReader(store.objects[jpgKey]))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 1200, decoded.Bounds().Dx())
}

func TestImageService_Upload_SmallImageKeepsSize(t *testing.T) {
	t.Parallel()
	svc := NewImageService(newMemObjectStore(), nil)
	out, err := svc.Upload(context.Background(), UploadImageInput{Content: pngBytes(t, 320, 200)})
	require.NoError(t, err)
	assert.Equal(t, 320, out.Width)
	assert.Equal(t, 200, out.Height)
}

func TestImageService_Upload_Deduplicates(t *testing.T) {
	t.Parallel()
	store := newMemObjectStore()
	svc := NewImageService(store, nil)
	content := pngBytes(t, 64, 64)

	first, err := svc.Upload(context.Background(), UploadImageInput{Content: content})
	require.NoError(t, err)
	second, err := svc.Upload(context.Background(), UploadImageInput{Content: content})
	require.NoError(t, err)

	assert.Equal(t, first.URL, second.URL)
	assert.Equal(t, 2, store.puts)
}

func TestImageService_Upload_Validation(t *testing.T) {
	t.Parallel()
	svc := NewImageService(newMemObjectStore(), &config.Config{ImageMaxUploadSizeMB: 1})
	ctx := context.Background()

	_, err := svc.Upload(ctx, UploadImageInput{})
	assertValidationError(t, err)

	_, err = svc.Upload(ctx, UploadImageInput{Content: []byte("plain text, not an image")})
	assertValidationError(t, err)

	_, err = svc.Upload(ctx, UploadImageInput{Content: make([]byte, 2*1024*1024)})
	appErr := assertAppError(t, err, models.CodeValidation)
	assert.Contains(t, appErr.Message, "File too large")

	_, err = svc.Upload(ctx, UploadImageInput{ContentType: "image/jpeg", Content: pngBytes(t, 10, 10)})
	appErr = assertAppError(t, err, models.CodeValidation)
	assert.Equal(t, "Image content type mismatch", appErr.Message)
}

// withPNGDimensions rewrites the IHDR size fields of an encoded PNG and
// fixes up the chunk CRC, leaving the pixel data untouched.
func withPNGDimensions(t *testing.T, content []byte, w, h uint32) []byte {
	t.Helper()
	out := bytes.Clone(content)
	// 8-byte signature, 4-byte length, then "IHDR".
	require.Equal(t, "IHDR", string(out[12:16]))
	binary.BigEndian.PutUint32(out[16:20], w)
	binary.BigEndian.PutUint32(out[20:24], h)
	binary.BigEndian.PutUint32(out[29:33], crc32.ChecksumIEEE(out[12:29]))
	return out
}

func TestImageService_Upload_RejectsHugeDimensions(t *testing.T) {
	t.Parallel()
	store := newMemObjectStore()
	svc := NewImageService(store, nil)
	content := withPNGDimensions(t, pngBytes(t, 4, 4), 40000, 40000)

	header, _, err := image.DecodeConfig(bytes.NewReader(content))
	require.NoError(t, err)
	require.Equal(t, 40000, header.Width)

	_, err = svc.Upload(context.Background(), UploadImageInput{ContentType: "image/png", Content: content})
	appErr := assertAppError(t, err, models.CodeValidation)
	assert.Equal(t, "Image dimensions too large", appErr.Message)
	assert.Zero(t, store.puts)
}

func TestImageService_Upload_StoreFailure(t *testing.T) {
	t.Parallel()
	store := newMemObjectStore()
	store.putErr = errors.New("bucket offline")
	svc := NewImageService(store, nil)

	_, err := svc.Upload(context.Background(), UploadImageInput{Content: pngBytes(t, 16, 16)})
	assertAppError(t, err, models.CodeServiceUnavailable)
}

func TestResizeToFit(t *testing.T) {
	t.Parallel()
	tall := image.NewRGBA(image.Rect(0, 0, 500, 1400))
	b := resizeToFit(tall, ImageMaxWidth, ImageMaxHeight).Bounds()
	assert.Equal(t, 250, b.Dx())
	assert.Equal(t, 700, b.Dy())
}
