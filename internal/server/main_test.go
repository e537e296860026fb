package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"writeflow/internal/config"
	"writeflow/internal/database"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// testEnv is a fully wired server on sqlite, miniredis and a temp image dir.
type testEnv struct {
	app *fiber.App
	srv *Server
	mr  *miniredis.Miniredis
}

func newTestEnv(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()
	cfg := &config.Config{
		Env:                  "test",
		Port:                 "0",
		JWTSecret:            "test-secret-that-is-at-least-32-chars",
		JWTIssuer:            "writeflow-api",
		JWTAudience:          "writeflow-client",
		StoreDriver:          config.StoreSQLite,
		SQLitePath:           filepath.Join(t.TempDir(), "writeflow.db"),
		ImageStorage:         config.ImageStorageLocal,
		ImageUploadDir:       t.TempDir(),
		ImagePublicBaseURL:   "/media",
		ImageMaxUploadSizeMB: 5,
		RateLimitPerMinute:   100,
	}
	for _, fn := range mutate {
		fn(cfg)
	}

	db, err := database.Connect(context.Background(), cfg)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	srv, err := NewServerWithDeps(context.Background(), cfg, Deps{DB: db, Redis: rdb})
	require.NoError(t, err)

	app := fiber.New()
	srv.SetupMiddleware(app)
	srv.SetupRoutes(app)
	return &testEnv{app: app, srv: srv, mr: mr}
}

func (e *testEnv) do(t *testing.T, method, path, tok string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.send(t, req, tok)
}

func (e *testEnv) send(t *testing.T, req *http.Request, tok string) (*http.Response, []byte) {
	t.Helper()
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

// signup registers username and returns its token.
func (e *testEnv) signup(t *testing.T, username string) string {
	t.Helper()
	resp, raw := e.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "secret123",
		"birthday": "1990-04-01",
		"gender":   "other",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(raw))
	var out struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(raw, &out))
	require.NotEmpty(t, out.Token)
	return out.Token
}

// createBlog posts a multipart blog without an image and returns its id.
func (e *testEnv) createBlog(t *testing.T, tok, title string) uint {
	t.Helper()
	req := multipartRequest(t, http.MethodPost, "/api/blogs", map[string]string{
		"title":   title,
		"content": "<p>body</p>",
		"tags":    "go, web",
	}, nil)
	resp, raw := e.send(t, req, tok)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(raw))
	var out struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.Unmarshal(raw, &out))
	return out.ID
}

func multipartRequest(t *testing.T, method, path string, fields map[string]string, image []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if image != nil {
		part, err := w.CreateFormFile("image", "cover.png")
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
