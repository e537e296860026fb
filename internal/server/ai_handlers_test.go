package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"writeflow/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAIRoutes(t *testing.T) {
	t.Parallel()
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/correct":
			_ = json.NewEncoder(w).Encode(map[string]string{"corrected": "Fixed text."})
		case "/spellcheck":
			_ = json.NewEncoder(w).Encode(map[string][]string{"suggestions": {"hello", "hollow"}})
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	t.Cleanup(backend.Close)

	env := newTestEnv(t, func(cfg *config.Config) {
		cfg.AICorrectURL = backend.URL + "/correct"
		cfg.AISpellcheckURL = backend.URL + "/spellcheck"
		cfg.AIGenerateURL = backend.URL + "/generate"
		cfg.AITimeoutSeconds = 5
	})
	tok := env.signup(t, "alice")

	resp, raw := env.do(t, http.MethodPost, "/api/ai/correct", tok, map[string]string{"text": "fixd txt"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(raw))
	assert.JSONEq(t, `{"corrected":"Fixed text."}`, string(raw))

	resp, raw = env.do(t, http.MethodPost, "/api/ai/spellcheck", tok, map[string]string{"word": "helo"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"suggestions":["hello","hollow"]}`, string(raw))

	resp, raw = env.do(t, http.MethodPost, "/api/ai/generate", tok, map[string]string{"topic": "go"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(raw), "Topic and tone are required")

	resp, raw = env.do(t, http.MethodPost, "/api/ai/generate", tok, map[string]string{"topic": "go", "tone": "dry"})
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, string(raw), "AI generation failed")

	resp, _ = env.do(t, http.MethodPost, "/api/ai/correct", "", map[string]string{"text": "x"})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
