package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"writeflow/internal/config"
	"writeflow/internal/middleware"
	"writeflow/internal/models"
	"writeflow/internal/observability"

	"github.com/gofiber/fiber/v2"
)

const defaultAITimeout = 30 * time.Second

// WritingService forwards writing-assistant requests to the AI backends.
// Failures are reported as SERVICE_UNAVAILABLE and never retried.
type WritingService struct {
	correctURL    string
	spellcheckURL string
	generateURL   string
	timeout       time.Duration
}

type GenerateInput struct {
	Topic string `json:"topic"`
	Tone  string `json:"tone"`
}

func NewWritingService(cfg *config.Config) *WritingService {
	s := &WritingService{timeout: defaultAITimeout}
	if cfg != nil {
		s.correctURL = cfg.AICorrectURL
		s.spellcheckURL = cfg.AISpellcheckURL
		s.generateURL = cfg.AIGenerateURL
		if cfg.AITimeoutSeconds > 0 {
			s.timeout = time.Duration(cfg.AITimeoutSeconds) * time.Second
		}
	}
	return s
}

// Correct returns a grammar-corrected copy of text.
func (s *WritingService) Correct(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", models.NewValidationError("Text is required")
	}
	var out struct {
		Corrected string `json:"corrected"`
	}
	if err := s.post(ctx, "correct", s.correctURL, map[string]string{"text": text}, &out); err != nil {
		return "", models.NewServiceUnavailableError("AI service unavailable", err)
	}
	return out.Corrected, nil
}

// Spellcheck returns replacement suggestions for word.
func (s *WritingService) Spellcheck(ctx context.Context, word string) ([]string, error) {
	if strings.TrimSpace(word) == "" {
		return nil, models.NewValidationError("Word is required")
	}
	var out struct {
		Suggestions []string `json:"suggestions"`
	}
	if err := s.post(ctx, "spellcheck", s.spellcheckURL, map[string]string{"word": word}, &out); err != nil {
		return nil, models.NewServiceUnavailableError("Spellcheck failed", err)
	}
	if out.Suggestions == nil {
		out.Suggestions = []string{}
	}
	return out.Suggestions, nil
}

// Generate drafts a post about topic in the requested tone.
func (s *WritingService) Generate(ctx context.Context, in GenerateInput) (string, error) {
	in.Topic = strings.TrimSpace(in.Topic)
	in.Tone = strings.TrimSpace(in.Tone)
	if in.Topic == "" || in.Tone == "" {
		return "", models.NewValidationError("Topic and tone are required")
	}
	var out struct {
		GeneratedText string `json:"generated_text"`
	}
	if err := s.post(ctx, "generate", s.generateURL, in, &out); err != nil {
		return "", models.NewServiceUnavailableError("AI generation failed", err)
	}
	if out.GeneratedText == "" {
		return "", models.NewServiceUnavailableError("AI generation failed", errors.New("no generated text returned"))
	}
	return out.GeneratedText, nil
}

func (s *WritingService) post(ctx context.Context, name, url string, body, out any) error {
	err := s.do(url, body, out)
	if err != nil {
		observability.UpstreamFailures.WithLabelValues("ai_" + name).Inc()
		middleware.Logger.WarnContext(ctx, "AI backend call failed",
			slog.String("service", name),
			slog.String("error", err.Error()),
		)
	}
	return err
}

func (s *WritingService) do(url string, body, out any) error {
	if url == "" {
		return errors.New("endpoint not configured")
	}

	agent := fiber.Post(url).JSON(body).Timeout(s.timeout)
	code, resp, errs := agent.Bytes()
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	if code < fiber.StatusOK || code >= fiber.StatusMultipleChoices {
		return fmt.Errorf("upstream returned status %d", code)
	}
	if err := json.Unmarshal(resp, out); err != nil {
		return fmt.Errorf("decode upstream response: %w", err)
	}
	return nil
}
