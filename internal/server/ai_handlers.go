package server

import (
	"writeflow/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CorrectText proxies grammar correction
// @Summary Correct text
// @Tags ai
// @Accept json
// @Produce json
// @Param request body object{text=string} true "Text"
// @Success 200 {object} object{corrected=string}
// @Failure 400 {object} object{error=string}
// @Failure 503 {object} object{error=string}
// @Security BearerAuth
// @Router /ai/correct [post]
func (s *Server) CorrectText(c *fiber.Ctx) error {
	var req struct {
		Text string `json:"text"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	corrected, err := s.writingService.Correct(c.UserContext(), req.Text)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"corrected": corrected})
}

// Spellcheck proxies spelling suggestions for a word
// @Summary Spellcheck word
// @Tags ai
// @Accept json
// @Produce json
// @Param request body object{word=string} true "Word"
// @Success 200 {object} object{suggestions=[]string}
// @Failure 400 {object} object{error=string}
// @Failure 503 {object} object{error=string}
// @Security BearerAuth
// @Router /ai/spellcheck [post]
func (s *Server) Spellcheck(c *fiber.Ctx) error {
	var req struct {
		Word string `json:"word"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	suggestions, err := s.writingService.Spellcheck(c.UserContext(), req.Word)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"suggestions": suggestions})
}

// GenerateText proxies topic-driven generation
// @Summary Generate text
// @Tags ai
// @Accept json
// @Produce json
// @Param request body object{topic=string,tone=string} true "Prompt"
// @Success 200 {object} object{generated_text=string}
// @Failure 400 {object} object{error=string}
// @Failure 503 {object} object{error=string}
// @Security BearerAuth
// @Router /ai/generate [post]
func (s *Server) GenerateText(c *fiber.Ctx) error {
	var req struct {
		Topic string `json:"topic"`
		Tone  string `json:"tone"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	text, err := s.writingService.Generate(c.UserContext(), service.GenerateInput{Topic: req.Topic, Tone: req.Tone})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"generated_text": text})
}
