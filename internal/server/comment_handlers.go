package server

import (
	"github.com/gofiber/fiber/v2"
)

type commentRequest struct {
	Text string `json:"text"`
}

// GetComments returns a blog's comment tree (public)
// @Summary List comments
// @Tags comments
// @Produce json
// @Param id path int true "Blog ID"
// @Success 200 {array} models.Comment
// @Failure 404 {object} object{error=string}
// @Router /blogs/{id}/comments [get]
func (s *Server) GetComments(c *fiber.Ctx) error {
	blogID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	comments, err := s.commentService.ListComments(c.UserContext(), blogID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(comments)
}

// CreateComment appends a top-level comment (protected)
// @Summary Add comment
// @Tags comments
// @Accept json
// @Produce json
// @Param id path int true "Blog ID"
// @Param request body object{text=string} true "Comment"
// @Success 201 {object} models.Comment
// @Failure 400 {object} object{error=string}
// @Failure 401 {object} object{error=string}
// @Failure 404 {object} object{error=string}
// @Security BearerAuth
// @Router /blogs/{id}/comments [post]
func (s *Server) CreateComment(c *fiber.Ctx) error {
	blogID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req commentRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	created, err := s.commentService.AddComment(c.UserContext(), blogID, identity(c), req.Text)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// UpdateComment replaces the text of a comment or reply at any depth (protected)
// @Summary Edit comment
// @Tags comments
// @Accept json
// @Produce json
// @Param id path int true "Blog ID"
// @Param commentId path string true "Comment ID"
// @Param request body object{text=string} true "Comment"
// @Success 200 {object} models.Comment
// @Failure 400 {object} object{error=string}
// @Failure 401 {object} object{error=string}
// @Failure 403 {object} object{error=string}
// @Failure 404 {object} object{error=string}
// @Failure 409 {object} object{error=string}
// @Security BearerAuth
// @Router /blogs/{id}/comments/{commentId} [put]
func (s *Server) UpdateComment(c *fiber.Ctx) error {
	blogID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	commentID, err := s.commentIDParam(c)
	if err != nil {
		return nil
	}
	var req commentRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	updated, err := s.commentService.EditComment(c.UserContext(), blogID, commentID, identity(c), req.Text)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(updated)
}

// DeleteComment removes a comment or reply with its subtree (protected)
// @Summary Delete comment
// @Tags comments
// @Produce json
// @Param id path int true "Blog ID"
// @Param commentId path string true "Comment ID"
// @Success 200 {object} object{message=string}
// @Failure 401 {object} object{error=string}
// @Failure 403 {object} object{error=string}
// @Failure 404 {object} object{error=string}
// @Security BearerAuth
// @Router /blogs/{id}/comments/{commentId} [delete]
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	blogID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	commentID, err := s.commentIDParam(c)
	if err != nil {
		return nil
	}

	if err := s.commentService.DeleteComment(c.UserContext(), blogID, commentID, identity(c)); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Comment deleted successfully"})
}

// CreateReply appends a reply under a comment or reply (protected)
// @Summary Add reply
// @Tags comments
// @Accept json
// @Produce json
// @Param id path int true "Blog ID"
// @Param commentId path string true "Parent comment ID"
// @Param request body object{text=string} true "Reply"
// @Success 201 {object} models.Comment
// @Failure 400 {object} object{error=string}
// @Failure 401 {object} object{error=string}
// @Failure 404 {object} object{error=string}
// @Security BearerAuth
// @Router /blogs/{id}/comments/{commentId}/replies [post]
func (s *Server) CreateReply(c *fiber.Ctx) error {
	blogID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	commentID, err := s.commentIDParam(c)
	if err != nil {
		return nil
	}
	var req commentRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	reply, err := s.commentService.AddReply(c.UserContext(), blogID, commentID, identity(c), req.Text)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(reply)
}
