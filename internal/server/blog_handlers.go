package server

import (
	"io"
	"mime/multipart"

	"writeflow/internal/models"
	"writeflow/internal/service"

	"github.com/gofiber/fiber/v2"
)

// blogForm is the multipart (or JSON) body of blog create and update.
type blogForm struct {
	Title         string `json:"title" form:"title"`
	Content       string `json:"content" form:"content"`
	Tags          string `json:"tags" form:"tags"`
	ExistingImage string `json:"existingImage" form:"existingImage"`
}

// resolveImage uploads the "image" file part when present and returns its
// URL, falling back to existingImage.
func (s *Server) resolveImage(c *fiber.Ctx, form blogForm) (string, error) {
	file, err := c.FormFile("image")
	if err != nil || file == nil {
		return form.ExistingImage, nil
	}
	uploaded, err := s.uploadFormFile(c, file)
	if err != nil {
		return "", err
	}
	return uploaded.URL, nil
}

func (s *Server) uploadFormFile(c *fiber.Ctx, file *multipart.FileHeader) (*service.UploadedImage, error) {
	f, err := file.Open()
	if err != nil {
		return nil, models.NewValidationError("Invalid image upload")
	}
	defer func() { _ = f.Close() }()

	content, err := io.ReadAll(io.LimitReader(f, s.imageService.MaxUploadSizeBytes()+1))
	if err != nil {
		return nil, models.NewValidationError("Invalid image upload")
	}
	return s.imageService.Upload(c.UserContext(), service.UploadImageInput{
		Filename:    file.Filename,
		ContentType: file.Header.Get(fiber.HeaderContentType),
		Content:     content,
	})
}

// GetBlogs lists every blog, newest first
// @Summary List blogs
// @Tags blogs
// @Produce json
// @Success 200 {array} models.Blog
// @Failure 500 {object} object{error=string}
// @Router /blogs [get]
func (s *Server) GetBlogs(c *fiber.Ctx) error {
	blogs, err := s.blogService.List(c.UserContext())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(blogs)
}

// GetMyBlogs lists the caller's blogs
// @Summary List my blogs
// @Tags blogs
// @Produce json
// @Success 200 {array} models.Blog
// @Failure 401 {object} object{error=string}
// @Security BearerAuth
// @Router /blogs/mine [get]
func (s *Server) GetMyBlogs(c *fiber.Ctx) error {
	blogs, err := s.blogService.ListByAuthor(c.UserContext(), identity(c).Username)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(blogs)
}

// GetBlog returns one blog with its comment tree
// @Summary Get blog
// @Tags blogs
// @Produce json
// @Param id path int true "Blog ID"
// @Success 200 {object} models.Blog
// @Failure 404 {object} object{error=string}
// @Router /blogs/{id} [get]
func (s *Server) GetBlog(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	blog, err := s.blogService.Get(c.UserContext(), id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(blog)
}

// CreateBlog creates a blog authored by the caller
// @Summary Create blog
// @Tags blogs
// @Accept mpfd
// @Produce json
// @Param title formData string true "Title"
// @Param content formData string true "Content"
// @Param tags formData string false "Comma separated tags"
// @Param image formData file false "Cover image"
// @Param existingImage formData string false "Existing image URL"
// @Success 201 {object} models.Blog
// @Failure 400 {object} object{error=string}
// @Failure 401 {object} object{error=string}
// @Security BearerAuth
// @Router /blogs [post]
func (s *Server) CreateBlog(c *fiber.Ctx) error {
	var form blogForm
	if err := parseBody(c, &form); err != nil {
		return nil
	}
	if err := service.ValidateFields(form.Title, form.Content); err != nil {
		return respondServiceError(c, err)
	}
	image, err := s.resolveImage(c, form)
	if err != nil {
		return respondServiceError(c, err)
	}

	blog, err := s.blogService.Create(c.UserContext(), service.CreateBlogInput{
		Author:  identity(c).Username,
		Title:   form.Title,
		Content: form.Content,
		Tags:    form.Tags,
		Image:   image,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(blog)
}

// UpdateBlog replaces a blog's fields; only its author may do so
// @Summary Update blog
// @Tags blogs
// @Accept mpfd
// @Produce json
// @Param id path int true "Blog ID"
// @Param title formData string true "Title"
// @Param content formData string true "Content"
// @Param tags formData string false "Comma separated tags"
// @Param image formData file false "Cover image"
// @Param existingImage formData string false "Existing image URL"
// @Success 200 {object} models.Blog
// @Failure 400 {object} object{error=string}
// @Failure 401 {object} object{error=string}
// @Failure 403 {object} object{error=string}
// @Failure 404 {object} object{error=string}
// @Security BearerAuth
// @Router /blogs/{id} [put]
func (s *Server) UpdateBlog(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var form blogForm
	if err := parseBody(c, &form); err != nil {
		return nil
	}
	if err := service.ValidateFields(form.Title, form.Content); err != nil {
		return respondServiceError(c, err)
	}
	if err := s.blogService.CheckEditable(c.UserContext(), id, identity(c)); err != nil {
		return respondServiceError(c, err)
	}
	image, err := s.resolveImage(c, form)
	if err != nil {
		return respondServiceError(c, err)
	}

	blog, err := s.blogService.Update(c.UserContext(), service.UpdateBlogInput{
		BlogID:   id,
		Identity: identity(c),
		Title:    form.Title,
		Content:  form.Content,
		Tags:     form.Tags,
		Image:    image,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(blog)
}

// DeleteBlog removes a blog and its comments; only its author may do so
// @Summary Delete blog
// @Tags blogs
// @Produce json
// @Param id path int true "Blog ID"
// @Success 200 {object} object{message=string}
// @Failure 401 {object} object{error=string}
// @Failure 403 {object} object{error=string}
// @Failure 404 {object} object{error=string}
// @Security BearerAuth
// @Router /blogs/{id} [delete]
func (s *Server) DeleteBlog(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.blogService.Delete(c.UserContext(), id, identity(c)); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Deleted successfully"})
}

// UploadImage stores a cover image and returns its URLs
// @Summary Upload image
// @Tags images
// @Accept mpfd
// @Produce json
// @Param image formData file true "Image (jpeg, png or webp)"
// @Success 201 {object} service.UploadedImage
// @Failure 400 {object} object{error=string}
// @Failure 401 {object} object{error=string}
// @Failure 503 {object} object{error=string}
// @Security BearerAuth
// @Router /images [post]
func (s *Server) UploadImage(c *fiber.Ctx) error {
	file, err := c.FormFile("image")
	if err != nil || file == nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Image file is required"))
	}
	uploaded, err := s.uploadFormFile(c, file)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(uploaded)
}
