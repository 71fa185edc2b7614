package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/noteduco342/moim-backend/internal/httpx"
	"github.com/noteduco342/moim-backend/internal/service"
)

type PostHandler struct {
	content *service.ContentService
}

func NewPostHandler(content *service.ContentService) *PostHandler {
	return &PostHandler{content: content}
}

type PostRequest struct {
	Title string `json:"title" validate:"notblank"`
	Body  string `json:"body" validate:"notblank"`
}

type CommentRequest struct {
	Body string `json:"body" validate:"notblank"`
}

// POST /api/groups/:id/posts
func (h *PostHandler) CreatePost(c *fiber.Ctx) error {
	actor, ok := currentActor(c)
	if !ok {
		return unauthorized(c)
	}
	var req PostRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}

	post, err := h.content.CreatePost(c.UserContext(), actor, param(c, "id"), req.Title, req.Body)
	if err != nil {
		return httpx.FromError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// GET /api/posts/:id
func (h *PostHandler) GetPost(c *fiber.Ctx) error {
	post, err := h.content.GetPost(c.UserContext(), param(c, "id"))
	if err != nil {
		return httpx.FromError(c, err)
	}
	return c.JSON(post)
}

// PUT /api/posts/:id
func (h *PostHandler) EditPost(c *fiber.Ctx) error {
	actor, ok := currentActor(c)
	if !ok {
		return unauthorized(c)
	}
	var req PostRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}

	post, err := h.content.EditPost(c.UserContext(), actor, param(c, "id"), req.Title, req.Body)
	if err != nil {
		return httpx.FromError(c, err)
	}
	return c.JSON(post)
}

// DELETE /api/posts/:id removes the post with its whole comment thread.
func (h *PostHandler) DeletePost(c *fiber.Ctx) error {
	actor, ok := currentActor(c)
	if !ok {
		return unauthorized(c)
	}
	result, err := h.content.DeletePost(c.UserContext(), actor, param(c, "id"))
	if err != nil {
		return httpx.FromError(c, err)
	}
	return c.JSON(result)
}

// GET /api/posts/:id/comments
func (h *PostHandler) ListComments(c *fiber.Ctx) error {
	comments, err := h.content.ListComments(c.UserContext(), param(c, "id"))
	if err != nil {
		return httpx.FromError(c, err)
	}
	return c.JSON(comments)
}

// POST /api/posts/:id/comments
func (h *PostHandler) CreateComment(c *fiber.Ctx) error {
	actor, ok := currentActor(c)
	if !ok {
		return unauthorized(c)
	}
	var req CommentRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}

	comment, err := h.content.CreateComment(c.UserContext(), actor, param(c, "id"), req.Body)
	if err != nil {
		return httpx.FromError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// PUT /api/comments/:id
func (h *PostHandler) EditComment(c *fiber.Ctx) error {
	actor, ok := currentActor(c)
	if !ok {
		return unauthorized(c)
	}
	var req CommentRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}

	comment, err := h.content.EditComment(c.UserContext(), actor, param(c, "id"), req.Body)
	if err != nil {
		return httpx.FromError(c, err)
	}
	return c.JSON(comment)
}

// DELETE /api/comments/:id
func (h *PostHandler) DeleteComment(c *fiber.Ctx) error {
	actor, ok := currentActor(c)
	if !ok {
		return unauthorized(c)
	}
	if err := h.content.DeleteComment(c.UserContext(), actor, param(c, "id")); err != nil {
		return httpx.FromError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
