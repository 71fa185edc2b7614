package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/noteduco342/moim-backend/internal/httpx"
	"github.com/noteduco342/moim-backend/internal/models"
	"github.com/noteduco342/moim-backend/internal/service"
)

// FeedHandler serves the paginated post board of a group and the comment
// feed of a post. Pagination state lives server side, one context per user.
type FeedHandler struct {
	feeds *service.FeedService
}

func NewFeedHandler(feeds *service.FeedService) *FeedHandler {
	return &FeedHandler{feeds: feeds}
}

type feedOp func(ctx context.Context, viewerID string, parent models.Parent) (service.FeedView, error)

func (h *FeedHandler) serve(kind models.ParentKind, op feedOp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := currentActor(c)
		if !ok {
			return unauthorized(c)
		}
		view, err := op(c.UserContext(), actor.ID, models.Parent{Kind: kind, ID: param(c, "id")})
		if err != nil {
			return httpx.FromError(c, err)
		}
		return c.JSON(view)
	}
}

// List: GET .../feed restarts the feed at the newest page.
func (h *FeedHandler) List(kind models.ParentKind) fiber.Handler {
	return h.serve(kind, h.feeds.ListFeedPage)
}

// Next: POST .../feed/next
func (h *FeedHandler) Next(kind models.ParentKind) fiber.Handler {
	return h.serve(kind, h.feeds.AdvanceFeedPage)
}

// Search: GET .../feed/search?q=
func (h *FeedHandler) Search(kind models.ParentKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		term := query(c, "q")
		return h.serve(kind, func(ctx context.Context, viewerID string, parent models.Parent) (service.FeedView, error) {
			return h.feeds.SearchFeed(ctx, viewerID, parent, term)
		})(c)
	}
}

// SearchNext: POST .../feed/search/next
func (h *FeedHandler) SearchNext(kind models.ParentKind) fiber.Handler {
	return h.serve(kind, h.feeds.AdvanceSearchReveal)
}

// Scroll: POST .../feed/scroll
func (h *FeedHandler) Scroll(kind models.ParentKind) fiber.Handler {
	return h.serve(kind, h.feeds.ScrollNearEnd)
}

// DELETE /api/feed drops the caller's pagination context.
func (h *FeedHandler) Discard(c *fiber.Ctx) error {
	actor, ok := currentActor(c)
	if !ok {
		return unauthorized(c)
	}
	h.feeds.Discard(actor.ID)
	return c.SendStatus(fiber.StatusNoContent)
}

// GET /api/groups/:id/posts?after=<cursor> reads one page without server
// side state.
func (h *FeedHandler) ListPosts(c *fiber.Ctx) error {
	view, err := h.feeds.PageAfter(c.UserContext(), models.GroupParent(param(c, "id")), query(c, "after"))
	if err != nil {
		return httpx.FromError(c, err)
	}
	return c.JSON(view)
}
