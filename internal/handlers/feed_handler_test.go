package handlers

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/noteduco342/moim-backend/internal/middleware"
	"github.com/noteduco342/moim-backend/internal/models"
	"github.com/noteduco342/moim-backend/internal/repository"
	"github.com/noteduco342/moim-backend/internal/service"
	"github.com/noteduco342/moim-backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newFeedApp serves the group feed routes on a default (mutable) fiber app,
// authenticated as viewer, next to an unrelated route.
func newFeedApp(t *testing.T, viewer string, posts int) (*fiber.App, *service.FeedService, string) {
	t.Helper()
	h := testutil.NewTestHelper(t)
	db := h.OpenTestDB()
	group := h.CreateTestGroup("", "owner", 0)
	seeded := h.CreateTestPosts(group.ID, posts, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	h.Seed(db, group, &seeded)

	feeds := service.NewFeedService(repository.NewPostRepository(db), repository.NewCommentRepository(db), 10, 300)
	handler := NewFeedHandler(feeds)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(middleware.LocalUserID, viewer)
		return c.Next()
	})
	app.Get("/groups/:id/feed", handler.List(models.ParentGroup))
	app.Get("/groups/:id/feed/search", handler.Search(models.ParentGroup))
	app.Get("/other/:id/x", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app, feeds, group.ID
}

func doRequest(t *testing.T, app *fiber.App, target string) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", target, nil))
	require.NoError(t, err)
	resp.Body.Close()
	require.Less(t, resp.StatusCode, 300, "GET %s", target)
}

func TestFeedContextOutlivesTheRequest(t *testing.T) {
	app, feeds, groupID := newFeedApp(t, "u1", 25)

	doRequest(t, app, "/groups/"+groupID+"/feed")
	doRequest(t, app, "/other/"+strings.Repeat("Z", len(groupID))+"/x")

	view, err := feeds.AdvanceFeedPage(context.Background(), "u1", models.GroupParent(groupID))
	require.NoError(t, err)
	assert.Equal(t, 2, view.Pages, "feed restarted instead of advancing")
	assert.Len(t, view.Items, 20)
}

func TestSearchTermOutlivesTheRequest(t *testing.T) {
	app, feeds, groupID := newFeedApp(t, "u1", 25)

	doRequest(t, app, "/groups/"+groupID+"/feed/search?q=post")
	doRequest(t, app, "/other/"+strings.Repeat("Z", len(groupID))+"/x?q=zzzz")

	view, err := feeds.AdvanceSearchReveal(context.Background(), "u1", models.GroupParent(groupID))
	require.NoError(t, err)
	assert.Equal(t, service.ModeFiltered, view.Mode)
	assert.Equal(t, "post", view.Filter)
	assert.Equal(t, 20, view.Revealed)
}
