package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/noteduco342/moim-backend/internal/httpx"
	"github.com/noteduco342/moim-backend/internal/service"
)

type GroupHandler struct {
	membership *service.MembershipService
	reconciler *service.Reconciler
	directory  *service.GroupDirectory
}

func NewGroupHandler(
	membership *service.MembershipService,
	reconciler *service.Reconciler,
	directory *service.GroupDirectory,
) *GroupHandler {
	return &GroupHandler{membership: membership, reconciler: reconciler, directory: directory}
}

type CreateGroupRequest struct {
	Name        string `json:"name" validate:"notblank,max=100"`
	Description string `json:"description" validate:"max=255"`
	Capacity    int    `json:"capacity" validate:"gte=0"`
}

type TransferOwnershipRequest struct {
	UserID string `json:"user_id" validate:"notblank"`
}

// POST /api/groups
func (h *GroupHandler) CreateGroup(c *fiber.Ctx) error {
	actor, ok := currentActor(c)
	if !ok {
		return unauthorized(c)
	}
	var req CreateGroupRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}

	group, err := h.membership.CreateGroup(c.UserContext(), actor.ID, req.Name, req.Description, req.Capacity)
	if err != nil {
		return httpx.FromError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(group.ToResponse())
}

// GET /api/groups?after=<cursor>
func (h *GroupHandler) ListGroups(c *fiber.Ctx) error {
	page, err := h.directory.ListGroups(c.UserContext(), query(c, "after"))
	if err != nil {
		return httpx.FromError(c, err)
	}
	return c.JSON(page)
}

// GET /api/me/groups?after=<cursor>
func (h *GroupHandler) ListMyGroups(c *fiber.Ctx) error {
	actor, ok := currentActor(c)
	if !ok {
		return unauthorized(c)
	}
	page, err := h.directory.ListMemberGroups(c.UserContext(), actor.ID, query(c, "after"))
	if err != nil {
		return httpx.FromError(c, err)
	}
	return c.JSON(page)
}

// GET /api/groups/:id
func (h *GroupHandler) GetGroup(c *fiber.Ctx) error {
	group, err := h.membership.Snapshot(c.UserContext(), param(c, "id"))
	if err != nil {
		return httpx.FromError(c, err)
	}
	return c.JSON(group.ToResponse())
}

// POST /api/groups/:id/join
func (h *GroupHandler) JoinGroup(c *fiber.Ctx) error {
	actor, ok := currentActor(c)
	if !ok {
		return unauthorized(c)
	}
	group, err := h.membership.Join(c.UserContext(), param(c, "id"), actor.ID)
	if err != nil {
		return httpx.FromError(c, err)
	}
	return c.JSON(group.ToResponse())
}

// POST /api/groups/:id/leave
func (h *GroupHandler) LeaveGroup(c *fiber.Ctx) error {
	actor, ok := currentActor(c)
	if !ok {
		return unauthorized(c)
	}
	group, err := h.membership.Leave(c.UserContext(), param(c, "id"), actor.ID)
	if err != nil {
		return httpx.FromError(c, err)
	}
	return c.JSON(group.ToResponse())
}

// GET /api/groups/:id/membership
func (h *GroupHandler) GetMembership(c *fiber.Ctx) error {
	actor, ok := currentActor(c)
	if !ok {
		return unauthorized(c)
	}
	view, err := h.reconciler.GetEffectiveMembership(c.UserContext(), param(c, "id"), actor.ID)
	if err != nil {
		return httpx.FromError(c, err)
	}
	return c.JSON(view)
}

// POST /api/groups/:id/membership/toggle
func (h *GroupHandler) ToggleMembership(c *fiber.Ctx) error {
	actor, ok := currentActor(c)
	if !ok {
		return unauthorized(c)
	}
	view, err := h.reconciler.Toggle(c.UserContext(), param(c, "id"), actor.ID)
	if err != nil {
		return httpx.FromError(c, err)
	}
	return c.JSON(view)
}

// PUT /api/groups/:id/owner
func (h *GroupHandler) TransferOwnership(c *fiber.Ctx) error {
	actor, ok := currentActor(c)
	if !ok {
		return unauthorized(c)
	}
	var req TransferOwnershipRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}

	group, err := h.membership.TransferOwnership(c.UserContext(), param(c, "id"), actor.ID, req.UserID)
	if err != nil {
		return httpx.FromError(c, err)
	}
	return c.JSON(group.ToResponse())
}

// DELETE /api/groups/:id/members/:userId
func (h *GroupHandler) KickMember(c *fiber.Ctx) error {
	actor, ok := currentActor(c)
	if !ok {
		return unauthorized(c)
	}
	group, err := h.membership.Kick(c.UserContext(), param(c, "id"), actor.ID, param(c, "userId"))
	if err != nil {
		return httpx.FromError(c, err)
	}
	return c.JSON(group.ToResponse())
}
