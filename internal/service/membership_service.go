package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/noteduco342/moim-backend/internal/cache"
	"github.com/noteduco342/moim-backend/internal/live"
	"github.com/noteduco342/moim-backend/internal/metrics"
	"github.com/noteduco342/moim-backend/internal/models"
	"github.com/noteduco342/moim-backend/internal/repository"
	"github.com/noteduco342/moim-backend/internal/validation"
)

const (
	maxGroupNameLength        = 100
	maxGroupDescriptionLength = 255
)

type MembershipService struct {
	groupRepo  repository.GroupRepositoryInterface
	groupCache *cache.GroupCache
	publisher  *live.Publisher
}

func NewMembershipService(
	groupRepo repository.GroupRepositoryInterface,
	groupCache *cache.GroupCache,
	publisher *live.Publisher,
) *MembershipService {
	return &MembershipService{
		groupRepo:  groupRepo,
		groupCache: groupCache,
		publisher:  publisher,
	}
}

// CreateGroup creates a group with the owner as its first member.
func (s *MembershipService) CreateGroup(ctx context.Context, ownerID, name, description string, capacity int) (*models.Group, error) {
	name = validation.TrimAndLimit(name, maxGroupNameLength)
	if ownerID == "" {
		return nil, ErrUnauthorized
	}
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidContent)
	}
	if capacity < 0 {
		return nil, fmt.Errorf("%w: capacity must not be negative", ErrInvalidContent)
	}

	id := models.NewID()
	group := &models.Group{
		ID:          id,
		Name:        name,
		Description: validation.TrimAndLimit(description, maxGroupDescriptionLength),
		OwnerID:     ownerID,
		Capacity:    capacity,
		Members:     []models.GroupMember{{GroupID: id, UserID: ownerID}},
	}
	if err := s.groupRepo.Create(ctx, group); err != nil {
		return nil, classify(err)
	}

	log.Printf("group created id=%s owner=%s capacity=%d", group.ID, ownerID, capacity)
	if err := s.publisher.Notify(ctx, live.GroupListTopic); err != nil {
		log.Printf("group list notice failed group=%s err=%v", group.ID, err)
	}
	return group, nil
}

// Join adds the user to the group. Joining twice is a successful no-op.
func (s *MembershipService) Join(ctx context.Context, groupID, userID string) (*models.Group, error) {
	return s.mutate(ctx, "join", groupID, func(g *models.Group) (bool, error) {
		if g.IsMember(userID) {
			return false, nil
		}
		if g.IsFull() {
			return false, ErrCapacityExceeded
		}
		g.Members = append(g.Members, models.GroupMember{GroupID: g.ID, UserID: userID})
		return true, nil
	})
}

// Leave removes the user from the group. Leaving when absent is a successful
// no-op.
func (s *MembershipService) Leave(ctx context.Context, groupID, userID string) (*models.Group, error) {
	return s.mutate(ctx, "leave", groupID, func(g *models.Group) (bool, error) {
		return removeMember(g, userID), nil
	})
}

// TransferOwnership hands the group to another current member.
func (s *MembershipService) TransferOwnership(ctx context.Context, groupID, actorID, targetID string) (*models.Group, error) {
	return s.mutate(ctx, "transfer", groupID, func(g *models.Group) (bool, error) {
		if !g.IsOwner(actorID) {
			return false, ErrUnauthorized
		}
		if targetID == g.OwnerID {
			return false, nil
		}
		if !g.IsMember(targetID) {
			return false, ErrNotMember
		}
		g.OwnerID = targetID
		return true, nil
	})
}

// Kick removes another member. Only the owner may kick, and never themselves.
func (s *MembershipService) Kick(ctx context.Context, groupID, actorID, targetID string) (*models.Group, error) {
	return s.mutate(ctx, "kick", groupID, func(g *models.Group) (bool, error) {
		if !g.IsOwner(actorID) {
			return false, ErrUnauthorized
		}
		if targetID == "" || targetID == actorID || targetID == g.OwnerID {
			return false, ErrInvalidTarget
		}
		return removeMember(g, targetID), nil
	})
}

// Snapshot returns the confirmed group state, served from cache when possible.
func (s *MembershipService) Snapshot(ctx context.Context, groupID string) (*models.Group, error) {
	if group, ok := s.groupCache.Get(ctx, groupID); ok {
		return group, nil
	}
	return s.Load(ctx, groupID)
}

// Load reads the group from the store, bypassing the cache, and refreshes the
// cached copy unless a later commit already replaced it. Live subscribers use
// it so a notice is never answered with a stale cache entry.
func (s *MembershipService) Load(ctx context.Context, groupID string) (*models.Group, error) {
	group, err := s.groupRepo.FindByID(ctx, groupID)
	if err != nil {
		return nil, classify(err)
	}
	if err := s.groupCache.Set(ctx, group); err != nil {
		log.Printf("group cache set failed group=%s err=%v", groupID, err)
	}
	return group, nil
}

// mutate runs fn inside one group transaction. fn reports whether it changed
// the group; unchanged groups are neither written nor announced.
func (s *MembershipService) mutate(ctx context.Context, op, groupID string, fn func(*models.Group) (bool, error)) (*models.Group, error) {
	start := time.Now()
	changed := false
	group, err := s.groupRepo.Transact(ctx, groupID, func(g *models.Group) error {
		var err error
		changed, err = fn(g)
		return err
	})
	metrics.MembershipDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())

	err = classify(err)
	metrics.MembershipOps.WithLabelValues(op, membershipResult(err, changed)).Inc()
	if err != nil {
		if errors.Is(err, ErrTransient) {
			log.Printf("membership %s failed group=%s err=%v", op, groupID, err)
		}
		return nil, err
	}

	if changed {
		s.afterCommit(ctx, group)
	}
	return group, nil
}

func (s *MembershipService) afterCommit(ctx context.Context, group *models.Group) {
	// Write through so a reader that loaded before this commit cannot cache
	// its older copy afterwards.
	if err := s.groupCache.Set(ctx, group); err != nil {
		if err := s.groupCache.Invalidate(ctx, group.ID); err != nil {
			log.Printf("group cache invalidate failed group=%s err=%v", group.ID, err)
		}
	}
	if err := s.publisher.Notify(ctx, live.GroupTopic(group.ID), live.GroupListTopic); err != nil {
		log.Printf("group notice failed group=%s err=%v", group.ID, err)
	}
}

func removeMember(g *models.Group, userID string) bool {
	for i, m := range g.Members {
		if m.UserID == userID {
			g.Members = append(g.Members[:i], g.Members[i+1:]...)
			return true
		}
	}
	return false
}

func membershipResult(err error, changed bool) string {
	switch {
	case err == nil && changed:
		return "ok"
	case err == nil:
		return "noop"
	case errors.Is(err, ErrCapacityExceeded):
		return "full"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrTransient):
		return "error"
	default:
		return "rejected"
	}
}
