package cache

import (
	"context"
	"time"

	"github.com/noteduco342/moim-backend/internal/models"
	"github.com/vmihailenco/msgpack/v5"
)

const GroupTTL = 5 * time.Minute

// GroupCache keeps msgpack snapshots of groups with their member sets.
// A nil GroupCache, or one without Redis, behaves as an always-empty cache.
type GroupCache struct {
	redis *RedisCache
}

func NewGroupCache(redis *RedisCache) *GroupCache {
	return &GroupCache{redis: redis}
}

func groupKey(groupID string) string {
	return "group:snapshot:" + groupID
}

func (gc *GroupCache) Get(ctx context.Context, groupID string) (*models.Group, bool) {
	if gc == nil || gc.redis == nil {
		return nil, false
	}
	data, err := gc.redis.Get(ctx, groupKey(groupID))
	if err != nil || data == nil {
		return nil, false
	}

	var group models.Group
	if err := msgpack.Unmarshal(data, &group); err != nil {
		return nil, false
	}
	return &group, true
}

// Set stores group unless the cache already holds a later state of it, so a
// slow reader cannot overwrite what a commit wrote after its read.
func (gc *GroupCache) Set(ctx context.Context, group *models.Group) error {
	if gc == nil || gc.redis == nil || group == nil {
		return nil
	}
	data, err := msgpack.Marshal(group)
	if err != nil {
		return err
	}
	return gc.redis.SetUnless(ctx, groupKey(group.ID), data, GroupTTL, func(current []byte) bool {
		return holdsNewer(current, group)
	})
}

// holdsNewer reports whether the cached payload is a later state than group.
func holdsNewer(current []byte, group *models.Group) bool {
	var cached models.Group
	if err := msgpack.Unmarshal(current, &cached); err != nil {
		return false
	}
	return cached.UpdatedAt.After(group.UpdatedAt)
}

func (gc *GroupCache) Invalidate(ctx context.Context, groupID string) error {
	if gc == nil || gc.redis == nil {
		return nil
	}
	return gc.redis.Delete(ctx, groupKey(groupID))
}
