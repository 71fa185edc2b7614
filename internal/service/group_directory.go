package service

import (
	"context"

	"github.com/noteduco342/moim-backend/internal/metrics"
	"github.com/noteduco342/moim-backend/internal/models"
	"github.com/noteduco342/moim-backend/internal/repository"
)

// GroupDirectory lists groups newest first in cursor pages. The first page is
// also what live subscribers to the directory receive.
type GroupDirectory struct {
	groups   repository.GroupRepositoryInterface
	pageSize int
}

func NewGroupDirectory(groups repository.GroupRepositoryInterface, pageSize int) *GroupDirectory {
	if pageSize < 1 {
		pageSize = 20
	}
	return &GroupDirectory{groups: groups, pageSize: pageSize}
}

// ListGroups returns the page of all groups after an encoded cursor. An empty
// cursor reads the newest page.
func (d *GroupDirectory) ListGroups(ctx context.Context, after string) (models.GroupPage, error) {
	return d.page(ctx, after, func(cursor *models.Cursor) ([]models.Group, error) {
		return d.groups.QueryOrdered(ctx, models.OrderCreatedDesc, d.pageSize, cursor)
	})
}

// ListMemberGroups returns the page of groups userID belongs to.
func (d *GroupDirectory) ListMemberGroups(ctx context.Context, userID, after string) (models.GroupPage, error) {
	if userID == "" {
		return models.GroupPage{}, ErrUnauthorized
	}
	return d.page(ctx, after, func(cursor *models.Cursor) ([]models.Group, error) {
		return d.groups.QueryByMember(ctx, userID, models.OrderCreatedDesc, d.pageSize, cursor)
	})
}

func (d *GroupDirectory) page(ctx context.Context, encoded string, query func(*models.Cursor) ([]models.Group, error)) (models.GroupPage, error) {
	var after *models.Cursor
	if encoded != "" {
		cursor, err := models.DecodeCursor(encoded, models.OrderCreatedDesc)
		if err != nil {
			return models.GroupPage{}, err
		}
		after = cursor
	}

	groups, err := query(after)
	metrics.FeedFetches.WithLabelValues("directory", metrics.Result(err)).Inc()
	if err != nil {
		return models.GroupPage{}, classify(err)
	}

	page := models.GroupPage{
		Items:   make([]models.GroupResponse, 0, len(groups)),
		HasMore: len(groups) == d.pageSize,
	}
	for i := range groups {
		page.Items = append(page.Items, groups[i].ToResponse())
	}
	if n := len(groups); n > 0 {
		page.Cursor, _ = models.GroupCursor(models.OrderCreatedDesc, &groups[n-1]).Encode()
	}
	return page, nil
}
