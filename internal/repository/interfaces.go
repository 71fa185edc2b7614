package repository

import (
	"context"

	"github.com/noteduco342/moim-backend/internal/models"
)

// GroupMutation edits a locked copy of a group. Returning an error aborts the
// transaction without writing anything.
type GroupMutation func(group *models.Group) error

// GroupRepositoryInterface defines the contract for group repository operations
type GroupRepositoryInterface interface {
	Create(ctx context.Context, group *models.Group) error
	FindByID(ctx context.Context, id string) (*models.Group, error)
	// Transact reads the group under a row lock, applies fn and persists the
	// resulting member set and owner atomically. It returns the committed group.
	Transact(ctx context.Context, id string, fn GroupMutation) (*models.Group, error)
	// QueryOrdered pages through every group.
	QueryOrdered(ctx context.Context, ordering models.Ordering, limit int, after *models.Cursor) ([]models.Group, error)
	// QueryByMember pages through the groups userID belongs to.
	QueryByMember(ctx context.Context, userID string, ordering models.Ordering, limit int, after *models.Cursor) ([]models.Group, error)
}

// PostRepositoryInterface defines the contract for post repository operations
type PostRepositoryInterface interface {
	Create(ctx context.Context, post *models.Post) error
	FindByID(ctx context.Context, id string) (*models.Post, error)
	Update(ctx context.Context, id, title, body string) error
	Delete(ctx context.Context, id string) error
	QueryOrdered(ctx context.Context, groupID string, ordering models.Ordering, limit int, after *models.Cursor) ([]models.Post, error)
}

// CommentRepositoryInterface defines the contract for comment repository operations
type CommentRepositoryInterface interface {
	Create(ctx context.Context, comment *models.Comment) error
	FindByID(ctx context.Context, id string) (*models.Comment, error)
	Update(ctx context.Context, id, body string) error
	Delete(ctx context.Context, id string) error
	QueryOrdered(ctx context.Context, postID string, ordering models.Ordering, limit int, after *models.Cursor) ([]models.Comment, error)
	// FetchBatch returns up to limit comment ids of the post.
	FetchBatch(ctx context.Context, postID string, limit int) ([]string, error)
	// BatchDelete removes all given comments or none of them.
	BatchDelete(ctx context.Context, ids []string) error
}
