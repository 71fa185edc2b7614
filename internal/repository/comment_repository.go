package repository

import (
	"context"

	"github.com/noteduco342/moim-backend/internal/models"
	"gorm.io/gorm"
)

type CommentRepository struct {
	db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

func (r *CommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

func (r *CommentRepository) FindByID(ctx context.Context, id string) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).First(&comment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

func (r *CommentRepository) Update(ctx context.Context, id, body string) error {
	result := r.db.WithContext(ctx).Model(&models.Comment{}).Where("id = ?", id).
		Update("body", body)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *CommentRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Comment{}).Error
}

func (r *CommentRepository) QueryOrdered(ctx context.Context, postID string, ordering models.Ordering, limit int, after *models.Cursor) ([]models.Comment, error) {
	q, err := orderedPage(r.db.WithContext(ctx).Where("post_id = ?", postID), ordering, limit, after)
	if err != nil {
		return nil, err
	}
	var comments []models.Comment
	err = q.Find(&comments).Error
	return comments, err
}

func (r *CommentRepository) FetchBatch(ctx context.Context, postID string, limit int) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.Comment{}).
		Where("post_id = ?", postID).
		Order("id ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}

func (r *CommentRepository) BatchDelete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Where("id IN ?", ids).Delete(&models.Comment{}).Error
	})
}
