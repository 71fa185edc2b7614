package repository

import (
	"context"

	"github.com/noteduco342/moim-backend/internal/models"
	"gorm.io/gorm"
)

type PostRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) *PostRepository {
	return &PostRepository{db: db}
}

func (r *PostRepository) Create(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *PostRepository) FindByID(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).First(&post, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *PostRepository) Update(ctx context.Context, id, title, body string) error {
	result := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"title": title,
			"body":  body,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes the post row only. Deleting a missing post is not an error.
func (r *PostRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Post{}).Error
}

func (r *PostRepository) QueryOrdered(ctx context.Context, groupID string, ordering models.Ordering, limit int, after *models.Cursor) ([]models.Post, error) {
	q, err := orderedPage(r.db.WithContext(ctx).Where("group_id = ?", groupID), ordering, limit, after)
	if err != nil {
		return nil, err
	}
	var posts []models.Post
	err = q.Find(&posts).Error
	return posts, err
}
