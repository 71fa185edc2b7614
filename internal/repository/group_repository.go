package repository

import (
	"context"
	"time"

	"github.com/noteduco342/moim-backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GroupRepository struct {
	db *gorm.DB
}

func NewGroupRepository(db *gorm.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

func (r *GroupRepository) Create(ctx context.Context, group *models.Group) error {
	return r.db.WithContext(ctx).Create(group).Error
}

func (r *GroupRepository) FindByID(ctx context.Context, id string) (*models.Group, error) {
	return loadGroup(r.db.WithContext(ctx), id)
}

func (r *GroupRepository) Transact(ctx context.Context, id string, fn GroupMutation) (*models.Group, error) {
	var committed *models.Group
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := loadGroup(tx.Clauses(clause.Locking{Strength: "UPDATE"}), id)
		if err != nil {
			return err
		}

		next := current.Clone()
		if err := fn(next); err != nil {
			return err
		}

		added, removed := diffMembers(current, next)
		ownerChanged := next.OwnerID != current.OwnerID
		if len(added) == 0 && len(removed) == 0 && !ownerChanged {
			committed = current
			return nil
		}

		if len(removed) > 0 {
			if err := tx.Where("group_id = ? AND user_id IN ?", id, removed).
				Delete(&models.GroupMember{}).Error; err != nil {
				return err
			}
		}
		for _, userID := range added {
			member := models.GroupMember{GroupID: id, UserID: userID}
			if err := tx.Create(&member).Error; err != nil {
				return err
			}
		}

		updates := map[string]interface{}{"updated_at": time.Now()}
		if ownerChanged {
			updates["owner_id"] = next.OwnerID
		}
		if err := tx.Model(&models.Group{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}

		committed, err = loadGroup(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return committed, nil
}

func (r *GroupRepository) QueryOrdered(ctx context.Context, ordering models.Ordering, limit int, after *models.Cursor) ([]models.Group, error) {
	return r.queryGroups(r.db.WithContext(ctx), ordering, limit, after)
}

func (r *GroupRepository) QueryByMember(ctx context.Context, userID string, ordering models.Ordering, limit int, after *models.Cursor) ([]models.Group, error) {
	db := r.db.WithContext(ctx)
	memberOf := db.Model(&models.GroupMember{}).Select("group_id").Where("user_id = ?", userID)
	return r.queryGroups(db.Where("id IN (?)", memberOf), ordering, limit, after)
}

func (r *GroupRepository) queryGroups(db *gorm.DB, ordering models.Ordering, limit int, after *models.Cursor) ([]models.Group, error) {
	q, err := orderedPage(db, ordering, limit, after)
	if err != nil {
		return nil, err
	}
	var groups []models.Group
	err = withMembers(q).Find(&groups).Error
	return groups, err
}

func loadGroup(db *gorm.DB, id string) (*models.Group, error) {
	var group models.Group
	err := withMembers(db).First(&group, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &group, nil
}

func withMembers(db *gorm.DB) *gorm.DB {
	return db.Preload("Members", func(db *gorm.DB) *gorm.DB {
		return db.Order("joined_at ASC, user_id ASC")
	})
}

// diffMembers lists the user ids present only in next (added) and only in
// current (removed).
func diffMembers(current, next *models.Group) (added, removed []string) {
	before := make(map[string]bool, len(current.Members))
	for _, m := range current.Members {
		before[m.UserID] = true
	}
	after := make(map[string]bool, len(next.Members))
	for _, m := range next.Members {
		if after[m.UserID] {
			continue
		}
		after[m.UserID] = true
		if !before[m.UserID] {
			added = append(added, m.UserID)
		}
	}
	for _, m := range current.Members {
		if !after[m.UserID] {
			removed = append(removed, m.UserID)
		}
	}
	return added, removed
}
