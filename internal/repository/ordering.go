package repository

import (
	"github.com/noteduco342/moim-backend/internal/models"
	"gorm.io/gorm"
)

// orderedPage restricts db to the page strictly after the cursor, in the
// requested ordering. Ties on created_at are broken by id so a cursor stays
// stable while new rows are inserted.
func orderedPage(db *gorm.DB, ordering models.Ordering, limit int, after *models.Cursor) (*gorm.DB, error) {
	if !ordering.Valid() {
		return nil, models.ErrInvalidCursor
	}
	if err := after.Check(ordering); err != nil {
		return nil, err
	}

	switch ordering {
	case models.OrderCreatedAsc:
		if after != nil {
			db = db.Where("((created_at > ?) OR (created_at = ? AND id > ?))", after.CreatedAt, after.CreatedAt, after.ID)
		}
		db = db.Order("created_at ASC, id ASC")
	default:
		if after != nil {
			db = db.Where("((created_at < ?) OR (created_at = ? AND id < ?))", after.CreatedAt, after.CreatedAt, after.ID)
		}
		db = db.Order("created_at DESC, id DESC")
	}

	if limit > 0 {
		db = db.Limit(limit)
	}
	return db, nil
}
