package repository

import (
	"time"

	"gorm.io/gorm"
)

// 0以下はdef、maxを超えたらdef
func normalizePage(page, limit, def, max int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > max {
		limit = def
	}
	return page, limit
}

func paginate(page, limit int) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset((page - 1) * limit).Limit(limit)
	}
}

// [from, to) で created_at を絞る（nilは無制限）
func createdBetween(from, to *time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if from != nil {
			db = db.Where("created_at >= ?", *from)
		}
		if to != nil {
			db = db.Where("created_at < ?", *to)
		}
		return db
	}
}
