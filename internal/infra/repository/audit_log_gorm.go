package repository

import (
	"context"

	"badgeshop/internal/domain/model"
	repo "badgeshop/internal/repository"

	"gorm.io/gorm"
)

type AuditLogGormRepository struct {
	db *gorm.DB
}

func NewAuditLogGormRepository(db *gorm.DB) *AuditLogGormRepository {
	return &AuditLogGormRepository{db: db}
}

func (r *AuditLogGormRepository) Create(ctx context.Context, log model.AuditLog) error {
	return r.db.WithContext(ctx).Create(&log).Error
}

func (r *AuditLogGormRepository) List(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.AuditLog{}).Scopes(auditLogScope(f))

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	logs := []model.AuditLog{}
	page, limit := normalizePage(f.Page, f.Limit, 50, 200)
	err := q.Order("created_at desc, id desc").Scopes(paginate(page, limit)).Find(&logs).Error
	if err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

func auditLogScope(f repo.AuditLogFilter) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		if f.ActorUserID != nil {
			q = q.Where("actor_user_id = ?", *f.ActorUserID)
		}
		if f.Action != "" {
			q = q.Where("action = ?", f.Action)
		}
		if f.ResourceType != "" {
			q = q.Where("resource_type = ?", f.ResourceType)
		}
		if f.ResourceID != nil {
			q = q.Where("resource_id = ?", *f.ResourceID)
		}
		return q.Scopes(createdBetween(f.From, f.To))
	}
}
