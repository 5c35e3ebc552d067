package repository

import (
	"context"
	"time"

	"badgeshop/internal/domain/model"
	repo "badgeshop/internal/repository"

	"gorm.io/gorm"
)

type webhookEventGormRepository struct {
	db *gorm.DB
}

func NewWebhookEventGormRepository(db *gorm.DB) repo.WebhookEventRepository {
	return &webhookEventGormRepository{db: db}
}

func (r *webhookEventGormRepository) Exists(ctx context.Context, gateway string, eventID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.WebhookEvent{}).
		Where("gateway = ? AND event_id = ?", gateway, eventID).
		Count(&count).Error
	return count > 0, err
}

// 同時配信で先に記録されていても成功扱い
func (r *webhookEventGormRepository) MarkProcessed(ctx context.Context, gateway string, eventID string, eventType string) error {
	err := r.db.WithContext(ctx).Create(&model.WebhookEvent{
		Gateway:     gateway,
		EventID:     eventID,
		EventType:   eventType,
		ProcessedAt: time.Now(),
	}).Error
	if isUniqueViolation(err) {
		return nil
	}
	return err
}
