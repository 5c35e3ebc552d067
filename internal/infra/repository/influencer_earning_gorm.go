package repository

import (
	"context"
	"time"

	"badgeshop/internal/domain/model"
	repo "badgeshop/internal/repository"

	"gorm.io/gorm"
)

type InfluencerEarningGormRepository struct {
	db *gorm.DB
}

func NewInfluencerEarningGormRepository(db *gorm.DB) *InfluencerEarningGormRepository {
	return &InfluencerEarningGormRepository{db: db}
}

func (r *InfluencerEarningGormRepository) Create(ctx context.Context, e model.InfluencerEarning) (model.InfluencerEarning, error) {
	if err := r.db.WithContext(ctx).Create(&e).Error; err != nil {
		if isUniqueViolation(err) {
			return model.InfluencerEarning{}, repo.ErrConflict
		}
		return model.InfluencerEarning{}, err
	}
	return e, nil
}

func (r *InfluencerEarningGormRepository) ListByOrderAndStatus(ctx context.Context, orderID int64, status model.EarningStatus) ([]model.InfluencerEarning, error) {
	var items []model.InfluencerEarning
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND status = ?", orderID, status).
		Order("id asc").
		Find(&items).Error
	if err != nil {
		return []model.InfluencerEarning{}, err
	}
	return items, nil
}

// fromのときだけtoへ。更新できたらtrue
func (r *InfluencerEarningGormRepository) Transition(ctx context.Context, earningID int64, from model.EarningStatus, to model.EarningStatus, paidAt *time.Time, paymentRef string) (bool, error) {
	updates := map[string]interface{}{"status": to}
	if paidAt != nil {
		updates["paid_at"] = *paidAt
	}
	if paymentRef != "" {
		updates["payment_reference"] = paymentRef
	}

	res := r.db.WithContext(ctx).Model(&model.InfluencerEarning{}).
		Where("id = ? AND status = ?", earningID, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *InfluencerEarningGormRepository) ListByInfluencer(ctx context.Context, influencerID int64, status string, page int, limit int) ([]model.InfluencerEarning, int64, error) {
	page, limit = normalizePage(page, limit, 50, 200)

	q := r.db.WithContext(ctx).Model(&model.InfluencerEarning{}).Where("influencer_id = ?", influencerID)
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return []model.InfluencerEarning{}, 0, err
	}

	var items []model.InfluencerEarning
	if err := q.Order("id desc").Limit(limit).Offset((page - 1) * limit).Find(&items).Error; err != nil {
		return []model.InfluencerEarning{}, 0, err
	}
	return items, total, nil
}

func (r *InfluencerEarningGormRepository) SumByInfluencerAndStatus(ctx context.Context, influencerID int64, status model.EarningStatus) (int64, error) {
	var sum int64
	err := r.db.WithContext(ctx).Model(&model.InfluencerEarning{}).
		Where("influencer_id = ? AND status = ?", influencerID, status).
		Select("COALESCE(SUM(total_earning), 0)").
		Scan(&sum).Error
	if err != nil {
		return 0, err
	}
	return sum, nil
}
