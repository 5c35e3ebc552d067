package repository

import (
	"context"
	"errors"

	"badgeshop/internal/domain/model"
	repo "badgeshop/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WithdrawalGormRepository struct {
	db *gorm.DB
}

func NewWithdrawalGormRepository(db *gorm.DB) *WithdrawalGormRepository {
	return &WithdrawalGormRepository{db: db}
}

func (r *WithdrawalGormRepository) Create(ctx context.Context, w model.WithdrawalRequest) (model.WithdrawalRequest, error) {
	if err := r.db.WithContext(ctx).Create(&w).Error; err != nil {
		return model.WithdrawalRequest{}, err
	}
	return w, nil
}

func (r *WithdrawalGormRepository) FindByID(ctx context.Context, id int64) (model.WithdrawalRequest, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *WithdrawalGormRepository) FindByIDForUpdate(ctx context.Context, id int64) (model.WithdrawalRequest, error) {
	return r.first(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id))
}

func (r *WithdrawalGormRepository) first(q *gorm.DB) (model.WithdrawalRequest, error) {
	var w model.WithdrawalRequest
	err := q.First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.WithdrawalRequest{}, repo.ErrNotFound
	}
	if err != nil {
		return model.WithdrawalRequest{}, err
	}
	return w, nil
}

func (r *WithdrawalGormRepository) Update(ctx context.Context, w model.WithdrawalRequest) error {
	res := r.db.WithContext(ctx).Model(&model.WithdrawalRequest{}).Where("id = ?", w.ID).Updates(map[string]interface{}{
		"status":         w.Status,
		"admin_note":     w.AdminNote,
		"transaction_id": w.TransactionID,
		"processed_at":   w.ProcessedAt,
		"processed_by":   w.ProcessedBy,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *WithdrawalGormRepository) List(ctx context.Context, f repo.WithdrawalListFilter) ([]model.WithdrawalRequest, int64, error) {
	page, limit := normalizePage(f.Page, f.Limit, 50, 100)

	q := r.db.WithContext(ctx).Model(&model.WithdrawalRequest{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.InfluencerID != nil {
		q = q.Where("influencer_id = ?", *f.InfluencerID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return []model.WithdrawalRequest{}, 0, err
	}

	var items []model.WithdrawalRequest
	if err := q.Order("id desc").Limit(limit).Offset((page - 1) * limit).Find(&items).Error; err != nil {
		return []model.WithdrawalRequest{}, 0, err
	}
	return items, total, nil
}

func (r *WithdrawalGormRepository) SumByInfluencerAndStatuses(ctx context.Context, influencerID int64, statuses []model.WithdrawalStatus) (int64, error) {
	if len(statuses) == 0 {
		return 0, nil
	}
	var sum int64
	err := r.db.WithContext(ctx).Model(&model.WithdrawalRequest{}).
		Where("influencer_id = ? AND status IN ?", influencerID, statuses).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&sum).Error
	if err != nil {
		return 0, err
	}
	return sum, nil
}
