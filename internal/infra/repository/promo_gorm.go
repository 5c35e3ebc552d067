package repository

import (
	"context"
	"errors"
	"strings"

	"badgeshop/internal/domain/model"
	repo "badgeshop/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PromoGormRepository struct {
	db *gorm.DB
}

func NewPromoGormRepository(db *gorm.DB) *PromoGormRepository {
	return &PromoGormRepository{db: db}
}

func (r *PromoGormRepository) FindByID(ctx context.Context, id int64) (model.PromoCode, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *PromoGormRepository) FindByCode(ctx context.Context, code string) (model.PromoCode, error) {
	return r.first(r.db.WithContext(ctx).Where("code = ?", code))
}

// 注文確定時はこの行ロックでused_countの競合を防ぐ
func (r *PromoGormRepository) FindActiveByCodeForUpdate(ctx context.Context, code string) (model.PromoCode, error) {
	return r.first(r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("code = ? AND is_active = ?", code, true))
}

func (r *PromoGormRepository) first(q *gorm.DB) (model.PromoCode, error) {
	var p model.PromoCode
	err := q.First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.PromoCode{}, repo.ErrNotFound
	}
	if err != nil {
		return model.PromoCode{}, err
	}
	return p, nil
}

func (r *PromoGormRepository) Create(ctx context.Context, p model.PromoCode) (model.PromoCode, error) {
	if err := r.db.WithContext(ctx).Create(&p).Error; err != nil {
		if isUniqueViolation(err) {
			return model.PromoCode{}, repo.ErrConflict
		}
		return model.PromoCode{}, err
	}
	return p, nil
}

// 管理画面から変更できる項目だけ更新（used_count/集計値は触らない）
func (r *PromoGormRepository) Update(ctx context.Context, p model.PromoCode) error {
	res := r.db.WithContext(ctx).Model(&model.PromoCode{}).Where("id = ?", p.ID).Updates(map[string]interface{}{
		"description":      p.Description,
		"discount_type":    p.DiscountType,
		"discount_value":   p.DiscountValue,
		"min_order_amount": p.MinOrderAmount,
		"max_discount":     p.MaxDiscount,
		"usage_limit":      p.UsageLimit,
		"valid_from":       p.ValidFrom,
		"valid_until":      p.ValidUntil,
		"is_active":        p.IsActive,
		"earning_per_unit": p.EarningPerUnit,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *PromoGormRepository) List(ctx context.Context, f repo.PromoListFilter) ([]model.PromoCode, int64, error) {
	page, limit := normalizePage(f.Page, f.Limit, 50, 100)

	q := r.db.WithContext(ctx).Model(&model.PromoCode{})
	if s := strings.TrimSpace(f.Q); s != "" {
		q = q.Where("code LIKE ?", "%"+strings.ToUpper(s)+"%")
	}
	if f.PromoType != "" {
		q = q.Where("promo_type = ?", f.PromoType)
	}
	if f.IsActive != nil {
		q = q.Where("is_active = ?", *f.IsActive)
	}
	if f.InfluencerID != nil {
		q = q.Where("influencer_id = ?", *f.InfluencerID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return []model.PromoCode{}, 0, err
	}

	var items []model.PromoCode
	if err := q.Order("id desc").Limit(limit).Offset((page - 1) * limit).Find(&items).Error; err != nil {
		return []model.PromoCode{}, 0, err
	}
	return items, total, nil
}

// 条件付き加算。上限に達していたら0件更新でfalse
func (r *PromoGormRepository) IncrementUsage(ctx context.Context, promoID int64) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.PromoCode{}).
		Where("id = ? AND (usage_limit IS NULL OR used_count < usage_limit)", promoID).
		UpdateColumn("used_count", gorm.Expr("used_count + ?", 1))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *PromoGormRepository) AddTotals(ctx context.Context, promoID int64, earningDelta int64, unitsDelta int64) error {
	res := r.db.WithContext(ctx).Model(&model.PromoCode{}).
		Where("id = ?", promoID).
		UpdateColumns(map[string]interface{}{
			"total_earnings": gorm.Expr("total_earnings + ?", earningDelta),
			"total_units":    gorm.Expr("total_units + ?", unitsDelta),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *PromoGormRepository) CreateUsage(ctx context.Context, u model.PromoUsage) error {
	if err := r.db.WithContext(ctx).Create(&u).Error; err != nil {
		if isUniqueViolation(err) {
			return repo.ErrConflict
		}
		return err
	}
	return nil
}

func (r *PromoGormRepository) UpdateUsageEarning(ctx context.Context, promoID int64, orderID int64, units int64, earning int64) error {
	res := r.db.WithContext(ctx).Model(&model.PromoUsage{}).
		Where("promo_code_id = ? AND order_id = ?", promoID, orderID).
		UpdateColumns(map[string]interface{}{
			"units":   units,
			"earning": earning,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *PromoGormRepository) ListUsages(ctx context.Context, promoID int64, page int, limit int) ([]model.PromoUsage, int64, error) {
	page, limit = normalizePage(page, limit, 50, 200)

	q := r.db.WithContext(ctx).Model(&model.PromoUsage{}).Where("promo_code_id = ?", promoID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return []model.PromoUsage{}, 0, err
	}

	var items []model.PromoUsage
	if err := q.Order("id desc").Limit(limit).Offset((page - 1) * limit).Find(&items).Error; err != nil {
		return []model.PromoUsage{}, 0, err
	}
	return items, total, nil
}
