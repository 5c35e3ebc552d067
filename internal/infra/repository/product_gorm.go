package repository

import (
	"context"
	"errors"
	"strings"

	"badgeshop/internal/domain/model"
	repo "badgeshop/internal/repository"

	"gorm.io/gorm"
)

type ProductGormRepository struct {
	db *gorm.DB
}

func NewProductGormRepository(db *gorm.DB) *ProductGormRepository {
	return &ProductGormRepository{db: db}
}

var productOrders = map[string]string{
	"price_asc":  "price asc, id asc",
	"price_desc": "price desc, id desc",
	"name":       "name asc, id asc",
}

// 公開中（is_active）かつ検索条件に合うもの。論理削除済みはgormが除外する
func publicProductFilter(q repo.ProductListQuery) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Where("is_active = ?", true)
		if kw := strings.ToLower(strings.TrimSpace(q.Q)); kw != "" {
			like := "%" + kw + "%"
			db = db.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", like, like)
		}
		if q.Category != "" {
			db = db.Where("category = ?", q.Category)
		}
		if q.MinPrice != nil {
			db = db.Where("price >= ?", *q.MinPrice)
		}
		if q.MaxPrice != nil {
			db = db.Where("price <= ?", *q.MaxPrice)
		}
		return db
	}
}

func (r *ProductGormRepository) ListPublic(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	base := r.db.WithContext(ctx).Model(&model.Product{}).Scopes(publicProductFilter(q))

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order, ok := productOrders[q.Sort]
	if !ok {
		order = "created_at desc, id desc"
	}
	products := []model.Product{}
	if err := base.Order(order).Scopes(paginate(q.Page, q.Limit)).Find(&products).Error; err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *ProductGormRepository) FindByID(ctx context.Context, id int64) (model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Product{}, repo.ErrNotFound
	}
	return p, err
}

func (r *ProductGormRepository) Create(ctx context.Context, p model.Product) (model.Product, error) {
	if err := r.db.WithContext(ctx).Create(&p).Error; err != nil {
		return model.Product{}, err
	}
	return p, nil
}

// Selectで列を明示してfalse/0も更新する
func (r *ProductGormRepository) Update(ctx context.Context, p model.Product) error {
	res := r.db.WithContext(ctx).
		Model(&model.Product{ID: p.ID}).
		Select("name", "description", "category", "price", "image_url", "is_active").
		Updates(&p)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *ProductGormRepository) SoftDelete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&model.Product{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
