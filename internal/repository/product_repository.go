package repository

import (
	"badgeshop/internal/domain/model"
	"context"
)

// ListPublic の条件。Sortは new / price_asc / price_desc / name
type ProductListQuery struct {
	Page     int
	Limit    int
	Q        string
	Category string
	MinPrice *int64
	MaxPrice *int64
	Sort     string
}

type ProductRepository interface {
	ListPublic(ctx context.Context, q ProductListQuery) ([]model.Product, int64, error)
	// 非公開も返す（公開判定はusecase）
	FindByID(ctx context.Context, id int64) (model.Product, error)
	Create(ctx context.Context, p model.Product) (model.Product, error)
	Update(ctx context.Context, p model.Product) error
	SoftDelete(ctx context.Context, id int64) error
}
