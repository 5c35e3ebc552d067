package usecase

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"badgeshop/internal/domain/model"
	repo "badgeshop/internal/repository"
)

var productSorts = map[string]bool{"": true, "new": true, "price_asc": true, "price_desc": true, "name": true}

type ProductUsecase struct {
	products repo.ProductRepository
	audit    repo.AuditLogRepository
	cache    ProductCache
	log      *slog.Logger
}

// cacheがnilならキャッシュしない
func NewProductUsecase(products repo.ProductRepository, audit repo.AuditLogRepository, cache ProductCache, log *slog.Logger) *ProductUsecase {
	if cache == nil {
		cache = noProductCache{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &ProductUsecase{products: products, audit: audit, cache: cache, log: log}
}

type ListProductsInput struct {
	Page     int
	Limit    int
	Q        string
	Category string
	MinPrice *int64
	MaxPrice *int64
	Sort     string
}

func (in ListProductsInput) validate() error {
	switch {
	case in.Page < 1:
		return NewHTTPError(http.StatusBadRequest, "invalid page")
	case in.Limit < 1 || in.Limit > 100:
		return NewHTTPError(http.StatusBadRequest, "invalid limit")
	case len(in.Q) > 100:
		return NewHTTPError(http.StatusBadRequest, "q too long")
	case in.MinPrice != nil && *in.MinPrice < 0, in.MaxPrice != nil && *in.MaxPrice < 0:
		return NewHTTPError(http.StatusBadRequest, "price must be >= 0")
	case in.MinPrice != nil && in.MaxPrice != nil && *in.MinPrice > *in.MaxPrice:
		return NewHTTPError(http.StatusBadRequest, "min_price must be <= max_price")
	case !productSorts[in.Sort]:
		return NewHTTPError(http.StatusBadRequest, "invalid sort")
	}
	return nil
}

// 公開中の商品だけ
func (u *ProductUsecase) ListPublicProducts(ctx context.Context, in ListProductsInput) (ListOutput[model.Product], error) {
	if err := in.validate(); err != nil {
		return ListOutput[model.Product]{}, err
	}

	items, total, err := u.products.ListPublic(ctx, repo.ProductListQuery{
		Page:     in.Page,
		Limit:    in.Limit,
		Q:        strings.TrimSpace(in.Q),
		Category: strings.TrimSpace(in.Category),
		MinPrice: in.MinPrice,
		MaxPrice: in.MaxPrice,
		Sort:     in.Sort,
	})
	if err != nil {
		return ListOutput[model.Product]{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return ListOutput[model.Product]{Items: items, Total: total, Page: in.Page, Limit: in.Limit}, nil
}

// GetProductDetail はキャッシュ→DBの順に引く。非公開は404。
func (u *ProductUsecase) GetProductDetail(ctx context.Context, productID int64) (model.Product, error) {
	if productID <= 0 {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	p, hit, err := u.cache.Get(ctx, productID)
	if err != nil {
		u.log.WarnContext(ctx, "product cache get failed", slog.Int64("product_id", productID), slog.Any("err", err))
	}
	if !hit {
		p, err = u.products.FindByID(ctx, productID)
		if err != nil {
			return model.Product{}, storeError(err)
		}
		if err := u.cache.Set(ctx, p); err != nil {
			u.log.WarnContext(ctx, "product cache set failed", slog.Int64("product_id", productID), slog.Any("err", err))
		}
	}

	if !p.IsActive {
		return model.Product{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	return p, nil
}

type AdminProductInput struct {
	Name        string
	Description string
	Category    string
	Price       int64
	ImageURL    string
	IsActive    bool
}

func (in AdminProductInput) validate() error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return NewHTTPError(http.StatusBadRequest, "name required")
	case len(in.Name) > 255:
		return NewHTTPError(http.StatusBadRequest, "name too long")
	case in.Price < 0:
		return NewHTTPError(http.StatusBadRequest, "price must be >= 0")
	case len(in.ImageURL) > 500:
		return NewHTTPError(http.StatusBadRequest, "image_url too long")
	}
	return nil
}

// 入力をpへ反映する（IDや作成日時は触らない）
func (in AdminProductInput) applyTo(p *model.Product) {
	p.Name = strings.TrimSpace(in.Name)
	p.Description = in.Description
	p.Category = strings.TrimSpace(in.Category)
	p.Price = in.Price
	p.ImageURL = strings.TrimSpace(in.ImageURL)
	p.IsActive = in.IsActive
}

func (u *ProductUsecase) AdminCreateProduct(ctx context.Context, adminID int64, in AdminProductInput) (int64, error) {
	if adminID <= 0 {
		return 0, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if err := in.validate(); err != nil {
		return 0, err
	}

	var p model.Product
	in.applyTo(&p)
	p, err := u.products.Create(ctx, p)
	if err != nil {
		return 0, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if err := writeAudit(ctx, u.audit, adminID, model.AuditActionCreateProduct, model.AuditResourceProduct, p.ID, nil, p); err != nil {
		return 0, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return p.ID, nil
}

func (u *ProductUsecase) AdminUpdateProduct(ctx context.Context, adminID int64, productID int64, in AdminProductInput) error {
	if adminID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid product id")
	}
	if err := in.validate(); err != nil {
		return err
	}

	before, err := u.products.FindByID(ctx, productID)
	if err != nil {
		return storeError(err)
	}
	after := before
	in.applyTo(&after)

	if err := u.products.Update(ctx, after); err != nil {
		return storeError(err)
	}
	u.invalidate(ctx, productID)

	if err := writeAudit(ctx, u.audit, adminID, model.AuditActionUpdateProduct, model.AuditResourceProduct, productID, before, after); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

// 論理削除。注文済みの明細はスナップショットなので影響しない
func (u *ProductUsecase) AdminDeleteProduct(ctx context.Context, adminID int64, productID int64) error {
	if adminID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	if err := u.products.SoftDelete(ctx, productID); err != nil {
		return storeError(err)
	}
	u.invalidate(ctx, productID)

	if err := writeAudit(ctx, u.audit, adminID, model.AuditActionDeleteProduct, model.AuditResourceProduct, productID, nil, nil); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

func (u *ProductUsecase) invalidate(ctx context.Context, productID int64) {
	if err := u.cache.Invalidate(ctx, productID); err != nil {
		u.log.WarnContext(ctx, "product cache invalidate failed", slog.Int64("product_id", productID), slog.Any("err", err))
	}
}

type noProductCache struct{}

func (noProductCache) Get(context.Context, int64) (model.Product, bool, error) {
	return model.Product{}, false, nil
}
func (noProductCache) Set(context.Context, model.Product) error { return nil }
func (noProductCache) Invalidate(context.Context, int64) error  { return nil }
