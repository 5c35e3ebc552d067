package repository

import (
	"context"
	"errors"
	"time"

	"badgeshop/internal/domain/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var errNonPositiveQuantity = errors.New("quantity must be positive")

// carts / cart_items の両方を扱う
type CartGormRepository struct {
	db *gorm.DB
}

func NewCartGormRepository(db *gorm.DB) *CartGormRepository {
	return &CartGormRepository{db: db}
}

func activeCartOf(userID int64) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		return q.Where("user_id = ? AND status = ?", userID, model.CartStatusActive).Order("id desc")
	}
}

func (r *CartGormRepository) GetOrCreateActiveByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	var cart model.Cart
	err := r.db.WithContext(ctx).
		Scopes(activeCartOf(userID)).
		Attrs(model.Cart{UserID: userID, Status: model.CartStatusActive}).
		FirstOrCreate(&cart).Error
	if err != nil {
		return model.Cart{}, err
	}
	return cart, nil
}

func (r *CartGormRepository) FindActiveByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	var cart model.Cart
	err := r.db.WithContext(ctx).Scopes(activeCartOf(userID)).First(&cart).Error
	return cart, notFound(err)
}

func (r *CartGormRepository) Clear(ctx context.Context, cartID int64) error {
	return r.db.WithContext(ctx).Where("cart_id = ?", cartID).Delete(&model.CartItem{}).Error
}

func (r *CartGormRepository) CheckOut(ctx context.Context, cartID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := affected(tx.Model(&model.Cart{}).
			Where("id = ? AND status = ?", cartID, model.CartStatusActive).
			Update("status", model.CartStatusCheckedOut))
		if err != nil {
			return err
		}
		return tx.Where("cart_id = ?", cartID).Delete(&model.CartItem{}).Error
	})
}

func (r *CartGormRepository) ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error) {
	items := []model.CartItem{}
	if err := r.db.WithContext(ctx).Where("cart_id = ?", cartID).Order("id asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// (cart_id, product_id) のユニーク制約に当てて加算する
func (r *CartGormRepository) AddQuantity(ctx context.Context, cartID, productID, qty, unitPrice int64) error {
	if qty <= 0 {
		return errNonPositiveQuantity
	}
	item := model.CartItem{
		CartID:            cartID,
		ProductID:         productID,
		Quantity:          qty,
		UnitPriceSnapshot: unitPrice,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "cart_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity":   gorm.Expr("cart_items.quantity + ?", qty),
			"updated_at": time.Now(),
		}),
	}).Create(&item).Error
}

func (r *CartGormRepository) SetQuantity(ctx context.Context, itemID, qty int64) error {
	return affected(r.db.WithContext(ctx).Model(&model.CartItem{}).Where("id = ?", itemID).Update("quantity", qty))
}

func (r *CartGormRepository) Delete(ctx context.Context, itemID int64) error {
	return affected(r.db.WithContext(ctx).Delete(&model.CartItem{}, itemID))
}

// ACTIVEカートの明細のみ対象
func (r *CartGormRepository) FindOwned(ctx context.Context, itemID, userID int64) (model.CartItem, error) {
	var item model.CartItem
	err := r.db.WithContext(ctx).
		Joins("JOIN carts ON carts.id = cart_items.cart_id").
		Where("cart_items.id = ? AND carts.user_id = ? AND carts.status = ?", itemID, userID, model.CartStatusActive).
		Take(&item).Error
	return item, notFound(err)
}
