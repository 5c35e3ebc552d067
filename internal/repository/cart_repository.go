package repository

import (
	"context"

	"badgeshop/internal/domain/model"
)

type CartRepository interface {
	GetOrCreateActiveByUserID(ctx context.Context, userID int64) (model.Cart, error)
	FindActiveByUserID(ctx context.Context, userID int64) (model.Cart, error)
	// 明細だけ消す（カートは残す）
	Clear(ctx context.Context, cartID int64) error
	// 明細を消してCHECKED_OUTにする
	CheckOut(ctx context.Context, cartID int64) error
}

type CartItemRepository interface {
	ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error)
	// 同じ商品の行があれば数量を足す。価格は最初に入れた時点のまま
	AddQuantity(ctx context.Context, cartID, productID, qty, unitPrice int64) error
	SetQuantity(ctx context.Context, itemID, qty int64) error
	Delete(ctx context.Context, itemID int64) error
	// 他人の明細はErrNotFound
	FindOwned(ctx context.Context, itemID, userID int64) (model.CartItem, error)
}
