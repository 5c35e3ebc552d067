package usecase

import (
	"context"
	"errors"
	"net/http"

	"badgeshop/internal/domain/model"
	repo "badgeshop/internal/repository"
)

const (
	// 1行あたりの上限（受注生産のロット上限）
	maxCartLineQuantity int64 = 500
	maxSyncLines              = 100
)

type CartUsecase struct {
	carts    repo.CartRepository
	items    repo.CartItemRepository
	products repo.ProductRepository
}

func NewCartUsecase(carts repo.CartRepository, items repo.CartItemRepository, products repo.ProductRepository) *CartUsecase {
	return &CartUsecase{carts: carts, items: items, products: products}
}

// Priceは追加時点の単価
type CartItemResponse struct {
	ID        int64  `json:"id"`
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	ImageURL  string `json:"image_url"`
	Price     int64  `json:"price"`
	Quantity  int64  `json:"quantity"`
	LineTotal int64  `json:"line_total"`
}

type CartResponse struct {
	Items     []CartItemResponse `json:"items"`
	ItemCount int64              `json:"item_count"`
	Total     int64              `json:"total"`
}

type AddCartInput struct {
	ProductID int64
	Quantity  int64
}

type UpdateCartItemInput struct {
	Quantity int64
}

// ログイン前にクライアントで持っていたカートの1行
type SyncCartItem struct {
	ProductID int64
	Quantity  int64
}

// GetCart はACTIVEカートを返す。無ければ空のカートを作る。
func (u *CartUsecase) GetCart(ctx context.Context, userID int64) (CartResponse, error) {
	cart, err := u.activeCart(ctx, userID)
	if err != nil {
		return CartResponse{}, err
	}
	return u.view(ctx, cart.ID)
}

// AddToCart は同じ商品なら数量を足す。
func (u *CartUsecase) AddToCart(ctx context.Context, userID int64, in AddCartInput) (CartResponse, error) {
	if in.ProductID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}
	if in.Quantity < 1 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid quantity")
	}
	cart, err := u.activeCart(ctx, userID)
	if err != nil {
		return CartResponse{}, err
	}
	p, err := u.sellable(ctx, in.ProductID)
	if err != nil {
		return CartResponse{}, err
	}

	lines, err := u.items.ListByCartID(ctx, cart.ID)
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	for _, l := range lines {
		if l.ProductID == p.ID && l.Quantity+in.Quantity > maxCartLineQuantity {
			return CartResponse{}, NewHTTPError(http.StatusBadRequest, "quantity too large")
		}
	}
	if in.Quantity > maxCartLineQuantity {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "quantity too large")
	}

	if err := u.items.AddQuantity(ctx, cart.ID, p.ID, in.Quantity, p.Price); err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return u.view(ctx, cart.ID)
}

func (u *CartUsecase) UpdateCartItem(ctx context.Context, userID int64, itemID int64, in UpdateCartItemInput) (CartResponse, error) {
	if in.Quantity < 1 || in.Quantity > maxCartLineQuantity {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid quantity")
	}
	item, err := u.ownedItem(ctx, userID, itemID)
	if err != nil {
		return CartResponse{}, err
	}
	// 非公開になった商品は数量変更させない
	if _, err := u.sellable(ctx, item.ProductID); err != nil {
		return CartResponse{}, err
	}

	if err := u.items.SetQuantity(ctx, item.ID, in.Quantity); err != nil {
		return CartResponse{}, storeError(err)
	}
	return u.view(ctx, item.CartID)
}

func (u *CartUsecase) DeleteCartItem(ctx context.Context, userID int64, itemID int64) (CartResponse, error) {
	item, err := u.ownedItem(ctx, userID, itemID)
	if err != nil {
		return CartResponse{}, err
	}
	if err := u.items.Delete(ctx, item.ID); err != nil {
		return CartResponse{}, storeError(err)
	}
	return u.view(ctx, item.CartID)
}

// SyncCart はサーバー側のカートをクライアントの内容で置き換える。
// 不明・非公開の商品は黙って捨て、数量は上限で丸める。
func (u *CartUsecase) SyncCart(ctx context.Context, userID int64, lines []SyncCartItem) (CartResponse, error) {
	if len(lines) > maxSyncLines {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "too many items")
	}
	cart, err := u.activeCart(ctx, userID)
	if err != nil {
		return CartResponse{}, err
	}
	if err := u.carts.Clear(ctx, cart.ID); err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	for _, l := range lines {
		if l.ProductID <= 0 || l.Quantity < 1 {
			continue
		}
		p, err := u.sellable(ctx, l.ProductID)
		if he, ok := AsHTTPError(err); ok && he.Status == http.StatusBadRequest {
			continue
		}
		if err != nil {
			return CartResponse{}, err
		}
		if err := u.items.AddQuantity(ctx, cart.ID, p.ID, min(l.Quantity, maxCartLineQuantity), p.Price); err != nil {
			return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
	}
	return u.view(ctx, cart.ID)
}

func (u *CartUsecase) activeCart(ctx context.Context, userID int64) (model.Cart, error) {
	if userID <= 0 {
		return model.Cart{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	cart, err := u.carts.GetOrCreateActiveByUserID(ctx, userID)
	if err != nil {
		return model.Cart{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return cart, nil
}

func (u *CartUsecase) ownedItem(ctx context.Context, userID, itemID int64) (model.CartItem, error) {
	if userID <= 0 {
		return model.CartItem{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if itemID <= 0 {
		return model.CartItem{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	item, err := u.items.FindOwned(ctx, itemID, userID)
	if err != nil {
		return model.CartItem{}, storeError(err)
	}
	return item, nil
}

// 公開中の商品だけカートに入れられる
func (u *CartUsecase) sellable(ctx context.Context, productID int64) (model.Product, error) {
	p, err := u.products.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) || (err == nil && !p.IsActive) {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "product unavailable")
	}
	if err != nil {
		return model.Product{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return p, nil
}

// 表示用。非公開になった商品の行は合計から外す
func (u *CartUsecase) view(ctx context.Context, cartID int64) (CartResponse, error) {
	lines, err := u.items.ListByCartID(ctx, cartID)
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	out := CartResponse{Items: make([]CartItemResponse, 0, len(lines))}
	for _, l := range lines {
		p, err := u.products.FindByID(ctx, l.ProductID)
		if err != nil || !p.IsActive {
			continue
		}
		out.Items = append(out.Items, CartItemResponse{
			ID:        l.ID,
			ProductID: l.ProductID,
			Name:      p.Name,
			ImageURL:  p.ImageURL,
			Price:     l.UnitPriceSnapshot,
			Quantity:  l.Quantity,
			LineTotal: l.LineTotal(),
		})
		out.ItemCount += l.Quantity
		out.Total += l.LineTotal()
	}
	return out, nil
}
