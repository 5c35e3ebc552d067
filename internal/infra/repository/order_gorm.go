package repository

import (
	"context"
	"errors"

	"badgeshop/internal/domain/model"
	repo "badgeshop/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderGormRepository struct {
	db *gorm.DB
}

func NewOrderGormRepository(db *gorm.DB) *OrderGormRepository {
	return &OrderGormRepository{db: db}
}

func (r *OrderGormRepository) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	return r.first(ctx, "id = ?", orderID)
}

func (r *OrderGormRepository) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (model.Order, error) {
	return r.first(ctx, "gateway_order_id = ?", gatewayOrderID)
}

// SELECT ... FOR UPDATE（sqliteでは無視されるが、接続が1本なので直列になる）
func (r *OrderGormRepository) FindByGatewayOrderIDForUpdate(ctx context.Context, gatewayOrderID string) (model.Order, error) {
	var o model.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("gateway_order_id = ?", gatewayOrderID).
		First(&o).Error
	return o, notFound(err)
}

func (r *OrderGormRepository) FindByProviderOrderID(ctx context.Context, gateway string, providerOrderID string) (model.Order, error) {
	return r.first(ctx, "gateway = ? AND provider_order_id = ?", gateway, providerOrderID)
}

func (r *OrderGormRepository) first(ctx context.Context, cond string, args ...interface{}) (model.Order, error) {
	var o model.Order
	err := r.db.WithContext(ctx).Where(cond, args...).First(&o).Error
	return o, notFound(err)
}

func (r *OrderGormRepository) FindByIdempotencyKey(ctx context.Context, userID int64, key string) (model.Order, bool, error) {
	o, err := r.first(ctx, "user_id = ? AND idempotency_key = ?", userID, key)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Order{}, false, nil
	}
	if err != nil {
		return model.Order{}, false, err
	}
	return o, true, nil
}

func (r *OrderGormRepository) ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error) {
	page, limit = normalizePage(page, limit, 20, 100)
	return r.list(r.db.WithContext(ctx).Model(&model.Order{}).Where("user_id = ?", userID), page, limit)
}

func (r *OrderGormRepository) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	page, limit := normalizePage(f.Page, f.Limit, 50, 100)

	q := r.db.WithContext(ctx).Model(&model.Order{}).Scopes(createdBetween(f.From, f.To))
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	if f.GatewayOrderID != "" {
		q = q.Where("gateway_order_id = ?", f.GatewayOrderID)
	}
	return r.list(q, page, limit)
}

// 新しい順
func (r *OrderGormRepository) list(q *gorm.DB, page, limit int) ([]model.Order, int64, error) {
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	orders := []model.Order{}
	if err := q.Order("id desc").Scopes(paginate(page, limit)).Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *OrderGormRepository) Create(ctx context.Context, order model.Order) (int64, error) {
	if err := r.db.WithContext(ctx).Create(&order).Error; err != nil {
		if isUniqueViolation(err) {
			return 0, repo.ErrConflict
		}
		return 0, err
	}
	return order.ID, nil
}

func (r *OrderGormRepository) SetProviderSession(ctx context.Context, orderID int64, providerOrderID string, sessionID string) error {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]interface{}{
			"provider_order_id":  providerOrderID,
			"payment_session_id": sessionID,
		})
	return affected(res)
}

func (r *OrderGormRepository) MarkPaid(ctx context.Context, orderID int64, u repo.OrderPaidUpdate) error {
	return r.fromPending(ctx, orderID, map[string]interface{}{
		"status":             model.OrderStatusSuccess,
		"gateway_payment_id": u.GatewayPaymentID,
		"payment_method":     u.PaymentMethod,
		"invoice_id":         u.InvoiceID,
		"paid_at":            u.PaidAt,
	})
}

func (r *OrderGormRepository) MarkFailed(ctx context.Context, orderID int64, gatewayPaymentID string) error {
	return r.fromPending(ctx, orderID, map[string]interface{}{
		"status":             model.OrderStatusFailed,
		"gateway_payment_id": gatewayPaymentID,
	})
}

// PENDINGの行だけ更新する。終端済みならErrNotFound
func (r *OrderGormRepository) fromPending(ctx context.Context, orderID int64, updates map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND status = ?", orderID, model.OrderStatusPending).
		Updates(updates)
	return affected(res)
}
