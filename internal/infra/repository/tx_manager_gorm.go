package repository

import (
	"context"

	repo "badgeshop/internal/repository"

	"gorm.io/gorm"
)

type txReposGorm struct {
	users       repo.UserRepository
	products    repo.ProductRepository
	carts       repo.CartRepository
	cartItems   repo.CartItemRepository
	orders      repo.OrderRepository
	orderItems  repo.OrderItemRepository
	invoices    repo.InvoiceRepository
	userOrders  repo.UserOrderRepository
	promos      repo.PromoRepository
	earnings    repo.InfluencerEarningRepository
	withdrawals repo.WithdrawalRepository
	auditLogs   repo.AuditLogRepository
}

func (r *txReposGorm) Users() repo.UserRepository                  { return r.users }
func (r *txReposGorm) Products() repo.ProductRepository            { return r.products }
func (r *txReposGorm) Carts() repo.CartRepository                  { return r.carts }
func (r *txReposGorm) CartItems() repo.CartItemRepository          { return r.cartItems }
func (r *txReposGorm) Orders() repo.OrderRepository                { return r.orders }
func (r *txReposGorm) OrderItems() repo.OrderItemRepository        { return r.orderItems }
func (r *txReposGorm) Invoices() repo.InvoiceRepository            { return r.invoices }
func (r *txReposGorm) UserOrders() repo.UserOrderRepository        { return r.userOrders }
func (r *txReposGorm) Promos() repo.PromoRepository                { return r.promos }
func (r *txReposGorm) Earnings() repo.InfluencerEarningRepository  { return r.earnings }
func (r *txReposGorm) Withdrawals() repo.WithdrawalRepository      { return r.withdrawals }
func (r *txReposGorm) AuditLogs() repo.AuditLogRepository          { return r.auditLogs }

type TxManagerGorm struct {
	db *gorm.DB
}

func NewTxManagerGorm(db *gorm.DB) *TxManagerGorm {
	return &TxManagerGorm{db: db}
}

func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//repoはtxを持ったDBで作り直す
		cart := NewCartGormRepository(tx)
		r := &txReposGorm{
			users:       NewUserGormRepository(tx),
			products:    NewProductGormRepository(tx),
			carts:       cart,
			cartItems:   cart,
			orders:      NewOrderGormRepository(tx),
			orderItems:  NewOrderItemGormRepository(tx),
			invoices:    NewInvoiceGormRepository(tx),
			userOrders:  NewUserOrderGormRepository(tx),
			promos:      NewPromoGormRepository(tx),
			earnings:    NewInfluencerEarningGormRepository(tx),
			withdrawals: NewWithdrawalGormRepository(tx),
			auditLogs:   NewAuditLogGormRepository(tx),
		}
		return fn(r)
	})
}
