package repository

import "context"

// トランザクション内で使う約束
type TxRepos interface {
	Users() UserRepository
	Products() ProductRepository
	Carts() CartRepository
	CartItems() CartItemRepository
	Orders() OrderRepository
	OrderItems() OrderItemRepository
	Invoices() InvoiceRepository
	UserOrders() UserOrderRepository
	Promos() PromoRepository
	Earnings() InfluencerEarningRepository
	Withdrawals() WithdrawalRepository
	AuditLogs() AuditLogRepository
}

// UsecaseからTxの開始/commit/rollbackを隠す。
type TransactionManager interface {
	WithinTx(ctx context.Context, fn func(r TxRepos) error) error
}
