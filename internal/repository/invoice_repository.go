package repository

import (
	"context"

	"badgeshop/internal/domain/model"
)

type InvoiceRepository interface {
	// order_id重複は ErrConflict
	Create(ctx context.Context, inv model.Invoice) (model.Invoice, error)
	FindByID(ctx context.Context, invoiceID int64) (model.Invoice, error)
	FindByOrderID(ctx context.Context, orderID int64) (model.Invoice, error)
}

type UserOrderRepository interface {
	Create(ctx context.Context, uo model.UserOrder) error
}
