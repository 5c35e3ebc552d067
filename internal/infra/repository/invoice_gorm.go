package repository

import (
	"context"
	"errors"

	"badgeshop/internal/domain/model"
	repo "badgeshop/internal/repository"

	"gorm.io/gorm"
)

type InvoiceGormRepository struct {
	db *gorm.DB
}

func NewInvoiceGormRepository(db *gorm.DB) *InvoiceGormRepository {
	return &InvoiceGormRepository{db: db}
}

// order_idはunique。二重発行はErrConflict
func (r *InvoiceGormRepository) Create(ctx context.Context, inv model.Invoice) (model.Invoice, error) {
	if err := r.db.WithContext(ctx).Create(&inv).Error; err != nil {
		if isUniqueViolation(err) {
			return model.Invoice{}, repo.ErrConflict
		}
		return model.Invoice{}, err
	}
	return inv, nil
}

func (r *InvoiceGormRepository) FindByID(ctx context.Context, invoiceID int64) (model.Invoice, error) {
	var inv model.Invoice
	err := r.db.WithContext(ctx).Where("id = ?", invoiceID).First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Invoice{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Invoice{}, err
	}
	return inv, nil
}

func (r *InvoiceGormRepository) FindByOrderID(ctx context.Context, orderID int64) (model.Invoice, error) {
	var inv model.Invoice
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Invoice{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Invoice{}, err
	}
	return inv, nil
}

type UserOrderGormRepository struct {
	db *gorm.DB
}

func NewUserOrderGormRepository(db *gorm.DB) *UserOrderGormRepository {
	return &UserOrderGormRepository{db: db}
}

func (r *UserOrderGormRepository) Create(ctx context.Context, uo model.UserOrder) error {
	if err := r.db.WithContext(ctx).Create(&uo).Error; err != nil {
		if isUniqueViolation(err) {
			return repo.ErrConflict
		}
		return err
	}
	return nil
}
