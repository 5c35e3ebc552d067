package validator

import (
	"context"
	"errors"
	"testing"

	"badgeshop/internal/domain/model"
	"badgeshop/internal/repository"
	"badgeshop/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// FindByEmailだけ使う
type mockUserRepository struct {
	repository.UserRepository
	mock.Mock
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func TestValidateRegister(t *testing.T) {
	users := &mockUserRepository{}
	users.On("FindByEmail", mock.Anything, "taken@example.com").Return(&model.User{ID: 1}, nil)
	users.On("FindByEmail", mock.Anything, mock.Anything).Return(nil, nil)
	v := NewAuthValidator(users)
	ctx := context.Background()

	assert.NoError(t, v.ValidateRegister(ctx, "new@example.com", "password123"))

	err := v.ValidateRegister(ctx, "taken@example.com", "password123")
	assert.ErrorIs(t, err, ErrEmailAlreadyUsed)
	assert.ErrorIs(t, err, usecase.ErrConflict)

	for _, tc := range []struct {
		name     string
		email    string
		password string
	}{
		{"empty email", "", "password123"},
		{"bad email", "not-an-email", "password123"},
		{"short password", "a@example.com", "1234567"},
		{"long password", "a@example.com", string(make([]byte, 73))},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := v.ValidateRegister(ctx, tc.email, tc.password)
			assert.ErrorIs(t, err, usecase.ErrValidation)
		})
	}
}

func TestValidateRegisterInfluencer_Handle(t *testing.T) {
	users := &mockUserRepository{}
	users.On("FindByEmail", mock.Anything, mock.Anything).Return(nil, nil)
	v := NewAuthValidator(users)
	ctx := context.Background()

	assert.NoError(t, v.ValidateRegisterInfluencer(ctx, "a@example.com", "password123", "asha.creates"))
	assert.ErrorIs(t, v.ValidateRegisterInfluencer(ctx, "a@example.com", "password123", "ab"), ErrInvalidInput)
	assert.ErrorIs(t, v.ValidateRegisterInfluencer(ctx, "a@example.com", "password123", "has space"), ErrInvalidInput)
}

func TestValidateResetPassword(t *testing.T) {
	v := NewAuthValidator(&mockUserRepository{})
	ctx := context.Background()

	assert.NoError(t, v.ValidateResetPassword(ctx, "tok", "password123"))
	assert.ErrorIs(t, v.ValidateResetPassword(ctx, " ", "password123"), ErrInvalidInput)
	assert.ErrorIs(t, v.ValidateResetPassword(ctx, "tok", "short"), ErrInvalidInput)
	assert.ErrorIs(t, v.ValidateForgotPassword(ctx, "nope"), ErrInvalidInput)
	assert.ErrorIs(t, v.ValidateForceLogout(ctx, 0), ErrInvalidInput)
}

func TestValidateShippingAddress(t *testing.T) {
	v := NewCheckoutValidator()
	ok := model.ShippingAddress{
		Name:       "Asha Rao",
		Email:      "asha@example.com",
		Phone:      "9876543210",
		Line1:      "12 MG Road",
		City:       "Pune",
		State:      "MH",
		PostalCode: "411001",
	}
	assert.NoError(t, v.ValidateShippingAddress(ok))

	// 最初に欠けている項目を返す
	missing := ok
	missing.City = ""
	missing.PostalCode = ""
	err := v.ValidateShippingAddress(missing)
	assert.ErrorIs(t, err, ErrInvalidAddress)
	assert.EqualError(t, err, "invalid address: city required")

	badPhone := ok
	badPhone.Phone = "98765-43210"
	assert.EqualError(t, v.ValidateShippingAddress(badPhone), "invalid address: phone")

	badEmail := ok
	badEmail.Email = "asha@"
	assert.EqualError(t, v.ValidateShippingAddress(badEmail), "invalid address: email")
}

func TestValidateWithdrawal(t *testing.T) {
	v := NewWithdrawalValidator()

	tests := []struct {
		name    string
		method  model.WithdrawalMethod
		details map[string]any
		wantErr string
	}{
		{"upi ok", model.WithdrawalMethodUPI, map[string]any{"upi_id": "asha@okbank"}, ""},
		{"upi bad", model.WithdrawalMethodUPI, map[string]any{"upi_id": "asha"}, "invalid withdrawal details: upi_id"},
		{"bank ok", model.WithdrawalMethodBankTransfer, map[string]any{
			"account_holder_name": "Asha Rao",
			"account_number":      "123456789012",
			"ifsc_code":           "hdfc0001234",
		}, ""},
		{"bank missing holder", model.WithdrawalMethodBankTransfer, map[string]any{
			"account_number": "123456789012",
			"ifsc_code":      "HDFC0001234",
		}, "invalid withdrawal details: account_holder_name required"},
		{"bank bad ifsc", model.WithdrawalMethodBankTransfer, map[string]any{
			"account_holder_name": "Asha Rao",
			"account_number":      "123456789012",
			"ifsc_code":           "HDFC1001234",
		}, "invalid withdrawal details: ifsc_code"},
		{"paytm ok", model.WithdrawalMethodPaytm, map[string]any{"paytm_number": "9876543210"}, ""},
		{"paytm not string", model.WithdrawalMethodPaytm, map[string]any{"paytm_number": 9876543210}, "invalid withdrawal details: paytm_number required"},
		{"unknown method", model.WithdrawalMethod("cash"), map[string]any{}, "invalid withdrawal details: method"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := v.ValidateWithdrawal(tc.method, tc.details)
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, ErrInvalidWithdrawalDetails))
			assert.EqualError(t, err, tc.wantErr)
		})
	}
}
