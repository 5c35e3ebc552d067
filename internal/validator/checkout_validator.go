package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"badgeshop/internal/domain/model"
	"badgeshop/internal/usecase"
)

var ErrInvalidAddress = errors.New("invalid address")

// 10〜15桁の数字のみ
var phoneRe = regexp.MustCompile(`^\d{10,15}$`)

type checkoutValidator struct{}

func NewCheckoutValidator() usecase.CheckoutValidator {
	return checkoutValidator{}
}

func (checkoutValidator) ValidateShippingAddress(a model.ShippingAddress) error {
	required := []struct {
		field string
		value string
	}{
		{"name", a.Name},
		{"email", a.Email},
		{"phone", a.Phone},
		{"line1", a.Line1},
		{"city", a.City},
		{"state", a.State},
		{"postal_code", a.PostalCode},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%w: %s required", ErrInvalidAddress, f.field)
		}
	}
	if !isEmailLike(strings.TrimSpace(a.Email)) {
		return fmt.Errorf("%w: email", ErrInvalidAddress)
	}
	if !phoneRe.MatchString(strings.TrimSpace(a.Phone)) {
		return fmt.Errorf("%w: phone", ErrInvalidAddress)
	}
	return nil
}
