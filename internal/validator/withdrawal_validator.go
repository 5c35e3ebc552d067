package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"badgeshop/internal/domain/model"
	"badgeshop/internal/usecase"
)

var ErrInvalidWithdrawalDetails = errors.New("invalid withdrawal details")

var (
	upiRe  = regexp.MustCompile(`^[a-zA-Z0-9._-]{2,256}@[a-zA-Z]{2,64}$`)
	ifscRe = regexp.MustCompile(`^[A-Z]{4}0[A-Z0-9]{6}$`)
	acctRe = regexp.MustCompile(`^\d{9,18}$`)
)

// 出金方法ごとの必須キー
var withdrawalDetailKeys = map[model.WithdrawalMethod][]string{
	model.WithdrawalMethodUPI:          {"upi_id"},
	model.WithdrawalMethodBankTransfer: {"account_holder_name", "account_number", "ifsc_code"},
	model.WithdrawalMethodPaytm:        {"paytm_number"},
}

type withdrawalValidator struct{}

func NewWithdrawalValidator() usecase.WithdrawalValidator {
	return withdrawalValidator{}
}

func (withdrawalValidator) ValidateWithdrawal(method model.WithdrawalMethod, details map[string]any) error {
	keys, ok := withdrawalDetailKeys[method]
	if !ok {
		return fmt.Errorf("%w: method", ErrInvalidWithdrawalDetails)
	}

	vals := make(map[string]string, len(keys))
	for _, k := range keys {
		s, _ := details[k].(string)
		s = strings.TrimSpace(s)
		if s == "" {
			return fmt.Errorf("%w: %s required", ErrInvalidWithdrawalDetails, k)
		}
		vals[k] = s
	}

	switch method {
	case model.WithdrawalMethodUPI:
		if !upiRe.MatchString(vals["upi_id"]) {
			return fmt.Errorf("%w: upi_id", ErrInvalidWithdrawalDetails)
		}
	case model.WithdrawalMethodBankTransfer:
		if !acctRe.MatchString(vals["account_number"]) {
			return fmt.Errorf("%w: account_number", ErrInvalidWithdrawalDetails)
		}
		if !ifscRe.MatchString(strings.ToUpper(vals["ifsc_code"])) {
			return fmt.Errorf("%w: ifsc_code", ErrInvalidWithdrawalDetails)
		}
	case model.WithdrawalMethodPaytm:
		if !phoneRe.MatchString(vals["paytm_number"]) {
			return fmt.Errorf("%w: paytm_number", ErrInvalidWithdrawalDetails)
		}
	}
	return nil
}
