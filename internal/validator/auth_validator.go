package validator

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"badgeshop/internal/repository"
	"badgeshop/internal/usecase"
)

var (
	ErrInvalidInput     = fmt.Errorf("invalid input: %w", usecase.ErrValidation)
	ErrEmailAlreadyUsed = fmt.Errorf("email already used: %w", usecase.ErrConflict)
)

const (
	minPasswordLen = 8
	// bcryptは72バイトまで
	maxPasswordLen = 72
)

var (
	emailRe  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	handleRe = regexp.MustCompile(`^[a-zA-Z0-9_.]{3,30}$`)
)

func isEmailLike(s string) bool {
	return emailRe.MatchString(s)
}

// FieldError はどの項目が不正かを持つ。errors.Is で ErrInvalidInput / usecase.ErrValidation に一致する
type FieldError struct {
	Field string
}

func (e *FieldError) Error() string { return "invalid " + e.Field }

func (e *FieldError) Is(target error) bool {
	return target == ErrInvalidInput || errors.Is(ErrInvalidInput, target)
}

func invalid(field string) error {
	return &FieldError{Field: field}
}

func checkEmail(email string) error {
	if !isEmailLike(strings.TrimSpace(email)) {
		return invalid("email")
	}
	return nil
}

func checkPassword(pw string) error {
	if len(pw) < minPasswordLen || len(pw) > maxPasswordLen {
		return invalid("password (8-72 characters)")
	}
	return nil
}

type authValidator struct {
	users repository.UserRepository
}

func NewAuthValidator(users repository.UserRepository) usecase.AuthValidator {
	return &authValidator{users: users}
}

// ValidateRegister は形式チェックのあとemailの重複をDBで確認する。
func (v *authValidator) ValidateRegister(ctx context.Context, email string, password string) error {
	if err := checkEmail(email); err != nil {
		return err
	}
	if err := checkPassword(password); err != nil {
		return err
	}
	u, err := v.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err == nil && u != nil {
		return ErrEmailAlreadyUsed
	}
	return nil
}

func (v *authValidator) ValidateRegisterInfluencer(ctx context.Context, email string, password string, handle string) error {
	if !handleRe.MatchString(strings.TrimSpace(handle)) {
		return invalid("handle")
	}
	return v.ValidateRegister(ctx, email, password)
}

// ログインはパスワード長を見ない（旧ポリシーのユーザーも通す）
func (v *authValidator) ValidateLogin(ctx context.Context, email string, password string) error {
	if password == "" {
		return invalid("password")
	}
	return checkEmail(email)
}

func (v *authValidator) ValidateForceLogout(ctx context.Context, targetUserID int64) error {
	if targetUserID <= 0 {
		return invalid("user_id")
	}
	return nil
}

func (v *authValidator) ValidateForgotPassword(ctx context.Context, email string) error {
	return checkEmail(email)
}

func (v *authValidator) ValidateResetPassword(ctx context.Context, token string, newPassword string) error {
	if strings.TrimSpace(token) == "" {
		return invalid("token")
	}
	return checkPassword(newPassword)
}
