package usecase

import (
	"errors"
	"fmt"
	"net/http"

	repo "badgeshop/internal/repository"
)

var (
	// validatorが返すエラーはこれをラップする（400）
	ErrValidation = errors.New("validation error")
	// 409
	ErrConflict = errors.New("conflict")
)

// HTTPError はhandlerがそのままステータスとメッセージに変換する。
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{Status: status, Message: message}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

// repo.ErrNotFound は404、それ以外は500
func storeError(err error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return NewHTTPError(http.StatusNotFound, "not found")
	}
	return NewHTTPError(http.StatusInternalServerError, "db error")
}
