package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"badgeshop/internal/domain/model"
	repo "badgeshop/internal/repository"
)

type AdminOrderUsecase struct {
	tx         repo.TransactionManager
	settlement *SettlementUsecase
}

func NewAdminOrderUsecase(tx repo.TransactionManager, settlement *SettlementUsecase) *AdminOrderUsecase {
	return &AdminOrderUsecase{tx: tx, settlement: settlement}
}

type AdminUpdateOrderStatusInput struct {
	Status        string
	PaymentID     string
	PaymentMethod string
}

type AdminOrderListInput struct {
	Page           int
	Limit          int
	Status         string
	UserID         *int64
	GatewayOrderID string
	From           string
	To             string
}

// 注文一覧
func (u *AdminOrderUsecase) List(ctx context.Context, in AdminOrderListInput) (ListOutput[OrderOutput], error) {
	// page/limitの最低限チェック
	if in.Page < 1 {
		return ListOutput[OrderOutput]{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if in.Limit < 1 || in.Limit > 100 {
		return ListOutput[OrderOutput]{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}

	status := strings.ToUpper(strings.TrimSpace(in.Status))
	switch model.OrderStatus(status) {
	case "", model.OrderStatusPending, model.OrderStatusSuccess, model.OrderStatusFailed:
	default:
		return ListOutput[OrderOutput]{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	f := repo.AdminOrderListFilter{
		Page:           in.Page,
		Limit:          in.Limit,
		Status:         status,
		UserID:         in.UserID,
		GatewayOrderID: strings.TrimSpace(in.GatewayOrderID),
	}
	var ok bool
	if strings.TrimSpace(in.From) != "" {
		if f.From, ok = parseDateTimeRFC3339(in.From); !ok {
			return ListOutput[OrderOutput]{}, NewHTTPError(http.StatusBadRequest, "invalid from")
		}
	}
	if strings.TrimSpace(in.To) != "" {
		if f.To, ok = parseDateTimeRFC3339(in.To); !ok {
			return ListOutput[OrderOutput]{}, NewHTTPError(http.StatusBadRequest, "invalid to")
		}
	}

	var out ListOutput[OrderOutput]
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, total, err := r.Orders().ListAdmin(ctx, f)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		outs, err := withOrderItems(ctx, r, orders)
		if err != nil {
			return err
		}
		out = ListOutput[OrderOutput]{Items: outs, Total: total, Page: in.Page, Limit: in.Limit}
		return nil
	})
	if err != nil {
		return ListOutput[OrderOutput]{}, err
	}
	return out, nil
}

// UpdateStatus は手動の決済反映。Settleを通すので請求書・報酬の扱いはwebhookと同じ。
func (u *AdminOrderUsecase) UpdateStatus(ctx context.Context, actorAdminUserID int64, orderID int64, in AdminUpdateOrderStatusInput) (SettleResult, error) {
	if actorAdminUserID <= 0 {
		return SettleResult{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return SettleResult{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	target := CanonicalPaymentStatus(in.Status)
	if target == "" {
		return SettleResult{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	var o model.Order
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		o, err = r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		return nil
	})
	if err != nil {
		return SettleResult{}, err
	}

	// すでに同じなら何もしない（200）
	if o.Status == target {
		return SettleResult{Reason: "already_settled", Order: o}, nil
	}
	// 終端ガード
	if o.Status.IsTerminal() {
		return SettleResult{}, NewHTTPError(http.StatusBadRequest, "order already settled")
	}

	paymentID := strings.TrimSpace(in.PaymentID)
	if paymentID == "" {
		paymentID = "manual-" + time.Now().UTC().Format("20060102150405")
	}
	res, err := u.settlement.Settle(ctx, SettleInput{
		Gateway:        o.Gateway,
		GatewayOrderID: o.GatewayOrderID,
		Status:         string(target),
		PaymentID:      paymentID,
		PaymentMethod:  PaymentMethodFromString(in.PaymentMethod),
	})
	if err != nil {
		if _, ok := AsHTTPError(err); ok {
			return SettleResult{}, err
		}
		return SettleResult{}, NewHTTPError(http.StatusInternalServerError, "settlement error")
	}
	if !res.Applied {
		return res, nil
	}

	// 監査ログ（UPDATE_ORDER_STATUS）
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		return writeAudit(ctx, r.AuditLogs(), actorAdminUserID, model.AuditActionUpdateOrderStatus, model.AuditResourceOrder, orderID,
			map[string]string{"status": string(o.Status)},
			map[string]string{"status": string(res.Order.Status), "payment_id": paymentID})
	})
	if err != nil {
		return SettleResult{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return res, nil
}

// 期間パラメータはRFC3339
func parseDateTimeRFC3339(s string) (*time.Time, bool) {
	if strings.TrimSpace(s) == "" {
		return nil, false
	}
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(s))
	if err != nil {
		return nil, false
	}
	return &t, true
}
