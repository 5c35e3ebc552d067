package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"badgeshop/internal/domain/model"
	"badgeshop/internal/metrics"
	repo "badgeshop/internal/repository"
)

const settleLockTTL = 30 * time.Second

type SettlementDeps struct {
	Tx         repo.TransactionManager
	Webhooks   repo.WebhookEventRepository
	Commission *CommissionCalculator
	Lock       SettlementLock
	Notifier   Notifier
	Invoices   InvoiceRenderer
	Events     EventPublisher
	Metrics    *metrics.Metrics
	Cashfree   CashfreeWebhookVerifier
	Razorpay   RazorpayVerifier
	Clock      Clock
	Log        *slog.Logger
}

type SettlementUsecase struct {
	SettlementDeps
}

func NewSettlementUsecase(d SettlementDeps) *SettlementUsecase {
	if d.Clock == nil {
		d.Clock = realClock{}
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}
	return &SettlementUsecase{SettlementDeps: d}
}

type SettleInput struct {
	Gateway        string
	GatewayOrderID string
	Status         string
	PaymentID      string
	PaymentMethod  model.PaymentMethod
}

type SettleResult struct {
	Applied bool           `json:"applied"`
	Reason  string         `json:"reason,omitempty"`
	Order   model.Order    `json:"order"`
	Invoice *model.Invoice `json:"invoice,omitempty"`
}

// 確定後の通知に使う値（Tx内で集める）
type settlementEffects struct {
	previous model.OrderStatus
	order    model.Order
	invoice  model.Invoice
	items    []model.OrderItem
	promos   []promoNotice
}

type promoNotice struct {
	influencer model.User
	promo      model.PromoCode
	earning    model.InfluencerEarning
}

// Settle はPENDINGの注文を終端状態へ1回だけ遷移させる。
// 終端済み・請求書発行済みの注文に対しては何もしない。
func (u *SettlementUsecase) Settle(ctx context.Context, in SettleInput) (SettleResult, error) {
	if in.GatewayOrderID == "" {
		return SettleResult{}, NewHTTPError(http.StatusBadRequest, "gateway_order_id required")
	}
	target := CanonicalPaymentStatus(in.Status)
	if target == "" {
		return SettleResult{Reason: "ignored_status"}, nil
	}
	if in.PaymentMethod == "" {
		in.PaymentMethod = model.PaymentMethodUnknown
	}

	log := u.Log.With(
		slog.String("gateway", in.Gateway),
		slog.String("gateway_order_id", in.GatewayOrderID),
	)

	if u.Lock != nil {
		release, acquired, err := u.Lock.Acquire(ctx, "settle:"+in.GatewayOrderID, settleLockTTL)
		switch {
		case err != nil:
			// redisが落ちていても行ロックで直列化される
			log.WarnContext(ctx, "settle lock unavailable", slog.Any("err", err))
		case !acquired:
			return SettleResult{Reason: "in_progress"}, nil
		default:
			defer release()
		}
	}

	var (
		result  SettleResult
		effects settlementEffects
	)
	err := u.Tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByGatewayOrderIDForUpdate(ctx, in.GatewayOrderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "order not found")
		}
		if err != nil {
			return fmt.Errorf("lock order: %w", err)
		}

		if o.InvoiceID != nil || o.Status.IsTerminal() {
			result = SettleResult{Reason: "already_settled", Order: o}
			return nil
		}

		now := u.Clock.Now()
		effects.previous = o.Status

		if target == model.OrderStatusFailed {
			if err := r.Orders().MarkFailed(ctx, o.ID, in.PaymentID); err != nil {
				return fmt.Errorf("mark failed: %w", err)
			}
			if err := u.Commission.Cancel(ctx, r, o.ID); err != nil {
				return err
			}
			o.Status = model.OrderStatusFailed
			o.GatewayPaymentID = in.PaymentID
			result = SettleResult{Applied: true, Order: o}
			effects.order = o
			return nil
		}

		// 行ロック中なので存在チェックで1注文1請求書になる
		inv, err := r.Invoices().FindByOrderID(ctx, o.ID)
		if errors.Is(err, repo.ErrNotFound) {
			inv, err = r.Invoices().Create(ctx, model.Invoice{
				OrderID:          o.ID,
				UserID:           o.UserID,
				InvoiceNumber:    invoiceNumber(o.ID, now),
				Subtotal:         o.Subtotal,
				DeliveryCharge:   o.DeliveryCharge,
				Discount:         o.Discount,
				Amount:           o.Amount,
				Currency:         o.Currency,
				PaymentMethod:    in.PaymentMethod,
				GatewayPaymentID: in.PaymentID,
				BillingAddress:   o.ShippingAddress,
				IssuedAt:         now,
			})
		}
		if err != nil {
			return fmt.Errorf("issue invoice: %w", err)
		}

		if err := r.Orders().MarkPaid(ctx, o.ID, repo.OrderPaidUpdate{
			GatewayPaymentID: in.PaymentID,
			PaymentMethod:    in.PaymentMethod,
			InvoiceID:        inv.ID,
			PaidAt:           now,
		}); err != nil {
			return fmt.Errorf("mark paid: %w", err)
		}
		if err := r.UserOrders().Create(ctx, model.UserOrder{
			UserID:    o.UserID,
			OrderID:   o.ID,
			InvoiceID: inv.ID,
		}); err != nil {
			return fmt.Errorf("link user order: %w", err)
		}

		confirmed, err := u.Commission.Confirm(ctx, r, o.ID, in.PaymentID, now)
		if err != nil {
			return err
		}

		// 購入済みのカートを閉じる
		cart, err := r.Carts().FindActiveByUserID(ctx, o.UserID)
		if err == nil {
			if err := r.Carts().CheckOut(ctx, cart.ID); err != nil && !errors.Is(err, repo.ErrNotFound) {
				return fmt.Errorf("check out cart: %w", err)
			}
		} else if !errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("find cart: %w", err)
		}

		o.Status = model.OrderStatusSuccess
		o.GatewayPaymentID = in.PaymentID
		o.PaymentMethod = in.PaymentMethod
		o.InvoiceID = &inv.ID
		o.PaidAt = &now

		items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
		if err != nil {
			return fmt.Errorf("list order items: %w", err)
		}
		notices, err := collectPromoNotices(ctx, r, confirmed)
		if err != nil {
			return err
		}

		invCopy := inv
		result = SettleResult{Applied: true, Order: o, Invoice: &invCopy}
		effects.order = o
		effects.invoice = inv
		effects.items = items
		effects.promos = notices
		return nil
	})
	if err != nil {
		if _, ok := AsHTTPError(err); !ok {
			log.ErrorContext(ctx, "settle failed", slog.Any("err", err))
		}
		return SettleResult{}, err
	}

	if result.Applied {
		log.InfoContext(ctx, "order settled",
			slog.Int64("order_id", result.Order.ID),
			slog.String("status", string(result.Order.Status)),
		)
		u.Metrics.Settled(in.Gateway, string(result.Order.Status))
		u.runSideEffects(context.WithoutCancel(ctx), effects)
	}
	return result, nil
}

func collectPromoNotices(ctx context.Context, r repo.TxRepos, earnings []model.InfluencerEarning) ([]promoNotice, error) {
	notices := make([]promoNotice, 0, len(earnings))
	for _, e := range earnings {
		inf, err := r.Users().FindByID(ctx, e.InfluencerID)
		if err != nil {
			return nil, fmt.Errorf("find influencer: %w", err)
		}
		if inf == nil {
			continue
		}
		p, err := r.Promos().FindByID(ctx, e.PromoCodeID)
		if err != nil {
			return nil, fmt.Errorf("find promo: %w", err)
		}
		notices = append(notices, promoNotice{influencer: *inf, promo: p, earning: e})
	}
	return notices, nil
}

// コミット後の副作用。失敗はログとメトリクスだけで、状態は戻さない。
func (u *SettlementUsecase) runSideEffects(ctx context.Context, fx settlementEffects) {
	log := u.Log.With(
		slog.Int64("order_id", fx.order.ID),
		slog.String("gateway_order_id", fx.order.GatewayOrderID),
		slog.String("gateway", fx.order.Gateway),
	)
	fail := func(kind string, err error) {
		log.ErrorContext(ctx, "settlement side effect failed", slog.String("kind", kind), slog.Any("err", err))
		u.Metrics.SideEffectFailed(kind)
	}

	if fx.order.Status == model.OrderStatusSuccess {
		var pdf []byte
		if u.Invoices != nil {
			b, err := u.Invoices.Render(fx.invoice, fx.order, fx.items)
			if err != nil {
				fail("invoice_pdf", err)
			} else {
				pdf = b
			}
		}

		if u.Notifier != nil {
			if err := u.Notifier.SendOrderConfirmation(ctx, fx.order, fx.invoice, fx.items, pdf); err != nil {
				fail("mail_order_confirmation", err)
			}
			if err := u.Notifier.SendAdminOrderNotification(ctx, fx.order, fx.invoice, fx.items); err != nil {
				fail("mail_admin_notification", err)
			}
			for _, n := range fx.promos {
				if err := u.Notifier.SendPromoUsage(ctx, n.influencer, n.promo, fx.order, n.earning.Units, n.earning.TotalEarning); err != nil {
					fail("mail_promo_usage", err)
				}
			}
		}
	}

	if u.Events != nil {
		if err := u.Events.PublishOrderSettled(ctx, fx.order, fx.previous); err != nil {
			fail("event_order_settled", err)
		}
	}
}
