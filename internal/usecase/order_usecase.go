package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"badgeshop/internal/config"
	"badgeshop/internal/domain/model"
	"badgeshop/internal/metrics"
	repo "badgeshop/internal/repository"
)

type OrderUsecaseDeps struct {
	Tx         repo.TransactionManager
	Shop       config.Shop
	APIBaseURL string
	FEURL      string
	Gateways   map[string]PaymentGateway
	Commission *CommissionCalculator
	Validator  CheckoutValidator
	Invoices   InvoiceRenderer
	Events     EventPublisher
	Metrics    *metrics.Metrics
	Clock      Clock
	IDs        IDGenerator
	Log        *slog.Logger
}

type OrderUsecase struct {
	OrderUsecaseDeps
}

func NewOrderUsecase(d OrderUsecaseDeps) *OrderUsecase {
	if d.Clock == nil {
		d.Clock = realClock{}
	}
	if d.IDs == nil {
		d.IDs = uuidGenerator{}
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}
	return &OrderUsecase{OrderUsecaseDeps: d}
}

type CreateOrderInput struct {
	Address        model.ShippingAddress
	PromoCode      string
	Gateway        string
	IdempotencyKey string
}

type OrderItemOutput struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	ImageURL  string `json:"image_url"`
	Price     int64  `json:"price"`
	Quantity  int64  `json:"quantity"`
}

type OrderOutput struct {
	ID              int64                 `json:"id"`
	UserID          int64                 `json:"user_id"`
	Status          string                `json:"status"`
	Subtotal        int64                 `json:"subtotal"`
	DeliveryCharge  int64                 `json:"delivery_charge"`
	Discount        int64                 `json:"discount"`
	Amount          int64                 `json:"amount"`
	Currency        string                `json:"currency"`
	PromoCode       string                `json:"promo_code,omitempty"`
	Gateway         string                `json:"gateway"`
	GatewayOrderID  string                `json:"gateway_order_id"`
	PaymentMethod   string                `json:"payment_method,omitempty"`
	InvoiceID       *int64                `json:"invoice_id,omitempty"`
	ShippingAddress model.ShippingAddress `json:"shipping_address"`
	PaidAt          *time.Time            `json:"paid_at,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
	Items           []OrderItemOutput     `json:"items"`
}

type CreateOrderOutput struct {
	Order   OrderOutput     `json:"order"`
	Payment *PaymentSession `json:"payment,omitempty"`
}

// BS_<userID>_<unix millis>_<8桁hex>
func (u *OrderUsecase) newGatewayOrderID(userID int64, now time.Time) string {
	suffix := strings.ReplaceAll(u.IDs.NewID(), "-", "")
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return fmt.Sprintf("BS_%d_%d_%s", userID, now.UnixMilli(), suffix)
}

// 冪等キーはユーザーごと
func scopedIdempotencyKey(userID int64, key string) string {
	return fmt.Sprintf("%d:%s", userID, key)
}

func (u *OrderUsecase) CreateOrder(ctx context.Context, userID int64, in CreateOrderInput) (CreateOrderOutput, error) {
	if userID <= 0 {
		return CreateOrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	gatewayName := strings.ToLower(strings.TrimSpace(in.Gateway))
	if gatewayName == "" {
		gatewayName = u.Shop.DefaultGateway
	}
	gw, ok := u.Gateways[gatewayName]
	if !ok {
		return CreateOrderOutput{}, NewHTTPError(http.StatusBadRequest, "unsupported gateway")
	}

	addr := trimAddress(in.Address)
	if err := u.Validator.ValidateShippingAddress(addr); err != nil {
		return CreateOrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid address")
	}

	key := strings.TrimSpace(in.IdempotencyKey)
	if len(key) > 200 {
		return CreateOrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid idempotency_key")
	}
	var storedKey *string
	if key != "" {
		k := scopedIdempotencyKey(userID, key)
		storedKey = &k
	}

	promoCode := NormalizePromoCode(in.PromoCode)

	var (
		order    model.Order
		items    []model.OrderItem
		customer model.User
		replayed bool
	)

	err := u.Tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// 同じキーなら同じ結果
		if storedKey != nil {
			existing, found, err := r.Orders().FindByIdempotencyKey(ctx, userID, *storedKey)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if found {
				its, err := r.OrderItems().ListByOrderID(ctx, existing.ID)
				if err != nil {
					return NewHTTPError(http.StatusInternalServerError, "db error")
				}
				order, items, replayed = existing, its, true
				return nil
			}
		}

		user, err := r.Users().FindByID(ctx, userID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if user == nil || !user.IsActive {
			return NewHTTPError(http.StatusUnauthorized, "unauthorized")
		}
		customer = *user

		//ACTIVEカート取得
		cart, err := r.Carts().FindActiveByUserID(ctx, userID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusBadRequest, "cart empty")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		cartItems, err := r.CartItems().ListByCartID(ctx, cart.ID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if len(cartItems) == 0 {
			return NewHTTPError(http.StatusBadRequest, "cart empty")
		}

		//スナップショット（価格はカート追加時点）
		now := u.Clock.Now()
		orderItems := make([]model.OrderItem, 0, len(cartItems))
		var subtotal int64
		for _, ci := range cartItems {
			p, err := r.Products().FindByID(ctx, ci.ProductID)
			if errors.Is(err, repo.ErrNotFound) {
				return NewHTTPError(http.StatusBadRequest, "product unavailable")
			}
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if !p.IsActive {
				return NewHTTPError(http.StatusBadRequest, "product unavailable")
			}

			orderItems = append(orderItems, model.OrderItem{
				ProductID:           ci.ProductID,
				ProductNameSnapshot: p.Name,
				ImageSnapshot:       p.ImageURL,
				UnitPriceSnapshot:   ci.UnitPriceSnapshot,
				Quantity:            ci.Quantity,
				CreatedAt:           now,
			})
			subtotal += ci.LineTotal()
		}

		delivery := u.Shop.DeliveryCharge
		var (
			discount int64
			promoID  *int64
		)
		if promoCode != "" {
			p, d, err := applyPromoInTx(ctx, r, promoCode, subtotal, delivery, now)
			if err != nil {
				if isPromoRejection(err) {
					return NewHTTPError(http.StatusBadRequest, "promo "+PromoReason(err))
				}
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			discount = d
			id := p.ID
			promoID = &id
		}

		o := model.Order{
			UserID:          userID,
			Status:          model.OrderStatusPending,
			Subtotal:        subtotal,
			DeliveryCharge:  delivery,
			Discount:        discount,
			Amount:          subtotal + delivery - discount,
			Currency:        u.Shop.Currency,
			PromoCodeID:     promoID,
			Gateway:         gw.Name(),
			GatewayOrderID:  u.newGatewayOrderID(userID, now),
			IdempotencyKey:  storedKey,
			ShippingAddress: addr,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if promoID != nil {
			o.PromoCode = promoCode
		}

		orderID, err := r.Orders().Create(ctx, o)
		if errors.Is(err, repo.ErrConflict) {
			return NewHTTPError(http.StatusConflict, "idempotency conflict")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		o.ID = orderID

		if err := r.OrderItems().CreateBulk(ctx, orderID, orderItems); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if promoID != nil {
			if err := r.Promos().CreateUsage(ctx, model.PromoUsage{
				PromoCodeID: *promoID,
				OrderID:     orderID,
				UserID:      userID,
				Discount:    discount,
				CreatedAt:   now,
			}); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
		}

		order, items = o, orderItems
		return nil
	})
	if err != nil {
		return CreateOrderOutput{}, err
	}

	if replayed {
		return u.replayCreateOrder(ctx, gw, order, items)
	}

	u.afterOrderCreated(ctx, order)

	session, err := u.openPaymentSession(ctx, gw, order, customer)
	if err != nil {
		// 注文はPENDINGのまま残す
		return CreateOrderOutput{}, NewHTTPError(http.StatusBadGateway, "payment gateway error")
	}
	order.ProviderOrderID = session.ProviderOrderID
	order.PaymentSessionID = session.SessionID

	return CreateOrderOutput{Order: toOrderOutput(order, items), Payment: &session}, nil
}

func isPromoRejection(err error) bool {
	return errors.Is(err, ErrPromoNotFound) ||
		errors.Is(err, ErrPromoNotYetActive) ||
		errors.Is(err, ErrPromoExpired) ||
		errors.Is(err, ErrPromoLimitReached) ||
		errors.Is(err, ErrPromoBelowMinimum)
}

// 同じ冪等キーの再送。セッション未作成なら作り直す
func (u *OrderUsecase) replayCreateOrder(ctx context.Context, gw PaymentGateway, order model.Order, items []model.OrderItem) (CreateOrderOutput, error) {
	out := CreateOrderOutput{Order: toOrderOutput(order, items)}
	if order.Status != model.OrderStatusPending {
		return out, nil
	}
	if order.ProviderOrderID != "" {
		out.Payment = &PaymentSession{
			Gateway:         order.Gateway,
			ProviderOrderID: order.ProviderOrderID,
			SessionID:       order.PaymentSessionID,
		}
		return out, nil
	}

	if g, ok := u.Gateways[order.Gateway]; ok {
		gw = g
	}

	var customer model.User
	err := u.Tx.WithinTx(ctx, func(r repo.TxRepos) error {
		user, err := r.Users().FindByID(ctx, order.UserID)
		if err != nil || user == nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		customer = *user
		return nil
	})
	if err != nil {
		return CreateOrderOutput{}, err
	}

	session, err := u.openPaymentSession(ctx, gw, order, customer)
	if err != nil {
		return CreateOrderOutput{}, NewHTTPError(http.StatusBadGateway, "payment gateway error")
	}
	out.Payment = &session
	return out, nil
}

// ベストエフォート（失敗しても注文は成立）
func (u *OrderUsecase) afterOrderCreated(ctx context.Context, order model.Order) {
	log := u.Log.With(
		slog.Int64("order_id", order.ID),
		slog.String("gateway_order_id", order.GatewayOrderID),
	)

	if order.PromoCodeID != nil && u.Commission != nil {
		if _, _, err := u.Commission.Accrue(ctx, order.ID); err != nil {
			log.ErrorContext(ctx, "commission accrual failed", slog.Any("err", err))
			u.Metrics.SideEffectFailed("commission_accrual")
		}
	}

	if u.Events != nil {
		if err := u.Events.PublishOrderCreated(ctx, order); err != nil {
			log.WarnContext(ctx, "publish order.created failed", slog.Any("err", err))
			u.Metrics.SideEffectFailed("event_order_created")
		}
	}

	u.Metrics.OrderCreated(order.Gateway, order.PromoCodeID != nil)
}

func (u *OrderUsecase) openPaymentSession(ctx context.Context, gw PaymentGateway, order model.Order, customer model.User) (PaymentSession, error) {
	name := customer.Name
	if name == "" {
		name = order.ShippingAddress.Name
	}
	phone := customer.Phone
	if phone == "" {
		phone = order.ShippingAddress.Phone
	}

	session, err := gw.CreateSession(ctx, PaymentSessionInput{
		GatewayOrderID: order.GatewayOrderID,
		Amount:         order.Amount,
		Currency:       order.Currency,
		Customer: PaymentCustomer{
			ID:    customer.ID,
			Name:  name,
			Email: customer.Email,
			Phone: phone,
		},
		NotifyURL: strings.TrimRight(u.APIBaseURL, "/") + "/webhooks/" + gw.Name(),
		ReturnURL: strings.TrimRight(u.FEURL, "/") + "/orders/" + fmt.Sprint(order.ID) + "?gateway_order_id=" + order.GatewayOrderID,
	})
	if err != nil {
		u.Log.ErrorContext(ctx, "payment session create failed",
			slog.Int64("order_id", order.ID),
			slog.String("gateway_order_id", order.GatewayOrderID),
			slog.String("gateway", gw.Name()),
			slog.Any("err", err),
		)
		return PaymentSession{}, err
	}

	err = u.Tx.WithinTx(ctx, func(r repo.TxRepos) error {
		return r.Orders().SetProviderSession(ctx, order.ID, session.ProviderOrderID, session.SessionID)
	})
	if err != nil {
		return PaymentSession{}, fmt.Errorf("store provider session: %w", err)
	}
	return session, nil
}

func trimAddress(a model.ShippingAddress) model.ShippingAddress {
	a.Name = strings.TrimSpace(a.Name)
	a.Email = strings.ToLower(strings.TrimSpace(a.Email))
	a.Phone = strings.TrimSpace(a.Phone)
	a.Line1 = strings.TrimSpace(a.Line1)
	a.Line2 = strings.TrimSpace(a.Line2)
	a.City = strings.TrimSpace(a.City)
	a.State = strings.TrimSpace(a.State)
	a.PostalCode = strings.TrimSpace(a.PostalCode)
	a.Country = strings.TrimSpace(a.Country)
	if a.Country == "" {
		a.Country = "India"
	}
	return a
}

func (u *OrderUsecase) ListMyOrders(ctx context.Context, userID int64, page, limit int) (ListOutput[OrderOutput], error) {
	if userID <= 0 {
		return ListOutput[OrderOutput]{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	page, limit = pageOrDefault(page, limit)

	var out ListOutput[OrderOutput]
	err := u.Tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, total, err := r.Orders().ListByUserID(ctx, userID, page, limit)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		outs, err := withOrderItems(ctx, r, orders)
		if err != nil {
			return err
		}
		out = ListOutput[OrderOutput]{Items: outs, Total: total, Page: page, Limit: limit}
		return nil
	})
	if err != nil {
		return ListOutput[OrderOutput]{}, err
	}
	return out, nil
}

func (u *OrderUsecase) GetMyOrderDetail(ctx context.Context, userID int64, orderID int64) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out OrderOutput
	err := u.Tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if o.UserID != userID {
			//他人の注文は「存在しない扱い」にする
			return NewHTTPError(http.StatusNotFound, "not found")
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		out = toOrderOutput(o, items)
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

type InvoicePDF struct {
	Filename string
	Content  []byte
}

// 本人かADMINのみ
func (u *OrderUsecase) GetInvoicePDF(ctx context.Context, userID int64, role model.Role, orderID int64) (InvoicePDF, error) {
	if userID <= 0 {
		return InvoicePDF{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return InvoicePDF{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var (
		o     model.Order
		inv   model.Invoice
		items []model.OrderItem
	)
	err := u.Tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		o, err = r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if o.UserID != userID && role != model.RoleAdmin {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if o.InvoiceID == nil {
			return NewHTTPError(http.StatusNotFound, "invoice not found")
		}

		inv, err = r.Invoices().FindByID(ctx, *o.InvoiceID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "invoice not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		items, err = r.OrderItems().ListByOrderID(ctx, o.ID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		return nil
	})
	if err != nil {
		return InvoicePDF{}, err
	}

	pdf, err := u.Invoices.Render(inv, o, items)
	if err != nil {
		u.Log.ErrorContext(ctx, "invoice render failed", slog.Int64("order_id", o.ID), slog.Any("err", err))
		return InvoicePDF{}, NewHTTPError(http.StatusInternalServerError, "invoice render error")
	}
	return InvoicePDF{Filename: inv.InvoiceNumber + ".pdf", Content: pdf}, nil
}

func toOrderOutput(o model.Order, items []model.OrderItem) OrderOutput {
	outItems := make([]OrderItemOutput, 0, len(items))
	for _, it := range items {
		outItems = append(outItems, OrderItemOutput{
			ProductID: it.ProductID,
			Name:      it.ProductNameSnapshot,
			ImageURL:  it.ImageSnapshot,
			Price:     it.UnitPriceSnapshot,
			Quantity:  it.Quantity,
		})
	}

	return OrderOutput{
		ID:              o.ID,
		UserID:          o.UserID,
		Status:          string(o.Status),
		Subtotal:        o.Subtotal,
		DeliveryCharge:  o.DeliveryCharge,
		Discount:        o.Discount,
		Amount:          o.Amount,
		Currency:        o.Currency,
		PromoCode:       o.PromoCode,
		Gateway:         o.Gateway,
		GatewayOrderID:  o.GatewayOrderID,
		PaymentMethod:   string(o.PaymentMethod),
		InvoiceID:       o.InvoiceID,
		ShippingAddress: o.ShippingAddress,
		PaidAt:          o.PaidAt,
		CreatedAt:       o.CreatedAt,
		Items:           outItems,
	}
}

// 一覧の明細はまとめて1クエリで引く
func withOrderItems(ctx context.Context, r repo.TxRepos, orders []model.Order) ([]OrderOutput, error) {
	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	byOrder, err := r.OrderItems().ListByOrderIDs(ctx, ids)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	outs := make([]OrderOutput, 0, len(orders))
	for _, o := range orders {
		outs = append(outs, toOrderOutput(o, byOrder[o.ID]))
	}
	return outs, nil
}
