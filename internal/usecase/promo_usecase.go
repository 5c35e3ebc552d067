package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"badgeshop/internal/config"
	"badgeshop/internal/domain/model"
	repo "badgeshop/internal/repository"

	"github.com/shopspring/decimal"
)

type PromoUsecase struct {
	tx    repo.TransactionManager
	shop  config.Shop
	clock Clock
}

func NewPromoUsecase(tx repo.TransactionManager, shop config.Shop, clock Clock) *PromoUsecase {
	if clock == nil {
		clock = realClock{}
	}
	return &PromoUsecase{tx: tx, shop: shop, clock: clock}
}

type PromoValidateOutput struct {
	Valid          bool   `json:"valid"`
	Code           string `json:"code"`
	PromoType      string `json:"promo_type,omitempty"`
	Reason         string `json:"reason,omitempty"`
	Discount       int64  `json:"discount"`
	Subtotal       int64  `json:"subtotal"`
	DeliveryCharge int64  `json:"delivery_charge"`
	Total          int64  `json:"total"`
}

// Validate はカートに対する割引の試算。DBには書き込まない。
func (u *PromoUsecase) Validate(ctx context.Context, userID int64, code string) (PromoValidateOutput, error) {
	if userID <= 0 {
		return PromoValidateOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	normalized := NormalizePromoCode(code)
	if normalized == "" || len(normalized) > 64 {
		return PromoValidateOutput{}, NewHTTPError(http.StatusBadRequest, "invalid code")
	}

	var out PromoValidateOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		subtotal, err := activeCartSubtotal(ctx, r, userID)
		if err != nil {
			return err
		}

		out = PromoValidateOutput{
			Code:           normalized,
			Subtotal:       subtotal,
			DeliveryCharge: u.shop.DeliveryCharge,
			Total:          subtotal + u.shop.DeliveryCharge,
		}

		p, err := r.Promos().FindByCode(ctx, normalized)
		if errors.Is(err, repo.ErrNotFound) {
			out.Reason = PromoReason(ErrPromoNotFound)
			return nil
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		discount, err := EvaluatePromo(p, subtotal, u.shop.DeliveryCharge, u.clock.Now())
		if err != nil {
			out.Reason = PromoReason(err)
			return nil
		}

		out.Valid = true
		out.PromoType = string(p.PromoType)
		out.Discount = discount
		out.Total = subtotal + u.shop.DeliveryCharge - discount
		return nil
	})
	if err != nil {
		return PromoValidateOutput{}, err
	}
	return out, nil
}

// ACTIVEカートの小計（追加時点の価格で計算）
func activeCartSubtotal(ctx context.Context, r repo.TxRepos, userID int64) (int64, error) {
	cart, err := r.Carts().FindActiveByUserID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return 0, NewHTTPError(http.StatusBadRequest, "cart empty")
	}
	if err != nil {
		return 0, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	items, err := r.CartItems().ListByCartID(ctx, cart.ID)
	if err != nil {
		return 0, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if len(items) == 0 {
		return 0, NewHTTPError(http.StatusBadRequest, "cart empty")
	}

	var subtotal int64
	for _, it := range items {
		subtotal += it.LineTotal()
	}
	return subtotal, nil
}

// 注文Tx内でpromoを確定適用する（行ロック→評価→使用回数+1）。
// 利用履歴は注文IDが決まってから追記する。
func applyPromoInTx(ctx context.Context, r repo.TxRepos, code string, subtotal, deliveryCharge int64, now time.Time) (model.PromoCode, int64, error) {
	p, err := r.Promos().FindActiveByCodeForUpdate(ctx, code)
	if errors.Is(err, repo.ErrNotFound) {
		return model.PromoCode{}, 0, ErrPromoNotFound
	}
	if err != nil {
		return model.PromoCode{}, 0, err
	}

	discount, err := EvaluatePromo(p, subtotal, deliveryCharge, now)
	if err != nil {
		return model.PromoCode{}, 0, err
	}

	ok, err := r.Promos().IncrementUsage(ctx, p.ID)
	if err != nil {
		return model.PromoCode{}, 0, err
	}
	if !ok {
		return model.PromoCode{}, 0, ErrPromoLimitReached
	}
	p.UsedCount++
	return p, discount, nil
}

type PromoInput struct {
	Code           string
	Description    string
	PromoType      model.PromoType
	DiscountType   model.DiscountType
	DiscountValue  decimal.Decimal
	MinOrderAmount int64
	MaxDiscount    *int64
	UsageLimit     *int64
	ValidFrom      time.Time
	ValidUntil     time.Time
	IsActive       bool
	InfluencerID   *int64
	EarningPerUnit *int64
}

func validatePromoInput(in PromoInput) error {
	switch in.PromoType {
	case model.PromoTypeCompany, model.PromoTypeInfluencer:
	default:
		return NewHTTPError(http.StatusBadRequest, "invalid promo_type")
	}
	switch in.DiscountType {
	case model.DiscountTypePercentage:
		if in.DiscountValue.GreaterThan(hundred) {
			return NewHTTPError(http.StatusBadRequest, "percentage must be <= 100")
		}
	case model.DiscountTypeFixed:
	default:
		return NewHTTPError(http.StatusBadRequest, "invalid discount_type")
	}
	if !in.DiscountValue.IsPositive() {
		return NewHTTPError(http.StatusBadRequest, "discount_value must be > 0")
	}
	if in.MinOrderAmount < 0 {
		return NewHTTPError(http.StatusBadRequest, "min_order_amount must be >= 0")
	}
	if in.MaxDiscount != nil && *in.MaxDiscount < 0 {
		return NewHTTPError(http.StatusBadRequest, "max_discount must be >= 0")
	}
	if in.UsageLimit != nil && *in.UsageLimit < 1 {
		return NewHTTPError(http.StatusBadRequest, "usage_limit must be >= 1")
	}
	if in.ValidFrom.IsZero() || in.ValidUntil.IsZero() || !in.ValidUntil.After(in.ValidFrom) {
		return NewHTTPError(http.StatusBadRequest, "invalid validity window")
	}
	if in.EarningPerUnit != nil && *in.EarningPerUnit < 0 {
		return NewHTTPError(http.StatusBadRequest, "earning_per_unit must be >= 0")
	}
	if in.PromoType == model.PromoTypeInfluencer && (in.InfluencerID == nil || *in.InfluencerID <= 0) {
		return NewHTTPError(http.StatusBadRequest, "influencer_id required")
	}
	return nil
}

func (u *PromoUsecase) CreatePromo(ctx context.Context, adminID int64, in PromoInput) (model.PromoCode, error) {
	if adminID <= 0 {
		return model.PromoCode{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	in.Code = NormalizePromoCode(in.Code)
	if in.Code == "" || len(in.Code) > 64 {
		return model.PromoCode{}, NewHTTPError(http.StatusBadRequest, "invalid code")
	}
	if err := validatePromoInput(in); err != nil {
		return model.PromoCode{}, err
	}
	if in.PromoType == model.PromoTypeCompany {
		in.InfluencerID = nil
		in.EarningPerUnit = nil
	}

	var created model.PromoCode
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if in.InfluencerID != nil {
			inf, err := r.Users().FindByID(ctx, *in.InfluencerID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if inf == nil || inf.Role != model.RoleInfluencer {
				return NewHTTPError(http.StatusBadRequest, "influencer not found")
			}
		}

		p, err := r.Promos().Create(ctx, model.PromoCode{
			Code:            in.Code,
			Description:     strings.TrimSpace(in.Description),
			PromoType:       in.PromoType,
			DiscountType:    in.DiscountType,
			DiscountValue:   in.DiscountValue,
			MinOrderAmount:  in.MinOrderAmount,
			MaxDiscount:     in.MaxDiscount,
			UsageLimit:      in.UsageLimit,
			ValidFrom:       in.ValidFrom,
			ValidUntil:      in.ValidUntil,
			IsActive:        in.IsActive,
			InfluencerID:    in.InfluencerID,
			EarningPerUnit:  in.EarningPerUnit,
			CreatedByUserID: adminID,
		})
		if errors.Is(err, repo.ErrConflict) {
			return NewHTTPError(http.StatusConflict, "code already exists")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if err := writeAudit(ctx, r.AuditLogs(), adminID, model.AuditActionCreatePromo, model.AuditResourcePromo, p.ID, nil, p); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		created = p
		return nil
	})
	if err != nil {
		return model.PromoCode{}, err
	}
	return created, nil
}

// UpdatePromo はcode/種別/インフルエンサーは変更しない。
func (u *PromoUsecase) UpdatePromo(ctx context.Context, adminID int64, promoID int64, in PromoInput) (model.PromoCode, error) {
	if adminID <= 0 {
		return model.PromoCode{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if promoID <= 0 {
		return model.PromoCode{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var updated model.PromoCode
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		before, err := r.Promos().FindByID(ctx, promoID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		in.PromoType = before.PromoType
		in.InfluencerID = before.InfluencerID
		if err := validatePromoInput(in); err != nil {
			return err
		}
		if in.UsageLimit != nil && *in.UsageLimit < before.UsedCount {
			return NewHTTPError(http.StatusBadRequest, "usage_limit below used_count")
		}

		after := before
		after.Description = strings.TrimSpace(in.Description)
		after.DiscountType = in.DiscountType
		after.DiscountValue = in.DiscountValue
		after.MinOrderAmount = in.MinOrderAmount
		after.MaxDiscount = in.MaxDiscount
		after.UsageLimit = in.UsageLimit
		after.ValidFrom = in.ValidFrom
		after.ValidUntil = in.ValidUntil
		after.IsActive = in.IsActive
		if before.PromoType == model.PromoTypeInfluencer {
			after.EarningPerUnit = in.EarningPerUnit
		}

		if err := r.Promos().Update(ctx, after); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if err := writeAudit(ctx, r.AuditLogs(), adminID, model.AuditActionUpdatePromo, model.AuditResourcePromo, promoID, before, after); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		updated = after
		return nil
	})
	if err != nil {
		return model.PromoCode{}, err
	}
	return updated, nil
}

func (u *PromoUsecase) DeactivatePromo(ctx context.Context, adminID int64, promoID int64) error {
	if adminID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if promoID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		before, err := r.Promos().FindByID(ctx, promoID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if !before.IsActive {
			return nil
		}

		after := before
		after.IsActive = false
		if err := r.Promos().Update(ctx, after); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		return writeAudit(ctx, r.AuditLogs(), adminID, model.AuditActionUpdatePromo, model.AuditResourcePromo, promoID,
			map[string]bool{"is_active": true}, map[string]bool{"is_active": false})
	})
}

type ListPromosInput struct {
	Page         int
	Limit        int
	Q            string
	PromoType    string
	IsActive     *bool
	InfluencerID *int64
}

func (u *PromoUsecase) ListPromos(ctx context.Context, in ListPromosInput) (ListOutput[model.PromoCode], error) {
	switch in.PromoType {
	case "", string(model.PromoTypeCompany), string(model.PromoTypeInfluencer):
	default:
		return ListOutput[model.PromoCode]{}, NewHTTPError(http.StatusBadRequest, "invalid promo_type")
	}
	page, limit := pageOrDefault(in.Page, in.Limit)

	var out ListOutput[model.PromoCode]
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		items, total, err := r.Promos().List(ctx, repo.PromoListFilter{
			Page:         page,
			Limit:        limit,
			Q:            NormalizePromoCode(in.Q),
			PromoType:    in.PromoType,
			IsActive:     in.IsActive,
			InfluencerID: in.InfluencerID,
		})
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		out = ListOutput[model.PromoCode]{Items: items, Total: total, Page: page, Limit: limit}
		return nil
	})
	if err != nil {
		return ListOutput[model.PromoCode]{}, err
	}
	return out, nil
}

func (u *PromoUsecase) ListPromoUsages(ctx context.Context, promoID int64, page, limit int) (ListOutput[model.PromoUsage], error) {
	if promoID <= 0 {
		return ListOutput[model.PromoUsage]{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	page, limit = pageOrDefault(page, limit)

	var out ListOutput[model.PromoUsage]
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := r.Promos().FindByID(ctx, promoID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NewHTTPError(http.StatusNotFound, "not found")
			}
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		items, total, err := r.Promos().ListUsages(ctx, promoID, page, limit)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		out = ListOutput[model.PromoUsage]{Items: items, Total: total, Page: page, Limit: limit}
		return nil
	})
	if err != nil {
		return ListOutput[model.PromoUsage]{}, err
	}
	return out, nil
}
