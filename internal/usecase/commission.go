package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"badgeshop/internal/config"
	"badgeshop/internal/domain/model"
	repo "badgeshop/internal/repository"
)

// 同じ(promo, order)は既に計上済み
var errAlreadyAccrued = errors.New("earning already accrued")

// 注文の総数量（明細数ではない）
func CommissionUnits(items []model.OrderItem) int64 {
	var units int64
	for _, it := range items {
		units += it.Quantity
	}
	return units
}

func CommissionRate(p model.PromoCode, defaultRate int64) int64 {
	if p.EarningPerUnit != nil {
		return *p.EarningPerUnit
	}
	return defaultRate
}

type CommissionCalculator struct {
	tx    repo.TransactionManager
	shop  config.Shop
	clock Clock
	log   *slog.Logger
}

func NewCommissionCalculator(tx repo.TransactionManager, shop config.Shop, clock Clock, log *slog.Logger) *CommissionCalculator {
	if clock == nil {
		clock = realClock{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &CommissionCalculator{tx: tx, shop: shop, clock: clock, log: log}
}

// Accrue は注文のインフルエンサー報酬を1回だけ計上する。
// 報酬行・promo集計・利用履歴・ユーザー集計を同じTxで書く。
func (c *CommissionCalculator) Accrue(ctx context.Context, orderID int64) (model.InfluencerEarning, bool, error) {
	var earning model.InfluencerEarning
	applied := false

	err := c.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err != nil {
			return fmt.Errorf("find order: %w", err)
		}
		if o.PromoCodeID == nil || o.Status == model.OrderStatusFailed {
			return nil
		}

		p, err := r.Promos().FindByID(ctx, *o.PromoCodeID)
		if err != nil {
			return fmt.Errorf("find promo: %w", err)
		}
		if p.PromoType != model.PromoTypeInfluencer || p.InfluencerID == nil {
			return nil
		}

		items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
		if err != nil {
			return fmt.Errorf("list order items: %w", err)
		}

		units := CommissionUnits(items)
		rate := CommissionRate(p, c.shop.DefaultEarningPerUnit)
		e := model.InfluencerEarning{
			InfluencerID: *p.InfluencerID,
			PromoCodeID:  p.ID,
			OrderID:      o.ID,
			CustomerID:   o.UserID,
			Units:        units,
			RatePerUnit:  rate,
			TotalEarning: units * rate,
			OrderAmount:  o.Amount,
			Status:       model.EarningStatusPending,
		}
		delta := repo.InfluencerCounterDelta{Pending: e.TotalEarning}

		// 決済が先に確定していたら最初からpaid
		if o.Status == model.OrderStatusSuccess {
			now := c.clock.Now()
			e.Status = model.EarningStatusPaid
			e.PaidAt = &now
			e.PaymentReference = o.GatewayPaymentID
			delta = repo.InfluencerCounterDelta{Total: e.TotalEarning}
		}

		created, err := r.Earnings().Create(ctx, e)
		if errors.Is(err, repo.ErrConflict) {
			return errAlreadyAccrued
		}
		if err != nil {
			return fmt.Errorf("create earning: %w", err)
		}
		if err := r.Promos().AddTotals(ctx, p.ID, e.TotalEarning, units); err != nil {
			return fmt.Errorf("add promo totals: %w", err)
		}
		if err := r.Promos().UpdateUsageEarning(ctx, p.ID, o.ID, units, e.TotalEarning); err != nil {
			return fmt.Errorf("update promo usage: %w", err)
		}
		if err := r.Users().AddInfluencerCounters(ctx, e.InfluencerID, delta); err != nil {
			return fmt.Errorf("add influencer counters: %w", err)
		}

		earning = created
		applied = true
		return nil
	})
	if errors.Is(err, errAlreadyAccrued) {
		return model.InfluencerEarning{}, false, nil
	}
	if err != nil {
		return model.InfluencerEarning{}, false, err
	}
	return earning, applied, nil
}

// Confirm は注文のpending報酬をpaidにする（決済確定Tx内で呼ぶ）。
func (c *CommissionCalculator) Confirm(ctx context.Context, r repo.TxRepos, orderID int64, paymentRef string, now time.Time) ([]model.InfluencerEarning, error) {
	pending, err := r.Earnings().ListByOrderAndStatus(ctx, orderID, model.EarningStatusPending)
	if err != nil {
		return nil, fmt.Errorf("list pending earnings: %w", err)
	}

	confirmed := make([]model.InfluencerEarning, 0, len(pending))
	for _, e := range pending {
		ok, err := r.Earnings().Transition(ctx, e.ID, model.EarningStatusPending, model.EarningStatusPaid, &now, paymentRef)
		if err != nil {
			return nil, fmt.Errorf("transition earning: %w", err)
		}
		if !ok {
			continue
		}
		if err := r.Users().AddInfluencerCounters(ctx, e.InfluencerID, repo.InfluencerCounterDelta{
			Pending: -e.TotalEarning,
			Total:   e.TotalEarning,
		}); err != nil {
			return nil, fmt.Errorf("move influencer counters: %w", err)
		}
		e.Status = model.EarningStatusPaid
		e.PaidAt = &now
		e.PaymentReference = paymentRef
		confirmed = append(confirmed, e)
	}
	return confirmed, nil
}

// Cancel は決済失敗の注文の報酬を取り消す。
func (c *CommissionCalculator) Cancel(ctx context.Context, r repo.TxRepos, orderID int64) error {
	pending, err := r.Earnings().ListByOrderAndStatus(ctx, orderID, model.EarningStatusPending)
	if err != nil {
		return fmt.Errorf("list pending earnings: %w", err)
	}

	for _, e := range pending {
		ok, err := r.Earnings().Transition(ctx, e.ID, model.EarningStatusPending, model.EarningStatusCancelled, nil, "")
		if err != nil {
			return fmt.Errorf("transition earning: %w", err)
		}
		if !ok {
			continue
		}
		if err := r.Users().AddInfluencerCounters(ctx, e.InfluencerID, repo.InfluencerCounterDelta{Pending: -e.TotalEarning}); err != nil {
			return fmt.Errorf("release influencer counters: %w", err)
		}
		if err := r.Promos().AddTotals(ctx, e.PromoCodeID, -e.TotalEarning, -e.Units); err != nil {
			return fmt.Errorf("release promo totals: %w", err)
		}
	}
	return nil
}

// ReconcileInfluencerProfile は集計値を台帳から再計算して上書きする。
func (c *CommissionCalculator) ReconcileInfluencerProfile(ctx context.Context, adminID int64, influencerID int64) (model.InfluencerProfile, error) {
	if adminID <= 0 {
		return model.InfluencerProfile{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if influencerID <= 0 {
		return model.InfluencerProfile{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var after model.InfluencerProfile
	err := c.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		u, err := r.Users().FindByIDForUpdate(ctx, influencerID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if u == nil || u.Role != model.RoleInfluencer {
			return NewHTTPError(http.StatusNotFound, "not found")
		}

		paid, err := r.Earnings().SumByInfluencerAndStatus(ctx, influencerID, model.EarningStatusPaid)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		pending, err := r.Earnings().SumByInfluencerAndStatus(ctx, influencerID, model.EarningStatusPending)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		withdrawn, err := r.Withdrawals().SumByInfluencerAndStatuses(ctx, influencerID, []model.WithdrawalStatus{model.WithdrawalStatusPaid})
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		before := u.Influencer
		after = before
		after.TotalEarnings = paid
		after.PendingEarnings = pending
		after.WithdrawnAmount = withdrawn

		if err := r.Users().SetInfluencerCounters(ctx, influencerID, after); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if err := writeAudit(ctx, r.AuditLogs(), adminID, model.AuditActionReconcileInfluencer, model.AuditResourceUser, influencerID, before, after); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if before != after {
			c.log.WarnContext(ctx, "influencer counters drifted",
				slog.Int64("influencer_id", influencerID),
				slog.Int64("total_before", before.TotalEarnings),
				slog.Int64("total_after", after.TotalEarnings),
				slog.Int64("pending_before", before.PendingEarnings),
				slog.Int64("pending_after", after.PendingEarnings),
			)
		}
		return nil
	})
	if err != nil {
		return model.InfluencerProfile{}, err
	}
	return after, nil
}
