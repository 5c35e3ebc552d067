package usecase

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"badgeshop/internal/config"
	"badgeshop/internal/domain/model"
	"badgeshop/internal/metrics"
	repo "badgeshop/internal/repository"
)

var (
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrWithdrawalBelowMinimum = errors.New("below minimum withdrawal")
)

type WithdrawalDeps struct {
	Tx        repo.TransactionManager
	Shop      config.Shop
	Validator WithdrawalValidator
	Notifier  Notifier
	Events    EventPublisher
	Metrics   *metrics.Metrics
	Clock     Clock
	Log       *slog.Logger
}

type WithdrawalUsecase struct {
	WithdrawalDeps
}

func NewWithdrawalUsecase(d WithdrawalDeps) *WithdrawalUsecase {
	if d.Clock == nil {
		d.Clock = realClock{}
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}
	return &WithdrawalUsecase{WithdrawalDeps: d}
}

type WithdrawalInput struct {
	Amount  int64
	Method  string
	Details map[string]any
}

type WithdrawalBalance struct {
	PaidEarnings    int64 `json:"paid_earnings"`
	PendingEarnings int64 `json:"pending_earnings"`
	Reserved        int64 `json:"reserved"`
	Withdrawn       int64 `json:"withdrawn"`
	Available       int64 `json:"available"`
	MinWithdrawal   int64 `json:"min_withdrawal"`
}

// 出金可能額 = paid報酬の合計 - (pending/approved/paid の出金合計)
func availableBalance(ctx context.Context, r repo.TxRepos, influencerID int64) (paid int64, reserved int64, err error) {
	paid, err = r.Earnings().SumByInfluencerAndStatus(ctx, influencerID, model.EarningStatusPaid)
	if err != nil {
		return 0, 0, err
	}
	reserved, err = r.Withdrawals().SumByInfluencerAndStatuses(ctx, influencerID, model.WithdrawalReservedStatuses)
	if err != nil {
		return 0, 0, err
	}
	return paid, reserved, nil
}

func (u *WithdrawalUsecase) minWithdrawal(p model.InfluencerProfile) int64 {
	if p.MinWithdrawal > 0 {
		return p.MinWithdrawal
	}
	return u.Shop.MinWithdrawal
}

// influencerとして有効なユーザーか（Tx内、行ロック付き）
func lockInfluencer(ctx context.Context, r repo.TxRepos, influencerID int64) (*model.User, error) {
	user, err := r.Users().FindByIDForUpdate(ctx, influencerID)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if user == nil || user.Role != model.RoleInfluencer || !user.IsActive {
		return nil, NewHTTPError(http.StatusForbidden, "forbidden")
	}
	return user, nil
}

func (u *WithdrawalUsecase) Request(ctx context.Context, influencerID int64, in WithdrawalInput) (model.WithdrawalRequest, error) {
	if influencerID <= 0 {
		return model.WithdrawalRequest{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.Amount <= 0 {
		return model.WithdrawalRequest{}, NewHTTPError(http.StatusBadRequest, "amount must be > 0")
	}
	method := model.WithdrawalMethod(strings.ToLower(strings.TrimSpace(in.Method)))
	if err := u.Validator.ValidateWithdrawal(method, in.Details); err != nil {
		return model.WithdrawalRequest{}, NewHTTPError(http.StatusBadRequest, "invalid withdrawal details")
	}

	var created model.WithdrawalRequest
	err := u.Tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// 同じインフルエンサーの申請はこの行ロックで直列化
		user, err := lockInfluencer(ctx, r, influencerID)
		if err != nil {
			return err
		}

		if in.Amount < u.minWithdrawal(user.Influencer) {
			return NewHTTPError(http.StatusBadRequest, ErrWithdrawalBelowMinimum.Error())
		}

		paid, reserved, err := availableBalance(ctx, r, influencerID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if in.Amount > paid-reserved {
			return NewHTTPError(http.StatusBadRequest, ErrInsufficientBalance.Error())
		}

		w, err := r.Withdrawals().Create(ctx, model.WithdrawalRequest{
			InfluencerID: influencerID,
			Amount:       in.Amount,
			Method:       method,
			Details:      in.Details,
			Status:       model.WithdrawalStatusPending,
		})
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		created = w
		return nil
	})
	if err != nil {
		return model.WithdrawalRequest{}, err
	}

	u.afterTransition(ctx, created, "", nil)
	return created, nil
}

func (u *WithdrawalUsecase) Balance(ctx context.Context, influencerID int64) (WithdrawalBalance, error) {
	if influencerID <= 0 {
		return WithdrawalBalance{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var out WithdrawalBalance
	err := u.Tx.WithinTx(ctx, func(r repo.TxRepos) error {
		user, err := r.Users().FindByID(ctx, influencerID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if user == nil || user.Role != model.RoleInfluencer {
			return NewHTTPError(http.StatusForbidden, "forbidden")
		}

		paid, reserved, err := availableBalance(ctx, r, influencerID)
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

		out = WithdrawalBalance{
			PaidEarnings:    paid,
			PendingEarnings: pending,
			Reserved:        reserved,
			Withdrawn:       withdrawn,
			Available:       paid - reserved,
			MinWithdrawal:   u.minWithdrawal(user.Influencer),
		}
		return nil
	})
	if err != nil {
		return WithdrawalBalance{}, err
	}
	return out, nil
}

type WithdrawalListInput struct {
	Page         int
	Limit        int
	Status       string
	InfluencerID *int64
}

func validWithdrawalStatus(s string) bool {
	switch model.WithdrawalStatus(s) {
	case model.WithdrawalStatusPending, model.WithdrawalStatusApproved, model.WithdrawalStatusRejected, model.WithdrawalStatusPaid:
		return true
	}
	return false
}

func (u *WithdrawalUsecase) ListMine(ctx context.Context, influencerID int64, in WithdrawalListInput) (ListOutput[model.WithdrawalRequest], error) {
	if influencerID <= 0 {
		return ListOutput[model.WithdrawalRequest]{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	in.InfluencerID = &influencerID
	return u.AdminList(ctx, in)
}

func (u *WithdrawalUsecase) AdminList(ctx context.Context, in WithdrawalListInput) (ListOutput[model.WithdrawalRequest], error) {
	status := strings.ToLower(strings.TrimSpace(in.Status))
	if status != "" && !validWithdrawalStatus(status) {
		return ListOutput[model.WithdrawalRequest]{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}
	page, limit := pageOrDefault(in.Page, in.Limit)

	var out ListOutput[model.WithdrawalRequest]
	err := u.Tx.WithinTx(ctx, func(r repo.TxRepos) error {
		items, total, err := r.Withdrawals().List(ctx, repo.WithdrawalListFilter{
			Page:         page,
			Limit:        limit,
			Status:       status,
			InfluencerID: in.InfluencerID,
		})
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		out = ListOutput[model.WithdrawalRequest]{Items: items, Total: total, Page: page, Limit: limit}
		return nil
	})
	if err != nil {
		return ListOutput[model.WithdrawalRequest]{}, err
	}
	return out, nil
}

type AdminWithdrawalStatusInput struct {
	Status        string
	AdminNote     string
	TransactionID string
}

// 許可する遷移（rejected/paidは終端）
var withdrawalTransitions = map[model.WithdrawalStatus][]model.WithdrawalStatus{
	model.WithdrawalStatusPending:  {model.WithdrawalStatusApproved, model.WithdrawalStatusRejected, model.WithdrawalStatusPaid},
	model.WithdrawalStatusApproved: {model.WithdrawalStatusRejected, model.WithdrawalStatusPaid},
}

func canTransitionWithdrawal(from, to model.WithdrawalStatus) bool {
	for _, s := range withdrawalTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func (u *WithdrawalUsecase) AdminUpdateStatus(ctx context.Context, adminID int64, withdrawalID int64, in AdminWithdrawalStatusInput) (model.WithdrawalRequest, error) {
	if adminID <= 0 {
		return model.WithdrawalRequest{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if withdrawalID <= 0 {
		return model.WithdrawalRequest{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	to := model.WithdrawalStatus(strings.ToLower(strings.TrimSpace(in.Status)))
	if !validWithdrawalStatus(string(to)) {
		return model.WithdrawalRequest{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}
	txID := strings.TrimSpace(in.TransactionID)
	if to == model.WithdrawalStatusPaid && txID == "" {
		return model.WithdrawalRequest{}, NewHTTPError(http.StatusBadRequest, "transaction_id required")
	}

	var (
		updated    model.WithdrawalRequest
		previous   model.WithdrawalStatus
		influencer *model.User
		changed    bool
	)
	err := u.Tx.WithinTx(ctx, func(r repo.TxRepos) error {
		w, err := r.Withdrawals().FindByIDForUpdate(ctx, withdrawalID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		// すでに同じなら何もしない
		if w.Status == to {
			updated = w
			return nil
		}
		if !canTransitionWithdrawal(w.Status, to) {
			return NewHTTPError(http.StatusBadRequest, "invalid status transition")
		}

		before := w
		now := u.Clock.Now()
		previous = w.Status
		w.Status = to
		w.AdminNote = strings.TrimSpace(in.AdminNote)
		if txID != "" {
			w.TransactionID = txID
		}
		w.ProcessedAt = &now
		w.ProcessedBy = &adminID

		if err := r.Withdrawals().Update(ctx, w); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		// 出金済み累計はpaidのときだけ
		if to == model.WithdrawalStatusPaid {
			if err := r.Users().AddInfluencerCounters(ctx, w.InfluencerID, repo.InfluencerCounterDelta{Withdrawn: w.Amount}); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			influencer, err = r.Users().FindByID(ctx, w.InfluencerID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
		}

		if err := writeAudit(ctx, r.AuditLogs(), adminID, model.AuditActionUpdateWithdrawal, model.AuditResourceWithdrawal, w.ID, before, w); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		updated = w
		changed = true
		return nil
	})
	if err != nil {
		return model.WithdrawalRequest{}, err
	}

	if changed {
		u.afterTransition(ctx, updated, previous, influencer)
	}
	return updated, nil
}

// ベストエフォート
func (u *WithdrawalUsecase) afterTransition(ctx context.Context, w model.WithdrawalRequest, previous model.WithdrawalStatus, influencer *model.User) {
	ctx = context.WithoutCancel(ctx)
	log := u.Log.With(slog.Int64("withdrawal_id", w.ID), slog.Int64("influencer_id", w.InfluencerID))

	u.Metrics.WithdrawalTransition(string(w.Status))

	if u.Events != nil {
		if err := u.Events.PublishWithdrawalStatusChanged(ctx, w, previous); err != nil {
			log.WarnContext(ctx, "publish withdrawal.status_changed failed", slog.Any("err", err))
			u.Metrics.SideEffectFailed("event_withdrawal")
		}
	}

	if w.Status == model.WithdrawalStatusPaid && influencer != nil && u.Notifier != nil {
		if err := u.Notifier.SendWithdrawalPaid(ctx, *influencer, w); err != nil {
			log.ErrorContext(ctx, "withdrawal mail failed", slog.Any("err", err))
			u.Metrics.SideEffectFailed("mail_withdrawal")
		}
	}
}
