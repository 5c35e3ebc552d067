package usecase

import (
	"context"
	"net/http"
	"strings"

	"badgeshop/internal/domain/model"
	repo "badgeshop/internal/repository"
)

type InfluencerUsecase struct {
	tx         repo.TransactionManager
	commission *CommissionCalculator
}

func NewInfluencerUsecase(tx repo.TransactionManager, commission *CommissionCalculator) *InfluencerUsecase {
	return &InfluencerUsecase{tx: tx, commission: commission}
}

type InfluencerDashboard struct {
	User   UserDTO           `json:"user"`
	Promos []model.PromoCode `json:"promos"`
}

func validEarningStatus(s string) bool {
	switch model.EarningStatus(s) {
	case model.EarningStatusPending, model.EarningStatusPaid, model.EarningStatusCancelled:
		return true
	}
	return false
}

// 自分のプロフィールと紐づくpromo
func (u *InfluencerUsecase) Me(ctx context.Context, influencerID int64) (InfluencerDashboard, error) {
	if influencerID <= 0 {
		return InfluencerDashboard{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var out InfluencerDashboard
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		user, err := r.Users().FindByID(ctx, influencerID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if user == nil || user.Role != model.RoleInfluencer {
			return NewHTTPError(http.StatusForbidden, "forbidden")
		}

		promos, _, err := r.Promos().List(ctx, repo.PromoListFilter{Page: 1, Limit: 100, InfluencerID: &influencerID})
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		out = InfluencerDashboard{User: toUserDTO(user), Promos: promos}
		return nil
	})
	if err != nil {
		return InfluencerDashboard{}, err
	}
	return out, nil
}

type EarningListInput struct {
	Page   int
	Limit  int
	Status string
}

func (u *InfluencerUsecase) ListEarnings(ctx context.Context, influencerID int64, in EarningListInput) (ListOutput[model.InfluencerEarning], error) {
	if influencerID <= 0 {
		return ListOutput[model.InfluencerEarning]{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	status := strings.ToLower(strings.TrimSpace(in.Status))
	if status != "" && !validEarningStatus(status) {
		return ListOutput[model.InfluencerEarning]{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}
	page, limit := pageOrDefault(in.Page, in.Limit)

	var out ListOutput[model.InfluencerEarning]
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		items, total, err := r.Earnings().ListByInfluencer(ctx, influencerID, status, page, limit)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		out = ListOutput[model.InfluencerEarning]{Items: items, Total: total, Page: page, Limit: limit}
		return nil
	})
	if err != nil {
		return ListOutput[model.InfluencerEarning]{}, err
	}
	return out, nil
}

// 管理者用のインフルエンサー一覧
func (u *InfluencerUsecase) AdminList(ctx context.Context, page, limit int, q string) (ListOutput[UserDTO], error) {
	page, limit = pageOrDefault(page, limit)

	var out ListOutput[UserDTO]
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		users, total, err := r.Users().List(ctx, repo.UserListFilter{Page: page, Limit: limit, Role: string(model.RoleInfluencer), Q: q})
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		items := make([]UserDTO, 0, len(users))
		for i := range users {
			items = append(items, toUserDTO(&users[i]))
		}
		out = ListOutput[UserDTO]{Items: items, Total: total, Page: page, Limit: limit}
		return nil
	})
	if err != nil {
		return ListOutput[UserDTO]{}, err
	}
	return out, nil
}

func (u *InfluencerUsecase) Reconcile(ctx context.Context, adminID int64, influencerID int64) (model.InfluencerProfile, error) {
	return u.commission.ReconcileInfluencerProfile(ctx, adminID, influencerID)
}
