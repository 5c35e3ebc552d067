package usecase

import (
	"context"
	"net/http"
	"strings"

	"badgeshop/internal/domain/model"
	repo "badgeshop/internal/repository"
)

type AdminUserUsecase struct {
	tx repo.TransactionManager
}

func NewAdminUserUsecase(tx repo.TransactionManager) *AdminUserUsecase {
	return &AdminUserUsecase{tx: tx}
}

type AdminUserListInput struct {
	Page  int
	Limit int
	Role  string
	Q     string
}

// ロール・有効フラグの変更（nilは変更なし）
type AdminUpdateUserInput struct {
	Role     *string
	IsActive *bool
}

func parseRole(s string) (model.Role, bool) {
	switch r := model.Role(strings.ToUpper(strings.TrimSpace(s))); r {
	case model.RoleUser, model.RoleAdmin, model.RoleInfluencer:
		return r, true
	}
	return "", false
}

func (u *AdminUserUsecase) List(ctx context.Context, in AdminUserListInput) (ListOutput[UserDTO], error) {
	role := ""
	if strings.TrimSpace(in.Role) != "" {
		r, ok := parseRole(in.Role)
		if !ok {
			return ListOutput[UserDTO]{}, NewHTTPError(http.StatusBadRequest, "invalid role")
		}
		role = string(r)
	}
	page, limit := pageOrDefault(in.Page, in.Limit)

	var out ListOutput[UserDTO]
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		users, total, err := r.Users().List(ctx, repo.UserListFilter{Page: page, Limit: limit, Role: role, Q: in.Q})
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

// Update はロール/有効フラグを変更する。
// 権限が変わる場合はtoken_versionを上げて既存トークンを失効させる。
func (u *AdminUserUsecase) Update(ctx context.Context, adminID int64, userID int64, in AdminUpdateUserInput) (UserDTO, error) {
	if adminID <= 0 {
		return UserDTO{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if userID <= 0 {
		return UserDTO{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if in.Role == nil && in.IsActive == nil {
		return UserDTO{}, NewHTTPError(http.StatusBadRequest, "nothing to update")
	}
	// 自分自身の降格・停止は不可
	if adminID == userID {
		return UserDTO{}, NewHTTPError(http.StatusBadRequest, "cannot modify self")
	}

	var role model.Role
	if in.Role != nil {
		r, ok := parseRole(*in.Role)
		if !ok {
			return UserDTO{}, NewHTTPError(http.StatusBadRequest, "invalid role")
		}
		role = r
	}

	var out UserDTO
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		user, err := r.Users().FindByIDForUpdate(ctx, userID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if user == nil {
			return NewHTTPError(http.StatusNotFound, "not found")
		}

		before := map[string]any{"role": user.Role, "is_active": user.IsActive}
		changed := false
		if role != "" && role != user.Role {
			user.Role = role
			changed = true
		}
		if in.IsActive != nil && *in.IsActive != user.IsActive {
			user.IsActive = *in.IsActive
			changed = true
		}
		if !changed {
			out = toUserDTO(user)
			return nil
		}

		if err := r.Users().Update(ctx, user); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if err := r.Users().IncrementTokenVersion(ctx, userID); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		user.TokenVersion++

		after := map[string]any{"role": user.Role, "is_active": user.IsActive}
		if err := writeAudit(ctx, r.AuditLogs(), adminID, model.AuditActionUpdateUser, model.AuditResourceUser, userID, before, after); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		out = toUserDTO(user)
		return nil
	})
	if err != nil {
		return UserDTO{}, err
	}
	return out, nil
}
