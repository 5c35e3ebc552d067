package usecase_test

import (
	"context"
	"testing"

	"badgeshop/internal/domain/model"
	gormrepo "badgeshop/internal/infra/repository"
	"badgeshop/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminUserUpdate_ChangesRoleAndRevokesTokens(t *testing.T) {
	env := newTestEnv(t)
	uc := usecase.NewAdminUserUsecase(env.tx)
	ctx := context.Background()

	admin := env.createUser(t, "admin@example.com", model.RoleAdmin)
	target := env.createUser(t, "asha@example.com", model.RoleUser)

	role := "influencer"
	out, err := uc.Update(ctx, admin.ID, target.ID, usecase.AdminUpdateUserInput{Role: &role})
	require.NoError(t, err)
	assert.Equal(t, "INFLUENCER", out.Role)
	assert.Equal(t, 1, out.TokenVersion)

	u := env.reloadUser(t, target.ID)
	assert.Equal(t, model.RoleInfluencer, u.Role)
	assert.Equal(t, 1, u.TokenVersion)

	var audits int64
	require.NoError(t, env.db.Model(&model.AuditLog{}).Where("action = ?", model.AuditActionUpdateUser).Count(&audits).Error)
	assert.Equal(t, int64(1), audits)

	logs, err := usecase.NewAuditLogUsecase(gormrepo.NewAuditLogGormRepository(env.db)).
		List(ctx, usecase.AuditLogListInput{Action: "update_user", ResourceID: &target.ID})
	require.NoError(t, err)
	require.Len(t, logs.Items, 1)
	assert.Equal(t, admin.ID, logs.Items[0].ActorUserID)
	assert.JSONEq(t, `{"role":"INFLUENCER","is_active":true}`, string(logs.Items[0].After))

	_, err = usecase.NewAuditLogUsecase(gormrepo.NewAuditLogGormRepository(env.db)).
		List(ctx, usecase.AuditLogListInput{Action: "drop_table"})
	assert.Equal(t, 400, httpStatus(t, err))

	_, err = uc.Update(ctx, admin.ID, admin.ID, usecase.AdminUpdateUserInput{Role: &role})
	assert.Equal(t, 400, httpStatus(t, err))

	bad := "owner"
	_, err = uc.Update(ctx, admin.ID, target.ID, usecase.AdminUpdateUserInput{Role: &bad})
	assert.Equal(t, 400, httpStatus(t, err))
}

func TestAdminUserList_FiltersByRole(t *testing.T) {
	env := newTestEnv(t)
	uc := usecase.NewAdminUserUsecase(env.tx)

	env.createUser(t, "a@example.com", model.RoleUser)
	env.createUser(t, "b@example.com", model.RoleInfluencer)
	env.createUser(t, "c@example.com", model.RoleInfluencer)

	out, err := uc.List(context.Background(), usecase.AdminUserListInput{Role: "influencer"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), out.Total)
	for _, u := range out.Items {
		assert.Equal(t, "INFLUENCER", u.Role)
	}
}
