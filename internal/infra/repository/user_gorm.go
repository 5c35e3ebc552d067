package repository

import (
	"context"
	"errors"
	"strings"

	"badgeshop/internal/domain/model"
	repo "badgeshop/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserGormRepository struct {
	db *gorm.DB
}

func NewUserGormRepository(db *gorm.DB) repo.UserRepository {
	return &UserGormRepository{db: db}
}

// emailのunique違反はErrConflict
func (r *UserGormRepository) Create(ctx context.Context, user *model.User) error {
	err := r.db.WithContext(ctx).Create(user).Error
	if isUniqueViolation(err) {
		return repo.ErrConflict
	}
	return err
}

// 見つからなければ nil, nil
func (r *UserGormRepository) one(q *gorm.DB, cond string, arg any) (*model.User, error) {
	var u model.User
	err := q.Where(cond, arg).Take(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserGormRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.one(r.db.WithContext(ctx), "email = ?", strings.ToLower(strings.TrimSpace(email)))
}

func (r *UserGormRepository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	return r.one(r.db.WithContext(ctx), "id = ?", id)
}

// 出金や集計で同じインフルエンサーを直列化する
func (r *UserGormRepository) FindByIDForUpdate(ctx context.Context, id int64) (*model.User, error) {
	return r.one(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), "id = ?", id)
}

func (r *UserGormRepository) Update(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

func (r *UserGormRepository) byID(ctx context.Context, id int64) *gorm.DB {
	return r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id)
}

func (r *UserGormRepository) IncrementTokenVersion(ctx context.Context, id int64) error {
	return affected(r.byID(ctx, id).UpdateColumn("token_version", gorm.Expr("token_version + 1")))
}

func (r *UserGormRepository) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	return affected(r.byID(ctx, id).Update("password_hash", hash))
}

func (r *UserGormRepository) List(ctx context.Context, f repo.UserListFilter) ([]model.User, int64, error) {
	page, limit := normalizePage(f.Page, f.Limit, 50, 100)

	q := r.db.WithContext(ctx).Model(&model.User{})
	if f.Role != "" {
		q = q.Where("role = ?", f.Role)
	}
	if s := strings.TrimSpace(f.Q); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(email) LIKE ? OR LOWER(name) LIKE ?", like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return []model.User{}, 0, err
	}
	users := []model.User{}
	if err := q.Order("id desc").Scopes(paginate(page, limit)).Find(&users).Error; err != nil {
		return []model.User{}, 0, err
	}
	return users, total, nil
}

// 集計値は差分で更新する（読んで書き戻さない）
func (r *UserGormRepository) AddInfluencerCounters(ctx context.Context, id int64, d repo.InfluencerCounterDelta) error {
	cols := map[string]any{}
	for col, v := range map[string]int64{
		"inf_pending_earnings": d.Pending,
		"inf_total_earnings":   d.Total,
		"inf_withdrawn_amount": d.Withdrawn,
	} {
		if v != 0 {
			cols[col] = gorm.Expr(col+" + ?", v)
		}
	}
	if len(cols) == 0 {
		return nil
	}
	return affected(r.byID(ctx, id).UpdateColumns(cols))
}

func (r *UserGormRepository) SetInfluencerCounters(ctx context.Context, id int64, p model.InfluencerProfile) error {
	return affected(r.byID(ctx, id).UpdateColumns(map[string]any{
		"inf_total_earnings":   p.TotalEarnings,
		"inf_pending_earnings": p.PendingEarnings,
		"inf_withdrawn_amount": p.WithdrawnAmount,
	}))
}
