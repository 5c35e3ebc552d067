package repository

import (
	"badgeshop/internal/domain/model"
	"context"
)

type UserListFilter struct {
	Page  int
	Limit int
	Role  string
	Q     string
}

// 集計値の差分（0なら変更なし）
type InfluencerCounterDelta struct {
	Pending   int64
	Total     int64
	Withdrawn int64
}

// 保存・取得を約束
type UserRepository interface {
	//新規ユーザー作成
	Create(ctx context.Context, user *model.User) error
	// IDからユーザーを1件取得する。見つからなければ nil, nil
	FindByID(ctx context.Context, userID int64) (*model.User, error)
	// 行ロック付きで取得（Tx内で使う）
	FindByIDForUpdate(ctx context.Context, userID int64) (*model.User, error)
	//メールからユーザーを一件取得する。
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	// ユーザー情報の更新=>アクティブかどうか・ロールの変更・最後のログイン更新など
	Update(ctx context.Context, user *model.User) error
	//トークンのバージョンを＋１
	IncrementTokenVersion(ctx context.Context, userID int64) error
	// パスワードを更新
	UpdatePasswordHash(ctx context.Context, userID int64, hash string) error
	List(ctx context.Context, f UserListFilter) ([]model.User, int64, error)

	// インフルエンサー集計値を加算
	AddInfluencerCounters(ctx context.Context, userID int64, d InfluencerCounterDelta) error
	// インフルエンサー集計値を上書き（再計算用）
	SetInfluencerCounters(ctx context.Context, userID int64, p model.InfluencerProfile) error
}
