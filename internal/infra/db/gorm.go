package db

import (
	"fmt"
	"strings"

	"badgeshop/internal/config"
	"badgeshop/internal/domain/model"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const sqlitePrefix = "sqlite://"

// Connect はDBに接続して *gorm.DB を返す。
// DATABASE_URLが sqlite:// で始まればローカル用にSQLiteを使う
func Connect(cfg config.Config) (*gorm.DB, error) {
	level := logger.Warn
	if cfg.IsProduction() {
		level = logger.Error
	}

	if strings.HasPrefix(cfg.DatabaseURL, sqlitePrefix) {
		return OpenSQLite(strings.TrimPrefix(cfg.DatabaseURL, sqlitePrefix), level)
	}

	db, err := gorm.Open(postgres.Open(cfg.PostgresDSN()), newGormConfig(level))
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return db, nil
}

// SQLiteを開く。書き込みは1接続に絞る
func OpenSQLite(path string, level logger.LogLevel) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path+"?_busy_timeout=5000&_foreign_keys=on"), newGormConfig(level))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

func newGormConfig(level logger.LogLevel) *gorm.Config {
	return &gorm.Config{
		// unique違反をgorm.ErrDuplicatedKeyに変換
		TranslateError: true,
		Logger:         logger.Default.LogMode(level),
	}
}

// テーブル作成/更新
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(model.All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
