package db

import (
	"path/filepath"
	"testing"

	"badgeshop/internal/config"
	"badgeshop/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func TestConnect_SQLiteURLAndMigrate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shop.db")

	gdb, err := Connect(config.Config{DatabaseURL: "sqlite://" + path})
	require.NoError(t, err)
	require.NoError(t, Migrate(gdb))

	for _, m := range model.All() {
		assert.True(t, gdb.Migrator().HasTable(m), "%T", m)
	}
}

func TestOpenSQLite_TranslatesDuplicateKey(t *testing.T) {
	gdb, err := OpenSQLite(filepath.Join(t.TempDir(), "dup.db"), logger.Silent)
	require.NoError(t, err)
	require.NoError(t, Migrate(gdb))

	require.NoError(t, gdb.Create(&model.User{Email: "a@example.com", PasswordHash: "x", Role: model.RoleUser}).Error)
	err = gdb.Create(&model.User{Email: "a@example.com", PasswordHash: "y", Role: model.RoleUser}).Error
	assert.Error(t, err)
}
