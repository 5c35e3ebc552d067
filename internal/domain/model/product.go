package model

import (
	"time"

	"gorm.io/gorm"
)

// バッジ/ステッカー商品（受注生産なので在庫は持たない）
type Product struct {
	ID          int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string         `gorm:"type:varchar(255);not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	Category    string         `gorm:"type:varchar(50);index" json:"category"`
	Price       int64          `gorm:"not null" json:"price"`
	ImageURL    string         `gorm:"type:varchar(500)" json:"image_url"`
	IsActive    bool           `gorm:"not null;default:false" json:"is_active"`
	CreatedAt   time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}
