package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BinAllocation - доля заказа, взятая из одного бункера сырья.
// Строки существуют только для бункеров с ненулевой долей.
type BinAllocation struct {
	ID            string    `json:"id" gorm:"type:uuid;primaryKey"`
	OrderID       string    `json:"order_id" gorm:"type:uuid;not null;index"`
	BinID         string    `json:"bin_id" gorm:"type:varchar(20);not null"`
	BinName       string    `json:"bin_name" gorm:"type:varchar(100);not null"`
	Percentage    float64   `json:"percentage" gorm:"type:decimal(9,4);not null"`
	TonsAllocated float64   `json:"tons_allocated" gorm:"type:decimal(14,6);not null"`
	AvailableTons float64   `json:"available_tons" gorm:"type:decimal(12,3);not null"` // Информативно, не ограничивает
	IsLocked      bool      `json:"is_locked" gorm:"not null;default:false"`          // Зарезервировано
	CreatedBy     *string   `json:"created_by" gorm:"type:varchar(255)"`
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName указывает имя таблицы
func (BinAllocation) TableName() string {
	return "production_planning"
}

// BeforeCreate генерирует UUID
func (a *BinAllocation) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}
