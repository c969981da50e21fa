package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductionOutput - выход продукции по заказу (основной продукт или побочный: отруби, высевки)
type ProductionOutput struct {
	ID            string    `json:"id" gorm:"type:uuid;primaryKey"`
	OrderID       string    `json:"order_id" gorm:"type:uuid;not null;index"`
	ProductType   string    `json:"product_type" gorm:"type:varchar(100);not null"`
	QuantityKg    float64   `json:"quantity_kg" gorm:"type:decimal(12,2);not null"`
	Percentage    float64   `json:"percentage" gorm:"type:decimal(6,2);not null;default:0"`
	IsMainProduct bool      `json:"is_main_product" gorm:"not null;default:false"`
	RecordedBy    *string   `json:"recorded_by" gorm:"type:varchar(255)"`
	RecordedAt    time.Time `json:"recorded_at" gorm:"autoCreateTime"`
}

// TableName указывает имя таблицы
func (ProductionOutput) TableName() string {
	return "production_outputs"
}

// BeforeCreate генерирует UUID
func (p *ProductionOutput) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

// PackagingRecord - фасовка готовой продукции в мешки
type PackagingRecord struct {
	ID            string    `json:"id" gorm:"type:uuid;primaryKey"`
	OrderID       string    `json:"order_id" gorm:"type:uuid;not null;index"`
	ProductType   string    `json:"product_type" gorm:"type:varchar(100);not null"`
	BagWeightKg   int       `json:"bag_weight_kg" gorm:"not null"`
	BagCount      int       `json:"bag_count" gorm:"not null"`
	TotalWeightKg int       `json:"total_weight_kg" gorm:"not null"`
	PackedBy      *string   `json:"packed_by" gorm:"type:varchar(255)"`
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName указывает имя таблицы
func (PackagingRecord) TableName() string {
	return "packaging_records"
}

// BeforeCreate генерирует UUID
func (p *PackagingRecord) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}
