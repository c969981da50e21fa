package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderPriority - приоритет производственного заказа
type OrderPriority string

const (
	PriorityLow    OrderPriority = "low"
	PriorityMedium OrderPriority = "medium"
	PriorityHigh   OrderPriority = "high"
)

// IsValid проверяет значение приоритета
func (p OrderPriority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// ProductionOrder - производственный заказ (корневая сущность производства)
type ProductionOrder struct {
	ID                string        `json:"id" gorm:"type:uuid;primaryKey"`
	OrderNumber       string        `json:"order_number" gorm:"type:varchar(100);uniqueIndex;not null"`
	QuantityTons      float64       `json:"quantity_tons" gorm:"type:decimal(12,3);not null"`
	FinishedGoodsType string        `json:"finished_goods_type" gorm:"type:varchar(100);not null"`
	Priority          OrderPriority `json:"priority" gorm:"type:varchar(20);not null;default:'medium'"`
	// Status повторяет последний достигнутый этап; для проходного этапа
	// (planned) в нем остается имя проходного этапа
	Status            OrderStage `json:"status" gorm:"type:varchar(50);not null;index"`
	CurrentStage      OrderStage `json:"current_stage" gorm:"type:varchar(50);not null;index"`
	TargetDate        *time.Time `json:"target_date" gorm:"type:date"`
	Description       string     `json:"description" gorm:"type:text"`
	CreatedBy         *string    `json:"created_by" gorm:"type:varchar(255)"`
	ResponsiblePerson *string    `json:"responsible_person" gorm:"type:varchar(255)"`
	CreatedAt         time.Time  `json:"created_at" gorm:"autoCreateTime;index"`
	UpdatedAt         time.Time  `json:"updated_at" gorm:"autoUpdateTime"`

	Allocations []BinAllocation `json:"allocations,omitempty" gorm:"foreignKey:OrderID"`
}

// TableName указывает имя таблицы
func (ProductionOrder) TableName() string {
	return "production_orders"
}

// BeforeCreate генерирует UUID и выставляет начальный этап
func (o *ProductionOrder) BeforeCreate(tx *gorm.DB) error {
	o.EnsureDefaults()
	return nil
}

// EnsureDefaults заполняет ID, приоритет и начальный этап
func (o *ProductionOrder) EnsureDefaults() {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	if o.Priority == "" {
		o.Priority = PriorityMedium
	}
	if o.CurrentStage == "" {
		o.CurrentStage = StageCreated
	}
	if o.Status == "" {
		o.Status = o.CurrentStage
	}
}
