package services

import (
	"context"
	"time"

	"github.com/Chaitanya-pati/wheatflow-agro/internal/models"
)

// StageChange - условный перевод заказа: применяется, только если заказ
// все еще находится на этапе From
type StageChange struct {
	From   models.OrderStage
	To     models.OrderStage
	Status models.OrderStage
}

// ReminderEvidence - доказательства очистки для закрытия напоминания
type ReminderEvidence struct {
	BeforePhotoURL string
	AfterPhotoURL  string
	Notes          *string
	RespondedBy    *string
	RespondedAt    time.Time
}

// OrderStore - production_orders
type OrderStore interface {
	CreateOrder(ctx context.Context, order *models.ProductionOrder) error
	GetOrder(ctx context.Context, id string) (*models.ProductionOrder, error)
	ListOrders(ctx context.Context) ([]models.ProductionOrder, error)
	// UpdateStage выполняет compare-and-set; ErrStageConflict, если этап уже другой
	UpdateStage(ctx context.Context, id string, change StageChange) error
}

// PlanningStore - production_planning
type PlanningStore interface {
	ListAllocations(ctx context.Context, orderID string) ([]models.BinAllocation, error)
	// ReplaceAllocations атомарно заменяет весь набор распределения заказа.
	// allowed - этапы, на которых замена разрешена; change (если не nil)
	// переводит заказ в той же транзакции.
	ReplaceAllocations(ctx context.Context, orderID string, rows []models.BinAllocation, allowed []models.OrderStage, change *StageChange) error
}

// ReminderStore - cleaning_reminders
type ReminderStore interface {
	CreateReminder(ctx context.Context, reminder *models.CleaningReminder) error
	GetReminder(ctx context.Context, id string) (*models.CleaningReminder, error)
	// MarkReminderResponded закрывает напоминание ровно один раз;
	// повторный вызов возвращает ValidationError
	MarkReminderResponded(ctx context.Context, id string, evidence ReminderEvidence) error
	ListReminders(ctx context.Context, orderID string) ([]models.CleaningReminder, error)
}

// AuditStore - audit_log (только добавление)
type AuditStore interface {
	InsertAuditEntry(ctx context.Context, entry models.AuditLogEntry) error
	ListAuditEntries(ctx context.Context, orderID string) ([]models.AuditLogEntry, error)
}

// OutputStore - production_outputs и packaging_records
type OutputStore interface {
	CreateOutputs(ctx context.Context, outputs []models.ProductionOutput) error
	CreatePackaging(ctx context.Context, record *models.PackagingRecord) error
}

// ProductionStore объединяет все хранилища производства
type ProductionStore interface {
	OrderStore
	PlanningStore
	ReminderStore
	AuditStore
	OutputStore
}
