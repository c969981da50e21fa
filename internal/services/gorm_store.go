package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Chaitanya-pati/wheatflow-agro/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormStore - хранилище производства в PostgreSQL через GORM
type GormStore struct {
	db *gorm.DB
}

// NewGormStore создает новый экземпляр GormStore
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) CreateOrder(ctx context.Context, order *models.ProductionOrder) error {
	if err := s.db.WithContext(ctx).Create(order).Error; err != nil {
		return fmt.Errorf("create order %s: %w", order.OrderNumber, err)
	}
	return nil
}

func (s *GormStore) GetOrder(ctx context.Context, id string) (*models.ProductionOrder, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrOrderNotFound
	}
	var order models.ProductionOrder
	if err := s.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order %s: %w", id, err)
	}
	return &order, nil
}

func (s *GormStore) ListOrders(ctx context.Context) ([]models.ProductionOrder, error) {
	var orders []models.ProductionOrder
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

func (s *GormStore) UpdateStage(ctx context.Context, id string, change StageChange) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return updateStageTx(tx, id, change)
	})
}

// updateStageTx - compare-and-set этапа внутри транзакции
func updateStageTx(tx *gorm.DB, id string, change StageChange) error {
	res := tx.Model(&models.ProductionOrder{}).
		Where("id = ? AND current_stage = ?", id, string(change.From)).
		Updates(map[string]interface{}{
			"current_stage": string(change.To),
			"status":        string(change.Status),
			"updated_at":    time.Now().UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("update stage %s -> %s: %w", change.From, change.To, res.Error)
	}
	if res.RowsAffected == 0 {
		return missingOrConflict(tx, id)
	}
	return nil
}

func missingOrConflict(tx *gorm.DB, id string) error {
	var count int64
	if err := tx.Model(&models.ProductionOrder{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("check order %s: %w", id, err)
	}
	if count == 0 {
		return ErrOrderNotFound
	}
	return ErrStageConflict
}

func (s *GormStore) ListAllocations(ctx context.Context, orderID string) ([]models.BinAllocation, error) {
	var rows []models.BinAllocation
	if err := s.db.WithContext(ctx).Where("order_id = ?", orderID).Order("bin_id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list allocations for %s: %w", orderID, err)
	}
	return rows, nil
}

// ReplaceAllocations удаляет старый набор и вставляет новый в одной
// транзакции, поэтому пустого промежуточного состояния никто не видит
func (s *GormStore) ReplaceAllocations(ctx context.Context, orderID string, rows []models.BinAllocation, allowed []models.OrderStage, change *StageChange) error {
	if _, err := uuid.Parse(orderID); err != nil {
		return ErrOrderNotFound
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if change != nil {
			if err := updateStageTx(tx, orderID, *change); err != nil {
				return err
			}
		} else {
			stages := make([]string, 0, len(allowed))
			for _, stage := range allowed {
				stages = append(stages, string(stage))
			}
			var count int64
			if err := tx.Model(&models.ProductionOrder{}).
				Where("id = ? AND current_stage IN ?", orderID, stages).
				Count(&count).Error; err != nil {
				return fmt.Errorf("check order stage: %w", err)
			}
			if count == 0 {
				return missingOrConflict(tx, orderID)
			}
		}

		if err := tx.Where("order_id = ?", orderID).Delete(&models.BinAllocation{}).Error; err != nil {
			return fmt.Errorf("delete allocations: %w", err)
		}
		if len(rows) > 0 {
			if err := tx.Create(&rows).Error; err != nil {
				return fmt.Errorf("insert allocations: %w", err)
			}
		}
		return nil
	})
}

func (s *GormStore) CreateReminder(ctx context.Context, reminder *models.CleaningReminder) error {
	if err := s.db.WithContext(ctx).Create(reminder).Error; err != nil {
		return fmt.Errorf("create reminder: %w", err)
	}
	return nil
}

func (s *GormStore) GetReminder(ctx context.Context, id string) (*models.CleaningReminder, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrReminderNotFound
	}
	var reminder models.CleaningReminder
	if err := s.db.WithContext(ctx).First(&reminder, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReminderNotFound
		}
		return nil, fmt.Errorf("get reminder %s: %w", id, err)
	}
	return &reminder, nil
}

func (s *GormStore) MarkReminderResponded(ctx context.Context, id string, evidence ReminderEvidence) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrReminderNotFound
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.CleaningReminder{}).
			Where("id = ? AND is_responded = ?", id, false).
			Updates(map[string]interface{}{
				"is_responded":         true,
				"actual_response_time": evidence.RespondedAt,
				"before_photo_url":     evidence.BeforePhotoURL,
				"after_photo_url":      evidence.AfterPhotoURL,
				"notes":                evidence.Notes,
				"responded_by":         evidence.RespondedBy,
			})
		if res.Error != nil {
			return fmt.Errorf("respond to reminder %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.CleaningReminder{}).Where("id = ?", id).Count(&count).Error; err != nil {
				return fmt.Errorf("check reminder %s: %w", id, err)
			}
			if count == 0 {
				return ErrReminderNotFound
			}
			return errReminderAlreadyResponded()
		}
		return nil
	})
}

func (s *GormStore) ListReminders(ctx context.Context, orderID string) ([]models.CleaningReminder, error) {
	var reminders []models.CleaningReminder
	if err := s.db.WithContext(ctx).Where("order_id = ?", orderID).Order("scheduled_time DESC").Find(&reminders).Error; err != nil {
		return nil, fmt.Errorf("list reminders for %s: %w", orderID, err)
	}
	return reminders, nil
}

// InsertAuditEntry пишет запись журнала одним INSERT (аналог процедуры log_audit_event)
func (s *GormStore) InsertAuditEntry(ctx context.Context, entry models.AuditLogEntry) error {
	err := s.db.WithContext(ctx).Exec(
		`INSERT INTO audit_log (order_id, stage_name, event_type, event_description, old_values, new_values, user_id, timestamp) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.OrderID, entry.StageName, entry.EventType, entry.EventDescription,
		entry.OldValues, entry.NewValues, entry.UserID, entry.Timestamp,
	).Error
	if err != nil {
		return fmt.Errorf("insert audit entry %s: %w", entry.EventType, err)
	}
	return nil
}

func (s *GormStore) ListAuditEntries(ctx context.Context, orderID string) ([]models.AuditLogEntry, error) {
	var entries []models.AuditLogEntry
	if err := s.db.WithContext(ctx).Where("order_id = ?", orderID).Order("timestamp ASC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list audit entries for %s: %w", orderID, err)
	}
	return entries, nil
}

func (s *GormStore) CreateOutputs(ctx context.Context, outputs []models.ProductionOutput) error {
	if len(outputs) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Create(&outputs).Error; err != nil {
		return fmt.Errorf("create production outputs: %w", err)
	}
	return nil
}

func (s *GormStore) CreatePackaging(ctx context.Context, record *models.PackagingRecord) error {
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("create packaging record: %w", err)
	}
	return nil
}
