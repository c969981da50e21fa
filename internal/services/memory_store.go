package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Chaitanya-pati/wheatflow-agro/internal/models"

	"github.com/google/uuid"
)

// MemoryStore - хранилище в памяти процесса. Используется, когда PostgreSQL
// недоступен (режим без БД), и в тестах.
type MemoryStore struct {
	mu          sync.RWMutex
	orders      map[string]*models.ProductionOrder
	allocations map[string][]models.BinAllocation
	reminders   map[string]*models.CleaningReminder
	audit       []models.AuditLogEntry
	outputs     []models.ProductionOutput
	packaging   []models.PackagingRecord
}

// NewMemoryStore создает пустое хранилище в памяти
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders:      make(map[string]*models.ProductionOrder),
		allocations: make(map[string][]models.BinAllocation),
		reminders:   make(map[string]*models.CleaningReminder),
	}
}

func (s *MemoryStore) CreateOrder(_ context.Context, order *models.ProductionOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.orders {
		if existing.OrderNumber == order.OrderNumber {
			return fmt.Errorf("create order %s: duplicate order number", order.OrderNumber)
		}
	}
	order.EnsureDefaults()
	now := time.Now().UTC()
	order.CreatedAt = now
	order.UpdatedAt = now

	stored := *order
	stored.Allocations = nil
	s.orders[order.ID] = &stored
	return nil
}

func (s *MemoryStore) GetOrder(_ context.Context, id string) (*models.ProductionOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	out := *order
	return &out, nil
}

func (s *MemoryStore) ListOrders(_ context.Context) ([]models.ProductionOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orders := make([]models.ProductionOrder, 0, len(s.orders))
	for _, order := range s.orders {
		orders = append(orders, *order)
	}
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].OrderNumber > orders[j].OrderNumber
		}
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}

func (s *MemoryStore) UpdateStage(_ context.Context, id string, change StageChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateStageLocked(id, change)
}

func (s *MemoryStore) updateStageLocked(id string, change StageChange) error {
	order, ok := s.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	if order.CurrentStage != change.From {
		return ErrStageConflict
	}
	order.CurrentStage = change.To
	order.Status = change.Status
	order.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) ListAllocations(_ context.Context, orderID string) ([]models.BinAllocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := append([]models.BinAllocation(nil), s.allocations[orderID]...)
	sort.Slice(rows, func(i, j int) bool { return rows[i].BinID < rows[j].BinID })
	return rows, nil
}

func (s *MemoryStore) ReplaceAllocations(_ context.Context, orderID string, rows []models.BinAllocation, allowed []models.OrderStage, change *StageChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[orderID]
	if !ok {
		return ErrOrderNotFound
	}
	if change != nil {
		if err := s.updateStageLocked(orderID, *change); err != nil {
			return err
		}
	} else if !stageIn(order.CurrentStage, allowed) {
		return ErrStageConflict
	}

	now := time.Now().UTC()
	for i := range rows {
		if rows[i].ID == "" {
			rows[i].ID = uuid.New().String()
		}
		rows[i].CreatedAt = now
	}
	stored := append([]models.BinAllocation(nil), rows...)
	if len(stored) == 0 {
		delete(s.allocations, orderID)
		return nil
	}
	s.allocations[orderID] = stored
	return nil
}

func stageIn(stage models.OrderStage, stages []models.OrderStage) bool {
	for _, s := range stages {
		if s == stage {
			return true
		}
	}
	return false
}

func (s *MemoryStore) CreateReminder(_ context.Context, reminder *models.CleaningReminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if reminder.ID == "" {
		reminder.ID = uuid.New().String()
	}
	reminder.CreatedAt = time.Now().UTC()
	stored := *reminder
	s.reminders[reminder.ID] = &stored
	return nil
}

func (s *MemoryStore) GetReminder(_ context.Context, id string) (*models.CleaningReminder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reminder, ok := s.reminders[id]
	if !ok {
		return nil, ErrReminderNotFound
	}
	out := *reminder
	return &out, nil
}

func (s *MemoryStore) MarkReminderResponded(_ context.Context, id string, evidence ReminderEvidence) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	reminder, ok := s.reminders[id]
	if !ok {
		return ErrReminderNotFound
	}
	if reminder.IsResponded {
		return errReminderAlreadyResponded()
	}
	respondedAt := evidence.RespondedAt
	before, after := evidence.BeforePhotoURL, evidence.AfterPhotoURL
	reminder.IsResponded = true
	reminder.ActualResponseTime = &respondedAt
	reminder.BeforePhotoURL = &before
	reminder.AfterPhotoURL = &after
	reminder.Notes = evidence.Notes
	reminder.RespondedBy = evidence.RespondedBy
	return nil
}

func (s *MemoryStore) ListReminders(_ context.Context, orderID string) ([]models.CleaningReminder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var reminders []models.CleaningReminder
	for _, r := range s.reminders {
		if r.OrderID == orderID {
			reminders = append(reminders, *r)
		}
	}
	sort.Slice(reminders, func(i, j int) bool {
		return reminders[i].ScheduledTime.After(reminders[j].ScheduledTime)
	})
	return reminders, nil
}

func (s *MemoryStore) InsertAuditEntry(_ context.Context, entry models.AuditLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	s.audit = append(s.audit, entry)
	return nil
}

// ListAuditEntries возвращает записи в порядке добавления
func (s *MemoryStore) ListAuditEntries(_ context.Context, orderID string) ([]models.AuditLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var entries []models.AuditLogEntry
	for _, e := range s.audit {
		if e.OrderID != nil && *e.OrderID == orderID {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

func (s *MemoryStore) CreateOutputs(_ context.Context, outputs []models.ProductionOutput) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	for i := range outputs {
		if outputs[i].ID == "" {
			outputs[i].ID = uuid.New().String()
		}
		outputs[i].RecordedAt = now
		s.outputs = append(s.outputs, outputs[i])
	}
	return nil
}

func (s *MemoryStore) CreatePackaging(_ context.Context, record *models.PackagingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	record.CreatedAt = time.Now().UTC()
	s.packaging = append(s.packaging, *record)
	return nil
}

// Outputs возвращает копию записанных выходов продукции заказа
func (s *MemoryStore) Outputs(orderID string) []models.ProductionOutput {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.ProductionOutput
	for _, o := range s.outputs {
		if o.OrderID == orderID {
			out = append(out, o)
		}
	}
	return out
}
