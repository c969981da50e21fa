package services

import (
	"context"
	"encoding/json"

	"github.com/Chaitanya-pati/wheatflow-agro/internal/models"

	"go.uber.org/zap"
)

// Типы событий журнала аудита
const (
	AuditOrderCreated      = "order_created"
	AuditStageTransition   = "stage_transition"
	AuditPlanningSaved     = "planning_completed"
	AuditTimerStarted      = "timer_started"
	AuditTimerStopped      = "timer_stopped"
	AuditTimerCompleted    = "timer_completed"
	AuditRemindersStarted  = "reminders_started"
	AuditReminderCreated   = "reminder_created"
	AuditReminderResponded = "reminder_responded"
	AuditPreEndWarning     = "pre_end_warning_scheduled"
	AuditOutputsRecorded   = "outputs_recorded"
	AuditPackingCompleted  = "packing_completed"
)

// AuditLogger пишет журнал аудита. Ошибки записи не прерывают операцию:
// они логируются и поглощаются.
type AuditLogger struct {
	store AuditStore
	clock Clock
	log   *zap.Logger
}

func NewAuditLogger(store AuditStore, clock Clock, log *zap.Logger) *AuditLogger {
	if clock == nil {
		clock = SystemClock()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AuditLogger{store: store, clock: clock, log: log}
}

// LogEvent добавляет запись; oldValues/newValues сериализуются в JSON (nil - пусто)
func (a *AuditLogger) LogEvent(ctx context.Context, orderID string, stage models.OrderStage, eventType, description string, oldValues, newValues interface{}) {
	if a == nil || a.store == nil {
		return
	}

	entry := models.AuditLogEntry{
		StageName:        string(stage),
		EventType:        eventType,
		EventDescription: description,
		OldValues:        a.marshal(eventType, oldValues),
		NewValues:        a.marshal(eventType, newValues),
		Timestamp:        a.clock.Now(),
	}
	if orderID != "" {
		entry.OrderID = &orderID
	}

	if err := a.store.InsertAuditEntry(ctx, entry); err != nil {
		a.log.Warn("audit: не удалось записать событие",
			zap.String("order_id", orderID),
			zap.String("event_type", eventType),
			zap.Error(err))
	}
}

func (a *AuditLogger) marshal(eventType string, value interface{}) *string {
	if value == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		a.log.Warn("audit: не удалось сериализовать значения", zap.String("event_type", eventType), zap.Error(err))
		return nil
	}
	s := string(data)
	return &s
}

// List возвращает журнал заказа в хронологическом порядке
func (a *AuditLogger) List(ctx context.Context, orderID string) ([]models.AuditLogEntry, error) {
	entries, err := a.store.ListAuditEntries(ctx, orderID)
	if err != nil {
		return nil, persistErr("list audit entries", err)
	}
	return entries, nil
}
