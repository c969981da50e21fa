package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Chaitanya-pati/wheatflow-agro/internal/models"

	"go.uber.org/zap"
)

// RespondInput - ответ оператора на напоминание
type RespondInput struct {
	BeforePhotoURL string
	AfterPhotoURL  string
	Notes          *string
	RespondedBy    *string
}

type reminderDeps interface {
	OrderStore
	ReminderStore
}

// ReminderService ведет записи напоминаний об очистке и прием доказательств
type ReminderService struct {
	store     reminderDeps
	audit     *AuditLogger
	events    EventPublisher
	clock     Clock
	intervals map[models.OrderStage]time.Duration
	log       *zap.Logger
}

func NewReminderService(store reminderDeps, intervals map[string]int, audit *AuditLogger, events EventPublisher, clock Clock, log *zap.Logger) *ReminderService {
	if clock == nil {
		clock = SystemClock()
	}
	if log == nil {
		log = zap.NewNop()
	}
	byStage := make(map[models.OrderStage]time.Duration, len(intervals))
	for stage, seconds := range intervals {
		byStage[models.OrderStage(stage)] = time.Duration(seconds) * time.Second
	}
	return &ReminderService{
		store:     store,
		audit:     audit,
		events:    orNopPublisher(events),
		clock:     clock,
		intervals: byStage,
		log:       log,
	}
}

// IntervalFor возвращает интервал напоминаний для этапа
func (s *ReminderService) IntervalFor(stage models.OrderStage) (time.Duration, bool) {
	interval, ok := s.intervals[stage]
	return interval, ok && interval > 0
}

// CreateReminder добавляет неотвеченное напоминание с текущим временем
func (s *ReminderService) CreateReminder(ctx context.Context, orderID string, stage models.OrderStage) (*models.CleaningReminder, error) {
	interval, ok := s.IntervalFor(stage)
	if !ok {
		return nil, newValidationError("stage has no cleaning reminders", "%s", stage)
	}
	if _, err := s.store.GetOrder(ctx, orderID); err != nil {
		return nil, persistErr("get order", err)
	}

	reminder := &models.CleaningReminder{
		OrderID:                 orderID,
		StageName:               stage,
		ReminderType:            models.ReminderManualCleaning,
		ScheduledTime:           s.clock.Now(),
		ReminderIntervalSeconds: int(interval / time.Second),
	}
	if err := s.store.CreateReminder(ctx, reminder); err != nil {
		return nil, persistErr("create reminder", err)
	}

	s.audit.LogEvent(ctx, orderID, stage, AuditReminderCreated,
		fmt.Sprintf("Manual cleaning reminder created (%ds interval)", reminder.ReminderIntervalSeconds),
		nil, map[string]interface{}{"reminder_id": reminder.ID})
	return reminder, nil
}

// RespondedMessage - подтверждение ответа на напоминание
func RespondedMessage(r *models.CleaningReminder) string {
	return fmt.Sprintf("Cleaning reminder %s for %s stage responded with before/after photos", r.ID, r.StageName)
}

// RespondToReminder закрывает напоминание. Оба фото обязательны; закрыть
// напоминание можно только один раз.
func (s *ReminderService) RespondToReminder(ctx context.Context, reminderID string, input RespondInput) (*models.CleaningReminder, error) {
	before := strings.TrimSpace(input.BeforePhotoURL)
	after := strings.TrimSpace(input.AfterPhotoURL)
	switch {
	case before == "" && after == "":
		return nil, newValidationError("before and after photos are required", "both photos are missing")
	case before == "":
		return nil, newValidationError("before and after photos are required", "before photo is missing")
	case after == "":
		return nil, newValidationError("before and after photos are required", "after photo is missing")
	}

	now := s.clock.Now()
	evidence := ReminderEvidence{
		BeforePhotoURL: before,
		AfterPhotoURL:  after,
		Notes:          input.Notes,
		RespondedBy:    input.RespondedBy,
		RespondedAt:    now,
	}
	if err := s.store.MarkReminderResponded(ctx, reminderID, evidence); err != nil {
		return nil, persistErr("respond to reminder", err)
	}

	reminder, err := s.store.GetReminder(ctx, reminderID)
	if err != nil {
		return nil, persistErr("get reminder", err)
	}

	s.audit.LogEvent(ctx, reminder.OrderID, reminder.StageName, AuditReminderResponded,
		"Cleaning reminder responded with before/after photos",
		map[string]interface{}{"is_responded": false},
		map[string]interface{}{
			"reminder_id":      reminder.ID,
			"before_photo_url": before,
			"after_photo_url":  after,
		})

	if err := s.events.Publish(ctx, Event{
		Type:    EventReminderResponded,
		OrderID: reminder.OrderID,
		Stage:   string(reminder.StageName),
		Data:    map[string]interface{}{"reminder_id": reminder.ID},
		At:      now,
	}); err != nil {
		s.log.Warn("reminders: не удалось опубликовать событие", zap.Error(err))
	}
	return reminder, nil
}

// SchedulePreEndWarning сохраняет предупреждение за minutesBefore минут
func (s *ReminderService) SchedulePreEndWarning(ctx context.Context, orderID string, stage models.OrderStage, minutesBefore int) (*models.CleaningReminder, error) {
	if minutesBefore <= 0 {
		return nil, newValidationError("minutes before must be positive", "got %d", minutesBefore)
	}
	if !stage.IsTimed() {
		return nil, newValidationError("stage has no timer", "%s", stage)
	}
	if _, err := s.store.GetOrder(ctx, orderID); err != nil {
		return nil, persistErr("get order", err)
	}

	reminder := &models.CleaningReminder{
		OrderID:                 orderID,
		StageName:               stage,
		ReminderType:            models.ReminderPreEndWarning,
		ScheduledTime:           s.clock.Now().Add(time.Duration(minutesBefore) * time.Minute),
		ReminderIntervalSeconds: 0,
	}
	if err := s.store.CreateReminder(ctx, reminder); err != nil {
		return nil, persistErr("schedule pre-end warning", err)
	}

	s.audit.LogEvent(ctx, orderID, stage, AuditPreEndWarning,
		fmt.Sprintf("Warning will be shown %d minutes before completion", minutesBefore),
		nil, map[string]interface{}{"minutes_before": minutesBefore})
	return reminder, nil
}

// ListReminders возвращает напоминания заказа, новые первыми
func (s *ReminderService) ListReminders(ctx context.Context, orderID string) ([]models.CleaningReminder, error) {
	reminders, err := s.store.ListReminders(ctx, orderID)
	if err != nil {
		return nil, persistErr("list reminders", err)
	}
	return reminders, nil
}
