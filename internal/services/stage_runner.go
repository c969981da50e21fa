package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Chaitanya-pati/wheatflow-agro/internal/models"

	"go.uber.org/zap"
)

const completionTimeout = 10 * time.Second

type stageKey struct {
	orderID string
	stage   models.OrderStage
}

type stageRun struct {
	timer     *StageTimer
	reminders *ReminderScheduler
}

// StageStartResult - результат запуска этапа
type StageStartResult struct {
	Timer                   TimerSnapshot `json:"timer"`
	ReminderIntervalSeconds int           `json:"reminder_interval_seconds"`
	Message                 string        `json:"message"`
}

// StageRunnerConfig - зависимости StageRunner
type StageRunnerConfig struct {
	Orders           OrderStore
	Timers           TimerStore
	Machine          *StageMachine
	Reminders        *ReminderService
	Audit            *AuditLogger
	Events           EventPublisher
	Clock            Clock
	AllowedDurations map[string][]int
	TickInterval     time.Duration
	Logger           *zap.Logger
}

// StageRunner - реестр активных этапов с таймером. Для каждой пары
// (заказ, этап) держит не больше одного таймера и одной цепочки напоминаний;
// по завершении таймера переводит заказ на следующий этап.
type StageRunner struct {
	mu   sync.Mutex
	runs map[stageKey]*stageRun

	orders    OrderStore
	timers    TimerStore
	machine   *StageMachine
	reminders *ReminderService
	audit     *AuditLogger
	events    EventPublisher
	clock     Clock
	durations map[models.OrderStage][]int
	tick      time.Duration
	log       *zap.Logger
}

func NewStageRunner(cfg StageRunnerConfig) *StageRunner {
	if cfg.Clock == nil {
		cfg.Clock = SystemClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	durations := make(map[models.OrderStage][]int, len(cfg.AllowedDurations))
	for stage, hours := range cfg.AllowedDurations {
		durations[models.OrderStage(stage)] = append([]int(nil), hours...)
	}
	return &StageRunner{
		runs:      make(map[stageKey]*stageRun),
		orders:    cfg.Orders,
		timers:    cfg.Timers,
		machine:   cfg.Machine,
		reminders: cfg.Reminders,
		audit:     cfg.Audit,
		events:    orNopPublisher(cfg.Events),
		clock:     cfg.Clock,
		durations: durations,
		tick:      cfg.TickInterval,
		log:       cfg.Logger,
	}
}

// AllowedDurations возвращает допустимые длительности этапа в часах
func (r *StageRunner) AllowedDurations(stage models.OrderStage) []int {
	return append([]int(nil), r.durations[stage]...)
}

func (r *StageRunner) durationAllowed(stage models.OrderStage, hours int) bool {
	allowed, ok := r.durations[stage]
	if !ok {
		return hours > 0
	}
	for _, h := range allowed {
		if h == hours {
			return true
		}
	}
	return false
}

// StartStage запускает таймер этапа и напоминания об очистке
func (r *StageRunner) StartStage(ctx context.Context, orderID string, stage models.OrderStage, durationHours int) (*StageStartResult, error) {
	if !stage.IsTimed() {
		return nil, newValidationError("stage has no timer", "%s", stage)
	}
	if !r.durationAllowed(stage, durationHours) {
		return nil, newValidationError("duration not allowed", "%dh is not one of %v for %s", durationHours, r.durations[stage], stage)
	}

	order, err := r.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, persistErr("get order", err)
	}
	if order.CurrentStage != stage {
		return nil, newValidationError("timer can only start for the current stage", "order is at %s", order.CurrentStage)
	}

	r.mu.Lock()
	key := stageKey{orderID: orderID, stage: stage}
	run, ok := r.runs[key]
	if !ok {
		run = &stageRun{timer: r.newTimer(orderID, stage)}
	}
	snapshot, err := run.timer.Start(ctx, durationHours)
	if err != nil {
		r.mu.Unlock()
		return nil, err
	}
	r.runs[key] = run
	interval := r.startRemindersLocked(run, orderID, stage)
	r.mu.Unlock()

	r.audit.LogEvent(ctx, orderID, stage, AuditTimerStarted,
		fmt.Sprintf("%dh timer started for %s stage", durationHours, stage),
		nil, map[string]interface{}{
			"duration_hours": durationHours,
			"start_time":     snapshot.StartTime,
			"end_time":       snapshot.EndTime,
		})
	if interval > 0 {
		r.audit.LogEvent(ctx, orderID, stage, AuditRemindersStarted,
			fmt.Sprintf("Manual cleaning reminders started with %ds interval", int(interval/time.Second)),
			nil, map[string]interface{}{"interval_seconds": int(interval / time.Second)})
	}
	r.publish(ctx, EventTimerStarted, snapshot)

	return &StageStartResult{
		Timer:                   snapshot,
		ReminderIntervalSeconds: int(interval / time.Second),
		Message:                 fmt.Sprintf("%dh timer started for %s stage", durationHours, stage),
	}, nil
}

func (r *StageRunner) newTimer(orderID string, stage models.OrderStage) *StageTimer {
	return NewStageTimer(orderID, stage, r.timers, r.clock, r.log, TimerOptions{
		TickInterval: r.tick,
		OnTick: func(s TimerSnapshot) {
			r.publish(context.Background(), EventTimerTick, s)
		},
		OnComplete: r.handleCompletion,
	})
}

func (r *StageRunner) startRemindersLocked(run *stageRun, orderID string, stage models.OrderStage) time.Duration {
	if r.reminders == nil {
		return 0
	}
	interval, ok := r.reminders.IntervalFor(stage)
	if !ok {
		return 0
	}
	if run.reminders != nil {
		run.reminders.Stop()
	}
	run.reminders = NewReminderScheduler(orderID, stage, interval, r.clock, r.handlePrompt, r.log)
	run.reminders.Start()
	return interval
}

func (r *StageRunner) handlePrompt(p ReminderPrompt) {
	err := r.events.Publish(context.Background(), Event{
		Type:    EventReminderPrompt,
		OrderID: p.OrderID,
		Stage:   string(p.Stage),
		Data: map[string]interface{}{
			"interval_seconds": p.IntervalSeconds,
			"sequence":         p.Sequence,
			"reminder_type":    string(models.ReminderManualCleaning),
		},
		At: p.At,
	})
	if err != nil {
		r.log.Warn("stage runner: не удалось опубликовать напоминание", zap.String("order_id", p.OrderID), zap.Error(err))
	}
}

// handleCompletion вызывается таймером по завершении отсчета
func (r *StageRunner) handleCompletion(s TimerSnapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), completionTimeout)
	defer cancel()

	r.mu.Lock()
	key := stageKey{orderID: s.OrderID, stage: s.Stage}
	if run, ok := r.runs[key]; ok {
		if run.reminders != nil {
			run.reminders.Stop()
		}
		delete(r.runs, key)
	}
	r.mu.Unlock()

	r.audit.LogEvent(ctx, s.OrderID, s.Stage, AuditTimerCompleted,
		fmt.Sprintf("%s stage timer has finished", s.Stage),
		nil, map[string]interface{}{"duration_seconds": s.DurationSeconds})
	r.publish(ctx, EventTimerCompleted, s)

	if _, err := r.machine.Advance(ctx, s.OrderID, s.Stage, TriggerTimerCompleted); err != nil {
		if errors.Is(err, ErrStageConflict) {
			r.log.Warn("stage runner: заказ уже не на этапе таймера, переход пропущен",
				zap.String("order_id", s.OrderID), zap.String("stage", string(s.Stage)))
			return
		}
		r.log.Error("stage runner: не удалось перевести заказ после таймера",
			zap.String("order_id", s.OrderID), zap.String("stage", string(s.Stage)), zap.Error(err))
	}
}

// StopStage останавливает таймер и напоминания этапа. Повторный вызов
// возвращает состояние idle без ошибки.
func (r *StageRunner) StopStage(ctx context.Context, orderID string, stage models.OrderStage) (TimerSnapshot, bool, error) {
	if !stage.IsTimed() {
		return TimerSnapshot{}, false, newValidationError("stage has no timer", "%s", stage)
	}

	r.mu.Lock()
	key := stageKey{orderID: orderID, stage: stage}
	run, ok := r.runs[key]
	if !ok {
		r.mu.Unlock()
		return idleSnapshot(orderID, stage), false, nil
	}
	if run.reminders != nil {
		run.reminders.Stop()
	}
	delete(r.runs, key)
	r.mu.Unlock()

	stopped, err := run.timer.Stop(ctx)
	snapshot := run.timer.Snapshot()
	if err != nil {
		if run.timer.StopPending() {
			// повторный StopStage дочистит состояние
			r.mu.Lock()
			if _, taken := r.runs[key]; !taken {
				r.runs[key] = &stageRun{timer: run.timer}
			}
			r.mu.Unlock()
		}
		return snapshot, stopped, err
	}
	if stopped {
		r.audit.LogEvent(ctx, orderID, stage, AuditTimerStopped,
			fmt.Sprintf("%s stage timer stopped with %s left", stage, FormatTime(snapshot.TimeLeftSeconds)),
			nil, map[string]interface{}{"time_left_seconds": snapshot.TimeLeftSeconds})
		r.publish(ctx, EventTimerStopped, snapshot)
	}
	return snapshot, stopped, nil
}

// Snapshot возвращает состояние таймера; если таймер есть только в
// хранилище, он восстанавливается
func (r *StageRunner) Snapshot(ctx context.Context, orderID string, stage models.OrderStage) (TimerSnapshot, error) {
	if !stage.IsTimed() {
		return TimerSnapshot{}, newValidationError("stage has no timer", "%s", stage)
	}

	r.mu.Lock()
	run, ok := r.runs[stageKey{orderID: orderID, stage: stage}]
	r.mu.Unlock()
	if ok {
		return run.timer.Snapshot(), nil
	}

	timer, err := r.resume(ctx, TimerRecord{OrderID: orderID, Stage: stage})
	if err != nil {
		return TimerSnapshot{}, err
	}
	if timer == nil {
		return idleSnapshot(orderID, stage), nil
	}
	return timer.Snapshot(), nil
}

// resume восстанавливает таймер из хранилища и регистрирует его, если он
// еще идет. Завершившийся офлайн таймер сразу переводит заказ дальше.
func (r *StageRunner) resume(ctx context.Context, record TimerRecord) (*StageTimer, error) {
	timer := r.newTimer(record.OrderID, record.Stage)
	found, err := timer.Recover(ctx)
	if err != nil || !found {
		return nil, err
	}
	if timer.Status() != TimerRunning {
		return timer, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	key := stageKey{orderID: record.OrderID, stage: record.Stage}
	if existing, ok := r.runs[key]; ok {
		timer.Release()
		return existing.timer, nil
	}
	run := &stageRun{timer: timer}
	r.startRemindersLocked(run, record.OrderID, record.Stage)
	r.runs[key] = run
	return timer, nil
}

// Restore поднимает все сохраненные таймеры после перезапуска сервера.
// Записи заказов, ушедших с этапа, удаляются.
func (r *StageRunner) Restore(ctx context.Context) (int, error) {
	records, err := r.timers.List(ctx)
	if err != nil {
		return 0, persistErr("list timers", err)
	}

	restored := 0
	for _, record := range records {
		order, err := r.orders.GetOrder(ctx, record.OrderID)
		if err != nil && !errors.Is(err, ErrOrderNotFound) {
			r.log.Warn("restore: не удалось загрузить заказ", zap.String("order_id", record.OrderID), zap.Error(err))
			continue
		}
		if order == nil || order.CurrentStage != record.Stage {
			if err := r.timers.Delete(ctx, record.OrderID, record.Stage); err != nil {
				r.log.Warn("restore: не удалось удалить устаревший таймер", zap.String("order_id", record.OrderID), zap.Error(err))
			}
			continue
		}

		timer, err := r.resume(ctx, record)
		if err != nil {
			r.log.Warn("restore: не удалось восстановить таймер",
				zap.String("order_id", record.OrderID), zap.String("stage", string(record.Stage)), zap.Error(err))
			continue
		}
		if timer != nil {
			restored++
		}
	}

	r.log.Info("stage timers restored", zap.Int("count", restored), zap.Int("scanned", len(records)))
	return restored, nil
}

// Shutdown останавливает отсчет и напоминания, не трогая сохраненное состояние
func (r *StageRunner) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, run := range r.runs {
		run.timer.Release()
		if run.reminders != nil {
			run.reminders.Stop()
		}
		delete(r.runs, key)
	}
}

// Active - число этапов с идущим таймером
func (r *StageRunner) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.runs)
}

func (r *StageRunner) publish(ctx context.Context, eventType string, s TimerSnapshot) {
	data := map[string]interface{}{
		"status":              string(s.Status),
		"duration_seconds":    s.DurationSeconds,
		"time_left_seconds":   s.TimeLeftSeconds,
		"time_left":           s.TimeLeft,
		"progress":            s.Progress,
		"imminent_completion": s.ImminentCompletion,
	}
	err := r.events.Publish(ctx, Event{
		Type:    eventType,
		OrderID: s.OrderID,
		Stage:   string(s.Stage),
		Data:    data,
		At:      r.clock.Now(),
	})
	if err != nil {
		r.log.Warn("stage runner: не удалось опубликовать событие",
			zap.String("event", eventType), zap.String("order_id", s.OrderID), zap.Error(err))
	}
}

func idleSnapshot(orderID string, stage models.OrderStage) TimerSnapshot {
	return TimerSnapshot{
		OrderID:  orderID,
		Stage:    stage,
		Status:   TimerIdle,
		TimeLeft: FormatTime(0),
	}
}
