package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/Chaitanya-pati/wheatflow-agro/internal/models"

	"go.uber.org/zap"
)

// TimerStatus - состояние таймера этапа
type TimerStatus string

const (
	TimerIdle      TimerStatus = "idle"
	TimerRunning   TimerStatus = "running"
	TimerCompleted TimerStatus = "completed"
	TimerStopped   TimerStatus = "stopped"
)

// ImminentCompletionSeconds - порог предупреждения о скором завершении
const ImminentCompletionSeconds = 300

// TimerSnapshot - состояние таймера для API и событий
type TimerSnapshot struct {
	OrderID            string            `json:"order_id"`
	Stage              models.OrderStage `json:"stage"`
	Status             TimerStatus       `json:"status"`
	DurationSeconds    int64             `json:"duration_seconds"`
	TimeLeftSeconds    int64             `json:"time_left_seconds"`
	TimeLeft           string            `json:"time_left"`
	Progress           float64           `json:"progress"`
	StartTime          *time.Time        `json:"start_time,omitempty"`
	EndTime            *time.Time        `json:"end_time,omitempty"`
	ImminentCompletion bool              `json:"imminent_completion"`
}

// TimerOptions - параметры и обработчики таймера
type TimerOptions struct {
	TickInterval time.Duration
	OnTick       func(TimerSnapshot)
	OnComplete   func(TimerSnapshot)
}

// StageTimer - обратный отсчет этапа для пары (заказ, этап).
// Состояние пишется в TimerStore на каждом тике и восстанавливается по
// времени окончания.
//
// persistMu упорядочивает записи в хранилище и берется раньше mu: запись
// тика делается только если таймер все еще идет, поэтому остановленный
// таймер не может вернуться в хранилище.
type StageTimer struct {
	persistMu sync.Mutex
	mu        sync.Mutex

	orderID string
	stage   models.OrderStage
	store   TimerStore
	clock   Clock
	log     *zap.Logger
	opts    TimerOptions

	status    TimerStatus
	duration  int64
	timeLeft  int64
	startTime time.Time
	endTime   time.Time
	stopCh    chan struct{}

	// остановка не записана в хранилище, Stop повторит очистку
	stopPending bool
}

func NewStageTimer(orderID string, stage models.OrderStage, store TimerStore, clock Clock, log *zap.Logger, opts TimerOptions) *StageTimer {
	if clock == nil {
		clock = SystemClock()
	}
	if log == nil {
		log = zap.NewNop()
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}
	return &StageTimer{
		orderID: orderID,
		stage:   stage,
		store:   store,
		clock:   clock,
		log:     log.With(zap.String("order_id", orderID), zap.String("stage", string(stage))),
		opts:    opts,
		status:  TimerIdle,
	}
}

// Start запускает отсчет на durationHours часов (из Idle, Completed или Stopped)
func (t *StageTimer) Start(ctx context.Context, durationHours int) (TimerSnapshot, error) {
	if durationHours <= 0 {
		return TimerSnapshot{}, newValidationError("invalid timer duration", "%dh", durationHours)
	}

	t.persistMu.Lock()
	defer t.persistMu.Unlock()
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status == TimerRunning {
		return t.snapshotLocked(), ErrTimerRunning
	}

	now := t.clock.Now()
	duration := int64(durationHours) * 3600
	record := TimerRecord{
		OrderID:         t.orderID,
		Stage:           t.stage,
		Active:          true,
		DurationSeconds: duration,
		TimeLeftSeconds: duration,
		StartTime:       now,
		EndTime:         now.Add(time.Duration(duration) * time.Second),
	}
	if err := t.store.Save(ctx, record); err != nil {
		return t.snapshotLocked(), persistErr("save timer state", err)
	}

	t.stopPending = false
	t.apply(record, duration)
	t.launchLocked()
	t.log.Info("stage timer started", zap.Int("hours", durationHours))
	return t.snapshotLocked(), nil
}

// Recover восстанавливает таймер из хранилища: остаток считается от времени
// окончания. Если время вышло, таймер сразу завершается. Возвращает false,
// если сохраненного состояния нет или таймер был остановлен.
func (t *StageTimer) Recover(ctx context.Context) (bool, error) {
	t.persistMu.Lock()
	t.mu.Lock()
	unlock := func() {
		t.mu.Unlock()
		t.persistMu.Unlock()
	}
	if t.status == TimerRunning {
		unlock()
		return true, nil
	}

	record, err := t.store.Load(ctx, t.orderID, t.stage)
	if err != nil {
		unlock()
		if errors.Is(err, ErrTimerStateNotFound) {
			return false, nil
		}
		return false, persistErr("load timer state", err)
	}
	if !record.Active {
		// метка остановки, оставленная при неудачном удалении
		if err := t.store.Delete(ctx, t.orderID, t.stage); err != nil {
			t.log.Warn("stage timer: не удалось удалить метку остановки", zap.Error(err))
		}
		unlock()
		return false, nil
	}

	now := t.clock.Now()
	if !now.Before(record.EndTime) {
		t.apply(*record, 0)
		snapshot := t.completeLocked(ctx)
		unlock()
		t.log.Info("stage timer completed while offline")
		t.notifyComplete(snapshot)
		return true, nil
	}

	left := int64(math.Floor(record.EndTime.Sub(now).Seconds()))
	if left > record.DurationSeconds {
		left = record.DurationSeconds
	}
	t.apply(*record, left)
	t.launchLocked()
	unlock()
	t.log.Info("stage timer recovered", zap.Int64("time_left_seconds", left))
	return true, nil
}

// Tick уменьшает остаток на одну секунду. Возвращает false, когда таймер
// больше не идет.
func (t *StageTimer) Tick(ctx context.Context) bool {
	return t.tick(ctx, nil)
}

func (t *StageTimer) tick(ctx context.Context, loop chan struct{}) bool {
	t.persistMu.Lock()
	t.mu.Lock()
	if t.status != TimerRunning || (loop != nil && t.stopCh != loop) {
		t.mu.Unlock()
		t.persistMu.Unlock()
		return false
	}

	t.timeLeft--
	if t.timeLeft <= 0 {
		t.timeLeft = 0
		snapshot := t.completeLocked(ctx)
		t.mu.Unlock()
		t.persistMu.Unlock()
		t.log.Info("stage timer completed")
		t.notifyComplete(snapshot)
		return false
	}

	record := t.recordLocked()
	snapshot := t.snapshotLocked()
	t.mu.Unlock()

	// Stop ждет persistMu, так что запись не переживет остановку
	if err := t.store.Save(ctx, record); err != nil {
		t.log.Warn("stage timer: не удалось сохранить состояние", zap.Error(err))
	}
	t.persistMu.Unlock()

	if t.opts.OnTick != nil {
		t.opts.OnTick(snapshot)
	}
	return true
}

// Stop останавливает идущий таймер и очищает сохраненное состояние.
// Повторный вызов ничего не делает и возвращает false; если прошлая
// очистка не удалась, она повторяется.
func (t *StageTimer) Stop(ctx context.Context) (bool, error) {
	t.persistMu.Lock()
	defer t.persistMu.Unlock()
	t.mu.Lock()
	defer t.mu.Unlock()

	switch {
	case t.status == TimerRunning:
		t.haltLocked()
		t.status = TimerStopped
	case t.status == TimerStopped && t.stopPending:
	default:
		return false, nil
	}

	if err := t.clearLocked(ctx); err != nil {
		t.stopPending = true
		return true, persistErr("delete timer state", err)
	}
	t.stopPending = false
	t.log.Info("stage timer stopped", zap.Int64("time_left_seconds", t.timeLeft))
	return true, nil
}

// clearLocked удаляет состояние; если удаление не прошло, пишет неактивную
// запись, которую Recover не поднимет
func (t *StageTimer) clearLocked(ctx context.Context) error {
	delErr := t.store.Delete(ctx, t.orderID, t.stage)
	if delErr == nil {
		return nil
	}
	if err := t.store.Save(ctx, t.recordLocked()); err != nil {
		return errors.Join(delErr, err)
	}
	t.log.Warn("stage timer: состояние не удалено, записана метка остановки", zap.Error(delErr))
	return nil
}

// StopPending - остановка еще не записана в хранилище
func (t *StageTimer) StopPending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopPending
}

// Release останавливает отсчет в этом процессе, оставляя сохраненное
// состояние для восстановления после перезапуска
func (t *StageTimer) Release() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.haltLocked()
}

func (t *StageTimer) Snapshot() TimerSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *StageTimer) Status() TimerStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

func (t *StageTimer) apply(record TimerRecord, timeLeft int64) {
	t.status = TimerRunning
	t.duration = record.DurationSeconds
	t.timeLeft = timeLeft
	t.startTime = record.StartTime
	t.endTime = record.EndTime
}

func (t *StageTimer) launchLocked() {
	t.haltLocked()
	stop := make(chan struct{})
	t.stopCh = stop
	go t.run(stop)
}

func (t *StageTimer) run(stop chan struct{}) {
	ticker := time.NewTicker(t.opts.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !t.tick(context.Background(), stop) {
				return
			}
		}
	}
}

func (t *StageTimer) haltLocked() {
	if t.stopCh != nil {
		close(t.stopCh)
		t.stopCh = nil
	}
}

func (t *StageTimer) completeLocked(ctx context.Context) TimerSnapshot {
	t.haltLocked()
	t.status = TimerCompleted
	t.timeLeft = 0
	if err := t.store.Delete(ctx, t.orderID, t.stage); err != nil {
		t.log.Warn("stage timer: не удалось очистить состояние", zap.Error(err))
	}
	return t.snapshotLocked()
}

func (t *StageTimer) notifyComplete(snapshot TimerSnapshot) {
	if t.opts.OnComplete != nil {
		t.opts.OnComplete(snapshot)
	}
}

func (t *StageTimer) recordLocked() TimerRecord {
	return TimerRecord{
		OrderID:         t.orderID,
		Stage:           t.stage,
		Active:          t.status == TimerRunning,
		DurationSeconds: t.duration,
		TimeLeftSeconds: t.timeLeft,
		StartTime:       t.startTime,
		EndTime:         t.endTime,
	}
}

func (t *StageTimer) snapshotLocked() TimerSnapshot {
	status := t.status
	if status == TimerStopped {
		status = TimerIdle
	}
	snapshot := TimerSnapshot{
		OrderID:            t.orderID,
		Stage:              t.stage,
		Status:             status,
		DurationSeconds:    t.duration,
		TimeLeftSeconds:    t.timeLeft,
		TimeLeft:           FormatTime(t.timeLeft),
		Progress:           Progress(t.duration, t.timeLeft),
		ImminentCompletion: t.status == TimerRunning && t.timeLeft <= ImminentCompletionSeconds,
	}
	if !t.startTime.IsZero() {
		start, end := t.startTime, t.endTime
		snapshot.StartTime = &start
		snapshot.EndTime = &end
	}
	return snapshot
}

// FormatTime выводит секунды как "1h 1m 1s", опуская ведущие нулевые единицы
func FormatTime(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60

	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, secs)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, secs)
	default:
		return fmt.Sprintf("%ds", secs)
	}
}

// Progress - процент прошедшего времени; 0 для нулевой длительности
func Progress(duration, timeLeft int64) float64 {
	if duration <= 0 {
		return 0
	}
	return float64(duration-timeLeft) / float64(duration) * 100
}
