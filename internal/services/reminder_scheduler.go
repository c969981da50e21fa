package services

import (
	"sync"
	"time"

	"github.com/Chaitanya-pati/wheatflow-agro/internal/models"

	"go.uber.org/zap"
)

// ReminderPrompt - срабатывание напоминания об очистке
type ReminderPrompt struct {
	OrderID         string            `json:"order_id"`
	Stage           models.OrderStage `json:"stage"`
	IntervalSeconds int               `json:"interval_seconds"`
	Sequence        int               `json:"sequence"`
	At              time.Time         `json:"at"`
}

// ReminderScheduler - цепочка одноразовых таймеров: каждое срабатывание
// показывает напоминание и планирует следующее. Ожидающий таймер хранится,
// чтобы Stop всегда его отменял.
type ReminderScheduler struct {
	mu       sync.Mutex
	orderID  string
	stage    models.OrderStage
	interval time.Duration
	clock    Clock
	onPrompt func(ReminderPrompt)
	log      *zap.Logger

	pending    *time.Timer
	generation int
	fired      int
	active     bool
}

func NewReminderScheduler(orderID string, stage models.OrderStage, interval time.Duration, clock Clock, onPrompt func(ReminderPrompt), log *zap.Logger) *ReminderScheduler {
	if clock == nil {
		clock = SystemClock()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ReminderScheduler{
		orderID:  orderID,
		stage:    stage,
		interval: interval,
		clock:    clock,
		onPrompt: onPrompt,
		log:      log.With(zap.String("order_id", orderID), zap.String("stage", string(stage))),
	}
}

// Start запускает цепочку; повторный Start при активной цепочке ничего не делает
func (s *ReminderScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active || s.interval <= 0 {
		return
	}
	s.active = true
	s.generation++
	s.scheduleLocked(s.generation)
	s.log.Info("cleaning reminders started", zap.Duration("interval", s.interval))
}

func (s *ReminderScheduler) scheduleLocked(gen int) {
	s.pending = time.AfterFunc(s.interval, func() { s.fire(gen) })
}

func (s *ReminderScheduler) fire(gen int) {
	s.mu.Lock()
	// Таймер предыдущего запуска мог сработать до Stop
	if !s.active || gen != s.generation {
		s.mu.Unlock()
		return
	}
	s.fired++
	prompt := ReminderPrompt{
		OrderID:         s.orderID,
		Stage:           s.stage,
		IntervalSeconds: int(s.interval / time.Second),
		Sequence:        s.fired,
		At:              s.clock.Now(),
	}
	s.scheduleLocked(gen)
	s.mu.Unlock()

	if s.onPrompt != nil {
		s.onPrompt(prompt)
	}
}

// Stop отменяет ожидающее напоминание; безопасно вызывать повторно
func (s *ReminderScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
	}
	if s.active {
		s.log.Info("cleaning reminders stopped", zap.Int("fired", s.fired))
	}
	s.active = false
	s.generation++
}

func (s *ReminderScheduler) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *ReminderScheduler) Interval() time.Duration {
	return s.interval
}

// Fired - число показанных напоминаний
func (s *ReminderScheduler) Fired() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fired
}
