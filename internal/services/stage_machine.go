package services

import (
	"context"
	"fmt"
	"time"

	"github.com/Chaitanya-pati/wheatflow-agro/internal/models"

	"go.uber.org/zap"
)

// Trigger - причина перехода заказа на следующий этап
type Trigger string

const (
	TriggerBeginPlanning  Trigger = "begin_planning"
	TriggerPlanningSaved  Trigger = "planning_saved"
	TriggerTimerCompleted Trigger = "timer_completed"
	TriggerOperatorHold   Trigger = "operator_hold"
)

// StageTransition - выполненный переход. Path содержит все пройденные этапы
// после From, включая проходные (planned).
type StageTransition struct {
	OrderID string              `json:"order_id"`
	From    models.OrderStage   `json:"from"`
	To      models.OrderStage   `json:"to"`
	Path    []models.OrderStage `json:"path"`
	Trigger Trigger             `json:"trigger"`
	At      time.Time           `json:"at"`
}

// StageMachine двигает заказ по фиксированной последовательности этапов.
// Сама ничего не инициирует: реагирует на сохранение планирования,
// завершение таймера и действия оператора.
type StageMachine struct {
	orders OrderStore
	audit  *AuditLogger
	events EventPublisher
	clock  Clock
	log    *zap.Logger
}

func NewStageMachine(orders OrderStore, audit *AuditLogger, events EventPublisher, clock Clock, log *zap.Logger) *StageMachine {
	if clock == nil {
		clock = SystemClock()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &StageMachine{
		orders: orders,
		audit:  audit,
		events: orNopPublisher(events),
		clock:  clock,
		log:    log,
	}
}

// triggerFor - единственный допустимый триггер выхода из этапа
func triggerFor(from models.OrderStage) (Trigger, bool) {
	switch {
	case from == models.StageCreated:
		return TriggerBeginPlanning, true
	case from == models.StagePlanning:
		return TriggerPlanningSaved, true
	case from.IsTimed():
		return TriggerTimerCompleted, true
	}
	return "", false
}

// PlanAdvance вычисляет переход из этапа from без записи в хранилище.
// Проходные этапы пропускаются: current_stage становится первым
// непроходным этапом, а status - последним проходным.
func (m *StageMachine) PlanAdvance(from models.OrderStage, trigger Trigger) (StageChange, []models.OrderStage, error) {
	expected, ok := triggerFor(from)
	if !ok {
		return StageChange{}, nil, newValidationError("stage cannot advance", "order is at %s", from)
	}
	if trigger != expected {
		return StageChange{}, nil, newValidationError("stage cannot advance", "%s requires %s, got %s", from, expected, trigger)
	}

	var path []models.OrderStage
	current := from
	for {
		next, ok := current.Next()
		if !ok {
			return StageChange{}, nil, newValidationError("stage cannot advance", "no stage after %s", current)
		}
		path = append(path, next)
		current = next
		if !next.IsPassThrough() {
			break
		}
	}

	status := current
	if len(path) > 1 {
		status = path[len(path)-2]
	}
	return StageChange{From: from, To: current, Status: status}, path, nil
}

// Advance переводит заказ из этапа from на следующий (compare-and-set).
// Устаревший сигнал (заказ уже не на from) возвращает ErrStageConflict.
func (m *StageMachine) Advance(ctx context.Context, orderID string, from models.OrderStage, trigger Trigger) (*StageTransition, error) {
	change, path, err := m.PlanAdvance(from, trigger)
	if err != nil {
		return nil, err
	}
	if err := m.orders.UpdateStage(ctx, orderID, change); err != nil {
		return nil, persistErr("advance stage", err)
	}
	return m.Record(ctx, orderID, from, path, trigger), nil
}

// Record пишет аудит и публикует событие для уже сохраненного перехода.
// Сбой аудита или публикации переход не отменяет.
func (m *StageMachine) Record(ctx context.Context, orderID string, from models.OrderStage, path []models.OrderStage, trigger Trigger) *StageTransition {
	now := m.clock.Now()
	prev := from
	for _, stage := range path {
		m.audit.LogEvent(ctx, orderID, stage, AuditStageTransition,
			fmt.Sprintf("Stage %s -> %s (%s)", prev, stage, trigger),
			map[string]interface{}{"stage": prev},
			map[string]interface{}{"stage": stage, "trigger": trigger})
		prev = stage
	}

	transition := &StageTransition{
		OrderID: orderID,
		From:    from,
		To:      prev,
		Path:    path,
		Trigger: trigger,
		At:      now,
	}

	if err := m.events.Publish(ctx, Event{
		Type:    EventStageAdvanced,
		OrderID: orderID,
		Stage:   string(prev),
		Data: map[string]interface{}{
			"from":    string(from),
			"to":      string(prev),
			"trigger": string(trigger),
		},
		At: now,
	}); err != nil {
		m.log.Warn("stage machine: не удалось опубликовать событие", zap.String("order_id", orderID), zap.Error(err))
	}

	m.log.Info("stage advanced",
		zap.String("order_id", orderID),
		zap.String("from", string(from)),
		zap.String("to", string(prev)),
		zap.String("trigger", string(trigger)))
	return transition
}

// Hold - ручная остановка заказа оператором с любого незавершенного этапа
func (m *StageMachine) Hold(ctx context.Context, orderID string) (*StageTransition, error) {
	order, err := m.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, persistErr("get order", err)
	}
	from := order.CurrentStage
	if from.IsTerminal() || from == models.StageOnHold {
		return nil, newValidationError("order cannot be put on hold", "order is at %s", from)
	}

	change := StageChange{From: from, To: models.StageOnHold, Status: models.StageOnHold}
	if err := m.orders.UpdateStage(ctx, orderID, change); err != nil {
		return nil, persistErr("hold order", err)
	}
	return m.Record(ctx, orderID, from, []models.OrderStage{models.StageOnHold}, TriggerOperatorHold), nil
}
