package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Chaitanya-pati/wheatflow-agro/internal/config"
	"github.com/Chaitanya-pati/wheatflow-agro/internal/models"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *recordingPublisher) Publish(_ context.Context, event Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) ofType(eventType string) []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []Event
	for _, e := range p.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type testEnv struct {
	store     *MemoryStore
	timers    *MemoryTimerStore
	clock     *manualClock
	events    *recordingPublisher
	audit     *AuditLogger
	machine   *StageMachine
	orders    *ProductionOrderService
	planning  *PlanningService
	reminders *ReminderService
	outputs   *OutputService
	runner    *StageRunner
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := zap.NewNop()
	mill := config.DefaultMill()

	env := &testEnv{
		store:  NewMemoryStore(),
		timers: NewMemoryTimerStore(),
		clock:  newManualClock(),
		events: &recordingPublisher{},
	}
	env.audit = NewAuditLogger(env.store, env.clock, log)
	env.machine = NewStageMachine(env.store, env.audit, env.events, env.clock, log)
	env.orders = NewProductionOrderService(env.store, env.machine, env.audit, log)
	env.planning = NewPlanningService(env.store, NewBinCatalog(mill), env.machine, env.audit, config.DefaultAllocationTolerance, log)
	env.reminders = NewReminderService(env.store, mill.ReminderIntervals, env.audit, env.events, env.clock, log)
	env.outputs = NewOutputService(env.store, env.audit, log)
	env.runner = env.newRunner(t)
	env.orders.AttachStages(env.runner)
	return env
}

// newRunner - отдельный реестр на тех же хранилищах (имитация перезапуска).
// Тики идут только вручную.
func (e *testEnv) newRunner(t *testing.T) *StageRunner {
	t.Helper()
	return e.newRunnerWith(t, e.timers)
}

func (e *testEnv) newRunnerWith(t *testing.T, timers TimerStore) *StageRunner {
	t.Helper()
	runner := NewStageRunner(StageRunnerConfig{
		Orders:           e.store,
		Timers:           timers,
		Machine:          e.machine,
		Reminders:        e.reminders,
		Audit:            e.audit,
		Events:           e.events,
		Clock:            e.clock,
		AllowedDurations: config.DefaultMill().AllowedDurations,
		TickInterval:     time.Hour,
		Logger:           zap.NewNop(),
	})
	t.Cleanup(runner.Shutdown)
	return runner
}

func (e *testEnv) createOrder(t *testing.T, number string, quantity float64) *models.ProductionOrder {
	t.Helper()
	order, err := e.orders.CreateOrder(context.Background(), CreateOrderInput{
		OrderNumber:       number,
		QuantityTons:      quantity,
		FinishedGoodsType: "Maida",
	})
	require.NoError(t, err)
	return order
}

func (e *testEnv) orderInPlanning(t *testing.T, number string, quantity float64) *models.ProductionOrder {
	t.Helper()
	order := e.createOrder(t, number, quantity)
	_, err := e.orders.BeginPlanning(context.Background(), order.ID)
	require.NoError(t, err)
	return order
}

// orderAt24hCleaning - заказ с сохраненным планом {A:40, B:35, C:25}
func (e *testEnv) orderAt24hCleaning(t *testing.T, number string, quantity float64) *models.ProductionOrder {
	t.Helper()
	order := e.orderInPlanning(t, number, quantity)
	_, err := e.planning.ComputeAndSaveAllocation(context.Background(), order.ID, quantity,
		map[string]float64{"A": 40, "B": 35, "C": 25}, nil)
	require.NoError(t, err)
	return e.reload(t, order.ID)
}

func (e *testEnv) reload(t *testing.T, id string) *models.ProductionOrder {
	t.Helper()
	order, err := e.store.GetOrder(context.Background(), id)
	require.NoError(t, err)
	return order
}

func (e *testEnv) auditTypes(t *testing.T, orderID string) []string {
	t.Helper()
	entries, err := e.store.ListAuditEntries(context.Background(), orderID)
	require.NoError(t, err)
	types := make([]string, 0, len(entries))
	for _, entry := range entries {
		types = append(types, entry.EventType)
	}
	return types
}
