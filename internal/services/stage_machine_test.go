package services

import (
	"context"
	"testing"

	"github.com/Chaitanya-pati/wheatflow-agro/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanAdvance(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		from    models.OrderStage
		trigger Trigger
		to      models.OrderStage
		status  models.OrderStage
		path    []models.OrderStage
	}{
		{models.StageCreated, TriggerBeginPlanning, models.StagePlanning, models.StagePlanning, []models.OrderStage{models.StagePlanning}},
		{models.StagePlanning, TriggerPlanningSaved, models.Stage24hCleaning, models.StagePlanned, []models.OrderStage{models.StagePlanned, models.Stage24hCleaning}},
		{models.Stage24hCleaning, TriggerTimerCompleted, models.Stage12hCleaning, models.Stage12hCleaning, []models.OrderStage{models.Stage12hCleaning}},
		{models.Stage12hCleaning, TriggerTimerCompleted, models.StageGrinding, models.StageGrinding, []models.OrderStage{models.StageGrinding}},
		{models.StageGrinding, TriggerTimerCompleted, models.StageCompleted, models.StageCompleted, []models.OrderStage{models.StageCompleted}},
	}
	for _, tt := range tests {
		t.Run(string(tt.from), func(t *testing.T) {
			change, path, err := env.machine.PlanAdvance(tt.from, tt.trigger)
			require.NoError(t, err)
			assert.Equal(t, tt.from, change.From)
			assert.Equal(t, tt.to, change.To)
			assert.Equal(t, tt.status, change.Status)
			assert.Equal(t, tt.path, path)
		})
	}
}

func TestPlanAdvance_RejectsWrongTrigger(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.machine.PlanAdvance(models.StagePlanning, TriggerTimerCompleted)
	assert.True(t, IsValidationError(err))

	_, _, err = env.machine.PlanAdvance(models.StageCompleted, TriggerTimerCompleted)
	assert.True(t, IsValidationError(err))

	_, _, err = env.machine.PlanAdvance(models.StageOnHold, TriggerBeginPlanning)
	assert.True(t, IsValidationError(err))
}

func TestAdvance_StaleSignalConflicts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order := env.orderAt24hCleaning(t, "PO-200", 10)

	_, err := env.machine.Advance(ctx, order.ID, models.Stage24hCleaning, TriggerTimerCompleted)
	require.NoError(t, err)

	// Повторное завершение того же таймера
	_, err = env.machine.Advance(ctx, order.ID, models.Stage24hCleaning, TriggerTimerCompleted)
	assert.ErrorIs(t, err, ErrStageConflict)
	assert.Equal(t, models.Stage12hCleaning, env.reload(t, order.ID).CurrentStage)
}

func TestStagesNeverMoveBackwards(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order := env.orderAt24hCleaning(t, "PO-201", 10)

	_, err := env.orders.BeginPlanning(ctx, order.ID)
	assert.True(t, IsValidationError(err))

	last := env.reload(t, order.ID).CurrentStage.Position()
	for _, from := range []models.OrderStage{models.Stage24hCleaning, models.Stage12hCleaning, models.StageGrinding} {
		_, err := env.machine.Advance(ctx, order.ID, from, TriggerTimerCompleted)
		require.NoError(t, err)
		pos := env.reload(t, order.ID).CurrentStage.Position()
		assert.Greater(t, pos, last)
		last = pos
	}
	assert.Equal(t, models.StageCompleted, env.reload(t, order.ID).CurrentStage)

	// Одна запись аудита на каждый пройденный этап
	transitions := 0
	for _, eventType := range env.auditTypes(t, order.ID) {
		if eventType == AuditStageTransition {
			transitions++
		}
	}
	assert.Equal(t, 6, transitions) // planning, planned, 24h, 12h, grinding, completed
}

func TestHold(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order := env.orderInPlanning(t, "PO-202", 10)

	transition, err := env.orders.Hold(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StagePlanning, transition.From)
	assert.Equal(t, models.StageOnHold, transition.To)

	stored := env.reload(t, order.ID)
	assert.Equal(t, models.StageOnHold, stored.CurrentStage)
	assert.Equal(t, models.StageOnHold, stored.Status)

	_, err = env.orders.Hold(ctx, order.ID)
	assert.True(t, IsValidationError(err))
}

func TestCreateOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order := env.createOrder(t, "PO-203", 42.5)
	assert.Equal(t, models.StageCreated, order.CurrentStage)
	assert.Equal(t, models.PriorityMedium, order.Priority)
	assert.Equal(t, []string{AuditOrderCreated}, env.auditTypes(t, order.ID))

	_, err := env.orders.CreateOrder(ctx, CreateOrderInput{OrderNumber: "PO-204", QuantityTons: -1, FinishedGoodsType: "Atta"})
	assert.True(t, IsValidationError(err))
	_, err = env.orders.CreateOrder(ctx, CreateOrderInput{OrderNumber: " ", QuantityTons: 1, FinishedGoodsType: "Atta"})
	assert.True(t, IsValidationError(err))
	_, err = env.orders.CreateOrder(ctx, CreateOrderInput{OrderNumber: "PO-205", QuantityTons: 1, FinishedGoodsType: "Atta", Priority: "urgent"})
	assert.True(t, IsValidationError(err))

	_, err = env.orders.GetOrder(ctx, "nope")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}
