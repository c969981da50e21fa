package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStageSequenceIsLinear(t *testing.T) {
	for i, stage := range StageSequence {
		assert.Equal(t, i, stage.Position(), stage)
		next, ok := stage.Next()
		if i == len(StageSequence)-1 {
			assert.False(t, ok)
			assert.Empty(t, next)
			continue
		}
		assert.True(t, ok)
		assert.Equal(t, StageSequence[i+1], next)
	}
}

func TestStageClassification(t *testing.T) {
	timed := []OrderStage{Stage24hCleaning, Stage12hCleaning, StageGrinding}
	for _, s := range timed {
		assert.True(t, s.IsTimed(), s)
	}
	for _, s := range []OrderStage{StageCreated, StagePlanning, StagePlanned, StageCompleted, StageOnHold} {
		assert.False(t, s.IsTimed(), s)
	}

	assert.True(t, StagePlanned.IsPassThrough())
	assert.False(t, StagePlanning.IsPassThrough())
	assert.True(t, StageCompleted.IsTerminal())
	assert.False(t, StageGrinding.IsTerminal())
}

func TestOnHoldIsOutsideSequence(t *testing.T) {
	assert.True(t, StageOnHold.IsValid())
	assert.Equal(t, -1, StageOnHold.Position())
	_, ok := StageOnHold.Next()
	assert.False(t, ok)
}

func TestParseStage(t *testing.T) {
	stage, ok := ParseStage("12h_cleaning")
	assert.True(t, ok)
	assert.Equal(t, Stage12hCleaning, stage)

	_, ok = ParseStage("drying")
	assert.False(t, ok)
	_, ok = ParseStage("")
	assert.False(t, ok)
}

func TestOrderDefaults(t *testing.T) {
	order := &ProductionOrder{OrderNumber: "PO-1"}
	order.EnsureDefaults()

	assert.NotEmpty(t, order.ID)
	assert.Equal(t, PriorityMedium, order.Priority)
	assert.Equal(t, StageCreated, order.CurrentStage)
	assert.Equal(t, StageCreated, order.Status)

	assert.True(t, PriorityHigh.IsValid())
	assert.False(t, OrderPriority("urgent").IsValid())
}
