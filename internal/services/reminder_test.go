package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Chaitanya-pati/wheatflow-agro/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReminderScheduler_FiresRepeatedlyUntilStopped(t *testing.T) {
	var (
		mu      sync.Mutex
		prompts []ReminderPrompt
	)
	scheduler := NewReminderScheduler("order-1", models.StageGrinding, 10*time.Millisecond, newManualClock(), func(p ReminderPrompt) {
		mu.Lock()
		defer mu.Unlock()
		prompts = append(prompts, p)
	}, nil)

	scheduler.Start()
	scheduler.Start() // вторая цепочка не создается
	assert.True(t, scheduler.Active())

	assert.Eventually(t, func() bool { return scheduler.Fired() >= 3 }, 2*time.Second, 5*time.Millisecond)

	scheduler.Stop()
	scheduler.Stop()
	assert.False(t, scheduler.Active())

	fired := scheduler.Fired()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, fired, scheduler.Fired())

	mu.Lock()
	defer mu.Unlock()
	for i, p := range prompts {
		assert.Equal(t, i+1, p.Sequence)
		assert.Equal(t, "order-1", p.OrderID)
	}
}

func TestReminderScheduler_RestartAfterStop(t *testing.T) {
	scheduler := NewReminderScheduler("order-1", models.Stage12hCleaning, 5*time.Millisecond, nil, nil, nil)
	scheduler.Start()
	scheduler.Stop()
	scheduler.Start()
	t.Cleanup(scheduler.Stop)

	assert.Eventually(t, func() bool { return scheduler.Fired() >= 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 5*time.Millisecond, scheduler.Interval())
}

func TestReminderScheduler_ZeroIntervalNeverStarts(t *testing.T) {
	scheduler := NewReminderScheduler("order-1", models.StageGrinding, 0, nil, nil, nil)
	scheduler.Start()
	assert.False(t, scheduler.Active())
	scheduler.Stop()
}

func TestRespondToReminder_OnlyOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order := env.orderAt24hCleaning(t, "PO-300", 20)

	reminder, err := env.reminders.CreateReminder(ctx, order.ID, models.Stage24hCleaning)
	require.NoError(t, err)
	assert.False(t, reminder.IsResponded)
	assert.Equal(t, 60, reminder.ReminderIntervalSeconds)
	assert.Equal(t, models.ReminderManualCleaning, reminder.ReminderType)

	env.clock.Advance(90 * time.Second)
	notes := "sieve clear"
	responded, err := env.reminders.RespondToReminder(ctx, reminder.ID, RespondInput{
		BeforePhotoURL: "https://photos/before.jpg",
		AfterPhotoURL:  "https://photos/after.jpg",
		Notes:          &notes,
	})
	require.NoError(t, err)
	assert.True(t, responded.IsResponded)
	require.NotNil(t, responded.ActualResponseTime)
	assert.Equal(t, env.clock.Now(), *responded.ActualResponseTime)
	require.NotNil(t, responded.BeforePhotoURL)
	assert.Equal(t, "https://photos/before.jpg", *responded.BeforePhotoURL)
	assert.Equal(t, "Cleaning reminder "+reminder.ID+" for 24h_cleaning stage responded with before/after photos",
		RespondedMessage(responded))

	_, err = env.reminders.RespondToReminder(ctx, reminder.ID, RespondInput{
		BeforePhotoURL: "https://photos/b2.jpg",
		AfterPhotoURL:  "https://photos/a2.jpg",
	})
	assert.True(t, IsValidationError(err))

	stored, err := env.store.GetReminder(ctx, reminder.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://photos/before.jpg", *stored.BeforePhotoURL)
	assert.Len(t, env.events.ofType(EventReminderResponded), 1)
}

func TestRespondToReminder_RequiresBothPhotos(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order := env.orderAt24hCleaning(t, "PO-301", 20)
	reminder, err := env.reminders.CreateReminder(ctx, order.ID, models.Stage24hCleaning)
	require.NoError(t, err)

	tests := []struct {
		before, after, detail string
	}{
		{"", "", "both photos are missing"},
		{"", "https://photos/after.jpg", "before photo is missing"},
		{"https://photos/before.jpg", "  ", "after photo is missing"},
	}
	for _, tt := range tests {
		_, err := env.reminders.RespondToReminder(ctx, reminder.ID, RespondInput{BeforePhotoURL: tt.before, AfterPhotoURL: tt.after})
		var vErr *ValidationError
		require.True(t, errors.As(err, &vErr))
		assert.Equal(t, tt.detail, vErr.Detail)
	}

	stored, err := env.store.GetReminder(ctx, reminder.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsResponded)
	assert.Nil(t, stored.ActualResponseTime)
	assert.Nil(t, stored.BeforePhotoURL)
}

func TestRespondToReminder_Unknown(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.reminders.RespondToReminder(context.Background(), "missing", RespondInput{
		BeforePhotoURL: "b", AfterPhotoURL: "a",
	})
	assert.ErrorIs(t, err, ErrReminderNotFound)
}

func TestSchedulePreEndWarning(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order := env.orderAt24hCleaning(t, "PO-302", 20)

	warning, err := env.reminders.SchedulePreEndWarning(ctx, order.ID, models.Stage24hCleaning, 15)
	require.NoError(t, err)
	assert.Equal(t, models.ReminderPreEndWarning, warning.ReminderType)
	assert.Equal(t, env.clock.Now().Add(15*time.Minute), warning.ScheduledTime)
	assert.Equal(t, 0, warning.ReminderIntervalSeconds)

	_, err = env.reminders.SchedulePreEndWarning(ctx, order.ID, models.Stage24hCleaning, 0)
	assert.True(t, IsValidationError(err))
	_, err = env.reminders.SchedulePreEndWarning(ctx, order.ID, models.StagePlanning, 5)
	assert.True(t, IsValidationError(err))

	_, err = env.reminders.CreateReminder(ctx, order.ID, models.Stage24hCleaning)
	require.NoError(t, err)
	reminders, err := env.reminders.ListReminders(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, reminders, 2)
	assert.Equal(t, models.ReminderPreEndWarning, reminders[0].ReminderType) // позже по времени
}
