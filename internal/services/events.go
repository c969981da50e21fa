package services

import (
	"context"
	"errors"
	"time"
)

// Типы событий производства
const (
	EventStageAdvanced     = "stage_advanced"
	EventTimerStarted      = "timer_started"
	EventTimerTick         = "timer_tick"
	EventTimerCompleted    = "timer_completed"
	EventTimerStopped      = "timer_stopped"
	EventReminderPrompt    = "reminder_prompt"
	EventReminderResponded = "reminder_responded"
)

// Event - событие для операторских экранов и шины событий
type Event struct {
	Type    string                 `json:"type"`
	OrderID string                 `json:"order_id"`
	Stage   string                 `json:"stage,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
	At      time.Time              `json:"timestamp"`
}

// EventPublisher доставляет события подписчикам (WebSocket, Kafka)
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher отбрасывает события
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

// MultiPublisher рассылает событие всем публикаторам и собирает ошибки
type MultiPublisher []EventPublisher

func (m MultiPublisher) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func orNopPublisher(p EventPublisher) EventPublisher {
	if p == nil {
		return NopPublisher{}
	}
	return p
}
