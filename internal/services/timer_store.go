package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Chaitanya-pati/wheatflow-agro/internal/models"
	"github.com/Chaitanya-pati/wheatflow-agro/internal/utils"
)

const timerKeyPrefix = "timer:"

// Запас TTL после окончания таймера, чтобы завершение успели досчитать после рестарта
const timerRetention = 24 * time.Hour

// TimerRecord - сохраненное состояние таймера этапа. Источник истины после
// восстановления - EndTime, а не TimeLeftSeconds.
type TimerRecord struct {
	OrderID         string            `json:"order_id"`
	Stage           models.OrderStage `json:"stage"`
	Active          bool              `json:"active"`
	DurationSeconds int64             `json:"duration_seconds"`
	TimeLeftSeconds int64             `json:"time_left_seconds"`
	StartTime       time.Time         `json:"start_time"`
	EndTime         time.Time         `json:"end_time"`
}

// TimerStore - долговременный блокнот таймеров (Redis)
type TimerStore interface {
	Save(ctx context.Context, record TimerRecord) error
	Load(ctx context.Context, orderID string, stage models.OrderStage) (*TimerRecord, error)
	Delete(ctx context.Context, orderID string, stage models.OrderStage) error
	List(ctx context.Context) ([]TimerRecord, error)
}

// ErrTimerStateNotFound - для пары (заказ, этап) нет сохраненного таймера
var ErrTimerStateNotFound = errors.New("timer state not found")

func timerKey(orderID string, stage models.OrderStage) string {
	return fmt.Sprintf("%s%s:%s", timerKeyPrefix, orderID, stage)
}

// RedisTimerStore хранит таймеры под ключами timer:{order_id}:{stage}
type RedisTimerStore struct {
	redis *utils.RedisClient
}

func NewRedisTimerStore(redis *utils.RedisClient) *RedisTimerStore {
	return &RedisTimerStore{redis: redis}
}

func (s *RedisTimerStore) Save(ctx context.Context, record TimerRecord) error {
	ttl := time.Until(record.EndTime) + timerRetention
	if ttl <= 0 {
		ttl = timerRetention
	}
	return s.redis.Set(ctx, timerKey(record.OrderID, record.Stage), record, ttl)
}

func (s *RedisTimerStore) Load(ctx context.Context, orderID string, stage models.OrderStage) (*TimerRecord, error) {
	var record TimerRecord
	if err := s.redis.GetJSON(ctx, timerKey(orderID, stage), &record); err != nil {
		if errors.Is(err, utils.ErrKeyNotFound) {
			return nil, ErrTimerStateNotFound
		}
		return nil, fmt.Errorf("load timer %s/%s: %w", orderID, stage, err)
	}
	return &record, nil
}

func (s *RedisTimerStore) Delete(ctx context.Context, orderID string, stage models.OrderStage) error {
	return s.redis.Delete(ctx, timerKey(orderID, stage))
}

func (s *RedisTimerStore) List(ctx context.Context) ([]TimerRecord, error) {
	keys, err := s.redis.ScanKeys(ctx, timerKeyPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("scan timer keys: %w", err)
	}
	records := make([]TimerRecord, 0, len(keys))
	for _, key := range keys {
		var record TimerRecord
		if err := s.redis.GetJSON(ctx, key, &record); err != nil {
			if errors.Is(err, utils.ErrKeyNotFound) {
				continue // истек между SCAN и GET
			}
			return nil, fmt.Errorf("load timer %s: %w", key, err)
		}
		records = append(records, record)
	}
	return records, nil
}

// MemoryTimerStore - таймеры в памяти (режим без Redis и тесты)
type MemoryTimerStore struct {
	mu      sync.Mutex
	records map[string]TimerRecord
	saves   int
}

func NewMemoryTimerStore() *MemoryTimerStore {
	return &MemoryTimerStore{records: make(map[string]TimerRecord)}
}

func (s *MemoryTimerStore) Save(_ context.Context, record TimerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[timerKey(record.OrderID, record.Stage)] = record
	s.saves++
	return nil
}

func (s *MemoryTimerStore) Load(_ context.Context, orderID string, stage models.OrderStage) (*TimerRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[timerKey(orderID, stage)]
	if !ok {
		return nil, ErrTimerStateNotFound
	}
	return &record, nil
}

func (s *MemoryTimerStore) Delete(_ context.Context, orderID string, stage models.OrderStage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, timerKey(orderID, stage))
	return nil
}

func (s *MemoryTimerStore) List(_ context.Context) ([]TimerRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := make([]TimerRecord, 0, len(s.records))
	for _, record := range s.records {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		return timerKey(records[i].OrderID, records[i].Stage) < timerKey(records[j].OrderID, records[j].Stage)
	})
	return records, nil
}

// Saves - число записей с момента создания (для тестов)
func (s *MemoryTimerStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
