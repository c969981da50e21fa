package api

import (
	"context"
	"time"

	"github.com/Chaitanya-pati/wheatflow-agro/internal/services"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// KafkaEventPublisher отправляет события производства в Kafka бинарным
// Protobuf (google.protobuf.Struct). Тики таймера в шину не идут.
type KafkaEventPublisher struct {
	writer *kafka.Writer
	log    *zap.Logger
}

func NewKafkaEventPublisher(brokers []string, topic string, transport *kafka.Transport, log *zap.Logger) *KafkaEventPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{}, // Ключ = ID заказа, события заказа идут по порядку
		Async:        true,
		BatchTimeout: 50 * time.Millisecond,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				log.Warn("kafka: ошибка отправки событий", zap.Int("messages", len(messages)), zap.Error(err))
			}
		},
	}
	if transport != nil {
		writer.Transport = transport
	}
	log.Info("kafka: producer событий подключен", zap.Strings("brokers", brokers), zap.String("topic", topic))
	return &KafkaEventPublisher{writer: writer, log: log}
}

// EncodeEvent сериализует событие в google.protobuf.Struct
func EncodeEvent(event services.Event) ([]byte, error) {
	data := make(map[string]interface{}, len(event.Data))
	for k, v := range event.Data {
		data[k] = v
	}
	payload, err := structpb.NewStruct(map[string]interface{}{
		"type":      event.Type,
		"order_id":  event.OrderID,
		"stage":     event.Stage,
		"timestamp": event.At.UTC().Format(time.RFC3339Nano),
		"data":      data,
	})
	if err != nil {
		return nil, err
	}
	return proto.Marshal(payload)
}

func (p *KafkaEventPublisher) Publish(ctx context.Context, event services.Event) error {
	if event.Type == services.EventTimerTick {
		return nil
	}
	value, err := EncodeEvent(event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.OrderID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	})
}

func (p *KafkaEventPublisher) Close() error {
	return p.writer.Close()
}
