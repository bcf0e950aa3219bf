package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// LogSink пишет уведомления в лог
type LogSink struct {
	log *slog.Logger
}

func NewLogSink(log *slog.Logger) *LogSink { return &LogSink{log: log} }

func (s *LogSink) Deliver(ctx context.Context, e Event) error {
	s.log.InfoContext(ctx, "notification",
		"entity_type", e.EntityType,
		"entity_id", e.EntityID,
		"recipient_id", e.RecipientID,
		"title", e.Title,
		"message", e.Message)
	return nil
}

// Producer часть kafka.Writer, нужная sink'у
type Producer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaSink публикует уведомления в топик; ключ сообщения = id сущности
type KafkaSink struct {
	producer Producer
	topic    string
}

func NewKafkaSink(producer Producer, topic string) *KafkaSink {
	return &KafkaSink{producer: producer, topic: topic}
}

func NewKafkaWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
	}
}

func (s *KafkaSink) Deliver(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	headers := []kafka.Header{
		{Key: "event_type", Value: []byte("notification." + string(e.EntityType))},
	}
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	for k, v := range carrier {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	msg := kafka.Message{
		Topic:   s.topic,
		Key:     []byte(e.EntityID),
		Value:   payload,
		Headers: headers,
	}
	if err := s.producer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}
