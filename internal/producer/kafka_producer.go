package producer

import (
	"context"
	"encoding/json"
	"time"

	"wishlist-service/internal/events"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type EmailProducer struct {
	writer *kafka.Writer
}

// NewEmailProducer создаёт асинхронный writer: SendEmail не ждёт брокер,
// ошибки доставки попадают в лог через Completion.
func NewEmailProducer(brokers []string, topic string, log *zap.Logger) *EmailProducer {
	return &EmailProducer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireAll,
			Async:        true,
			Completion: func(messages []kafka.Message, err error) {
				if err != nil {
					log.Error("Ошибка отправки писем в Kafka", zap.Int("count", len(messages)), zap.Error(err))
				}
			},
		},
	}
}

type EmailMessage struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject"`
	Template string         `json:"template"`
	Data     map[string]any `json:"data"`
}

func (p *EmailProducer) SendEmail(ctx context.Context, key string, msg EmailMessage) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	value, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
	})
}

func (p *EmailProducer) Close() error {
	return p.writer.Close()
}

// EventProducer пишет события изменений в топик с ключом wishlist_id:
// события одного вишлиста попадают в одну партицию и читаются по порядку.
type EventProducer struct {
	writer *kafka.Writer
}

func NewEventProducer(brokers []string, topic string) *EventProducer {
	return &EventProducer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		},
	}
}

func (p *EventProducer) Publish(ctx context.Context, e events.Event) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	value, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.WishlistID.String()),
		Value: value,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(e.Type)},
		},
	})
}

func (p *EventProducer) Close() error {
	return p.writer.Close()
}
