package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"wishlist-service/internal/events"

	"go.uber.org/zap"
)

// EventRelay раздаёт события между экземплярами сервиса через Redis Pub/Sub.
// Publish отправляет событие в канал; Run читает канал и передаёт каждое
// событие локальному хабу, включая события этого же экземпляра.
type EventRelay struct {
	redis   *RedisClient
	channel string
	local   events.Publisher
	log     *zap.Logger
}

func NewEventRelay(r *RedisClient, channel string, local events.Publisher, log *zap.Logger) *EventRelay {
	return &EventRelay{redis: r, channel: channel, local: local, log: log}
}

func (e *EventRelay) Publish(ctx context.Context, ev events.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return e.redis.client.Publish(ctx, e.channel, payload).Err()
}

func (e *EventRelay) Run(ctx context.Context) error {
	sub := e.redis.client.Subscribe(ctx, e.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", e.channel, err)
	}
	e.log.Info("event relay subscribed", zap.String("channel", e.channel))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			e.log.Info("event relay stopped")
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var ev events.Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				e.log.Error("unmarshal relayed event", zap.String("payload", msg.Payload), zap.Error(err))
				continue
			}
			if err := e.local.Publish(ctx, ev); err != nil {
				e.log.Warn("deliver relayed event", zap.Error(err))
			}
		}
	}
}
