package events

import (
	"context"
	"sync"

	"wishlist-service/internal/metrics"

	"go.uber.org/zap"
)

const DefaultAsyncBuffer = 1024

// Async отдаёт события медленному приёмнику (Kafka и т.п.) через ограниченную
// очередь и одну горутину. Publish не ждёт приёмник: при полной очереди
// событие отбрасывается. Порядок событий сохраняется.
type Async struct {
	next  Publisher
	queue chan Event
	name  string
	log   *zap.Logger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewAsync(name string, next Publisher, buffer int, log *zap.Logger) *Async {
	if buffer <= 0 {
		buffer = DefaultAsyncBuffer
	}
	a := &Async{
		next:  next,
		queue: make(chan Event, buffer),
		name:  name,
		log:   log,
		done:  make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *Async) Publish(_ context.Context, e Event) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return nil
	}
	select {
	case a.queue <- e:
	default:
		metrics.EventsDropped.WithLabelValues("sink_full").Inc()
		a.log.Warn("очередь приёмника переполнена, событие отброшено",
			zap.String("sink", a.name),
			zap.String("type", string(e.Type)),
			zap.String("wishlist_id", e.WishlistID.String()))
	}
	return nil
}

func (a *Async) run() {
	defer close(a.done)
	for e := range a.queue {
		if err := a.next.Publish(context.Background(), e); err != nil {
			a.log.Warn("ошибка доставки события в приёмник",
				zap.String("sink", a.name),
				zap.String("type", string(e.Type)),
				zap.Error(err))
		}
	}
}

// Close перестаёт принимать события и дожидается отправки очереди.
func (a *Async) Close(ctx context.Context) error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()

	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
