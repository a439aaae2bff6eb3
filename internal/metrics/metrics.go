package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "wishlist"

var (
	Operations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "operations_total",
		Help:      "Mutating operations by name and outcome.",
	}, []string{"op", "result"})

	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_published_total",
		Help:      "Change events handed to the notifier by type.",
	}, []string{"type"})

	EventsDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_delivered_total",
		Help:      "Change events queued to subscribers.",
	})

	EventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_dropped_total",
		Help:      "Change events not delivered to a subscriber.",
	}, []string{"reason"})

	Subscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "subscribers",
		Help:      "Active push-channel subscribers.",
	})

	URLParse = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "url_parse_total",
		Help:      "URL metadata requests by outcome.",
	}, []string{"result"})
)

// Outcome сводит ошибку к метке result.
func Outcome(err error, classes map[string]error) string {
	if err == nil {
		return "ok"
	}
	for label, target := range classes {
		if errors.Is(err, target) {
			return label
		}
	}
	return "error"
}
