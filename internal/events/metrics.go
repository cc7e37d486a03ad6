package events

import "github.com/prometheus/client_golang/prometheus"

var (
	// eventsPublished считает опубликованные события по типам.
	eventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetsync_events_published_total",
			Help: "Total number of fleet events published to the broadcaster.",
		},
		[]string{"type"},
	)

	// activeSubscriptions — текущее число живых подписок.
	activeSubscriptions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fleetsync_active_subscriptions",
			Help: "Number of active broadcaster subscriptions.",
		},
	)

	// subscriptionLimitExceeded считает регистрации сверх настроенного предела.
	subscriptionLimitExceeded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fleetsync_subscription_limit_exceeded_total",
			Help: "Number of subscriptions registered above the configured ceiling.",
		},
	)

	// subscriberPanics считает паники в callback-ах подписчиков, изолированные брокером.
	subscriberPanics = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fleetsync_subscriber_panics_total",
			Help: "Number of subscriber callback panics recovered during publish.",
		},
	)
)

func init() {
	prometheus.MustRegister(eventsPublished, activeSubscriptions, subscriptionLimitExceeded, subscriberPanics)
}
