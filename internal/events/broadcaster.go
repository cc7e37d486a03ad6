package events

import (
	"sync"
	"time"

	"log/slog"

	"github.com/fleetflow/fleetsync/internal/domain"
)

// DefaultMaxSubscriptions — верхний предел одновременных подписок по умолчанию.
// Дашборды автопарка малочисленны, предел существует только чтобы заметить утечку.
const DefaultMaxSubscriptions = 100

// Callback получает каждое событие, опубликованное за время жизни подписки.
type Callback func(domain.FleetEvent)

// Broadcaster — внутрипроцессный pub/sub-узел доменных событий.
// Истории не хранит: подписчик, подключившийся позже, прошлых событий не увидит.
type Broadcaster struct {
	// pubMu сериализует публикации: каждая подписка видит события
	// строго в порядке публикации.
	pubMu  sync.Mutex
	mu     sync.Mutex
	subs   map[uint64]Callback
	nextID uint64
	lastTS int64
	max    int
	logger *slog.Logger
	now    func() time.Time
}

// NewBroadcaster создаёт брокер с заданным пределом подписок.
// При maxSubscriptions <= 0 используется DefaultMaxSubscriptions.
func NewBroadcaster(maxSubscriptions int, logger *slog.Logger) *Broadcaster {
	if maxSubscriptions <= 0 {
		maxSubscriptions = DefaultMaxSubscriptions
	}
	return &Broadcaster{
		subs:   make(map[uint64]Callback),
		max:    maxSubscriptions,
		logger: logger,
		now:    time.Now,
	}
}

// Subscribe регистрирует callback и возвращает функцию отписки.
// Повторный вызов функции отписки безопасен (no-op).
func (b *Broadcaster) Subscribe(cb Callback) (unsubscribe func()) {
	b.mu.Lock()
	if len(b.subs) >= b.max {
		// Превышение предела — ошибка конфигурации, а не отказ:
		// подписка всё равно регистрируется, но шум в логах обязателен.
		b.logger.Error("Subscription limit exceeded", "limit", b.max, "active", len(b.subs))
		subscriptionLimitExceeded.Inc()
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = cb
	activeSubscriptions.Set(float64(len(b.subs)))
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			activeSubscriptions.Set(float64(len(b.subs)))
			b.mu.Unlock()
		})
	}
}

// Publish проставляет текущую метку времени и синхронно доставляет событие
// всем активным подпискам. Паника в одном callback логируется и не мешает
// доставке остальным; при нуле подписчиков вызов просто ничего не делает.
// Доставка идёт по снимку списка подписок вне mu, поэтому callback может
// подписываться и отписываться, не блокируя сам себя.
func (b *Broadcaster) Publish(evtType domain.EventType, data map[string]any) {
	b.pubMu.Lock()
	defer b.pubMu.Unlock()

	b.mu.Lock()
	ts := b.now().UnixMilli()
	// Метки времени не убывают в порядке публикации.
	if ts < b.lastTS {
		ts = b.lastTS
	}
	b.lastTS = ts

	callbacks := make([]Callback, 0, len(b.subs))
	for _, cb := range b.subs {
		callbacks = append(callbacks, cb)
	}
	b.mu.Unlock()

	event := domain.FleetEvent{
		Type:      evtType,
		Data:      data,
		Timestamp: ts,
	}
	for _, cb := range callbacks {
		b.deliver(cb, event)
	}
	eventsPublished.WithLabelValues(string(evtType)).Inc()
	b.logger.Info("Event published", "type", evtType, "subscribers", len(callbacks))
}

func (b *Broadcaster) deliver(cb Callback, event domain.FleetEvent) {
	defer func() {
		if r := recover(); r != nil {
			subscriberPanics.Inc()
			b.logger.Error("Subscriber callback panicked", "type", event.Type, "panic", r)
		}
	}()
	cb(event)
}

// Subscribers возвращает число активных подписок.
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
