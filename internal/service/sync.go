package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"log/slog"

	"github.com/fleetflow/fleetsync/internal/domain"
	"github.com/fleetflow/fleetsync/internal/repository"
)

// Fetcher получает свежие данные коллекций с сервера.
type Fetcher interface {
	Fetch(ctx context.Context, collection domain.Collection) ([]json.RawMessage, error)
	Probe(ctx context.Context) error
}

// ClientSyncService — клиентская логика синхронизации: по событию перечитывает
// затронутые коллекции и обновляет локальный кэш; при недоступности сети
// чтение обслуживается последним снимком. Серверные данные всегда побеждают,
// кэш никогда не сливается с локальными правками.
type ClientSyncService struct {
	cache   *repository.SnapshotCache
	fetcher Fetcher
	logger  *slog.Logger

	mu     sync.Mutex
	online bool
}

// NewClientSyncService создаёт сервис. Стартовое состояние — online.
func NewClientSyncService(cache *repository.SnapshotCache, fetcher Fetcher, logger *slog.Logger) *ClientSyncService {
	return &ClientSyncService{
		cache:   cache,
		fetcher: fetcher,
		logger:  logger,
		online:  true,
	}
}

// HandleEvent — callback для подписки: перечитывает коллекции,
// затронутые событием, и кладёт свежие снимки в кэш.
func (s *ClientSyncService) HandleEvent(event domain.FleetEvent) {
	s.logger.Info("Processing event", "type", event.Type, "timestamp", event.Timestamp)
	for _, collection := range event.Type.AffectedCollections() {
		s.refresh(context.Background(), collection)
	}
}

// FetchCollection — read-through точка для кода представлений: живые данные
// при успехе (с обновлением кэша), последний снимок при недоступности сети.
// Никогда не возвращает ошибку — отсутствие данных даёт пустой список.
func (s *ClientSyncService) FetchCollection(ctx context.Context, collection domain.Collection) []json.RawMessage {
	records, err := s.fetcher.Fetch(ctx, collection)
	if err != nil {
		if s.setOnline(false) {
			s.logger.Warn("Network unavailable, switching to cached reads", "error", err)
		}
		return s.cache.Read(collection)
	}
	if err := s.cache.Write(collection, records); err != nil {
		// Ошибка кэша не подводит вызывающего: живые данные всё равно отдаются.
		s.logger.Error("Cache write failed", "collection", collection, "error", err)
	}
	return records
}

// Online сообщает текущее состояние связи (для индикатора в UI).
func (s *ClientSyncService) Online() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online
}

// StartConnectivityMonitor периодически проверяет доступность сервера.
// Переход offline → online запускает ровно одну сверку всех коллекций;
// переход в offline только помечает состояние.
func (s *ClientSyncService) StartConnectivityMonitor(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.fetcher.Probe(ctx); err != nil {
					if s.setOnline(false) {
						s.logger.Warn("Server unreachable", "error", err)
					}
					continue
				}
				if s.setOnline(true) {
					s.logger.Info("Connectivity restored, reconciling collections")
					s.ReconcileAll(ctx)
				}
			}
		}
	}()
}

// ReconcileAll перечитывает каждую коллекцию и обновляет кэш.
func (s *ClientSyncService) ReconcileAll(ctx context.Context) {
	for _, collection := range domain.Collections() {
		s.refresh(ctx, collection)
	}
}

// Reset очищает все снимки (logout/сброс).
func (s *ClientSyncService) Reset() error {
	return s.cache.ClearAll()
}

// refresh перечитывает одну коллекцию. Успех НЕ переводит состояние в online:
// переход offline → online фиксирует только монитор связи, иначе удачное
// событийное обновление съело бы переход и полная сверка не состоялась бы.
func (s *ClientSyncService) refresh(ctx context.Context, collection domain.Collection) {
	records, err := s.fetcher.Fetch(ctx, collection)
	if err != nil {
		if s.setOnline(false) {
			s.logger.Warn("Refresh failed, cache keeps last snapshot", "collection", collection, "error", err)
		}
		return
	}
	if err := s.cache.Write(collection, records); err != nil {
		s.logger.Error("Cache write failed", "collection", collection, "error", err)
	}
}

// setOnline возвращает true, если состояние связи изменилось.
func (s *ClientSyncService) setOnline(online bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := s.online != online
	s.online = online
	return changed
}
