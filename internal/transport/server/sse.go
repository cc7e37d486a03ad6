package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"log/slog"

	"github.com/fleetflow/fleetsync/internal/domain"
	"github.com/fleetflow/fleetsync/internal/events"
)

// SSEHandler отдаёт события автопарка по долгоживущему event-stream соединению.
// Формат кадров: комментарий ":connected" при открытии, "data: <json>" на событие,
// комментарий ":keep-alive" каждый интервал, чтобы посредники не рвали простой.
type SSEHandler struct {
	broadcaster *events.Broadcaster
	keepAlive   time.Duration
	logger      *slog.Logger
}

// NewSSEHandler создаёт обработчик с заданным интервалом keep-alive.
func NewSSEHandler(b *events.Broadcaster, keepAlive time.Duration, logger *slog.Logger) *SSEHandler {
	return &SSEHandler{
		broadcaster: b,
		keepAlive:   keepAlive,
		logger:      logger,
	}
}

// ServeHTTP держит соединение открытым до разрыва со стороны клиента.
// Отписка, остановка таймера и освобождение соединения выполняются
// безусловно при любом пути выхода.
func (h *SSEHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if _, err := io.WriteString(w, ":connected\n\n"); err != nil {
		return
	}
	flusher.Flush()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Буферизованный канал на соединение: медленный клиент не задерживает
	// ни публикацию, ни доставку остальным. При переполнении буфера клиент
	// отключается и восстановит состояние через reconnect.
	send := make(chan domain.FleetEvent, 256)
	unsubscribe := h.broadcaster.Subscribe(func(event domain.FleetEvent) {
		select {
		case send <- event:
		default:
			h.logger.Warn("Disconnecting slow push client", "remote", r.RemoteAddr)
			cancel()
		}
	})
	defer unsubscribe()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	connectedPushClients.WithLabelValues("sse").Inc()
	defer connectedPushClients.WithLabelValues("sse").Dec()

	h.logger.Info("Push client connected", "remote", r.RemoteAddr)
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("Push client disconnected", "remote", r.RemoteAddr)
			return
		case event := <-send:
			payload, err := json.Marshal(event)
			if err != nil {
				h.logger.Error("Event marshal error", "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				// Запись не удалась — клиент ушёл, путь тот же, что при закрытии.
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := io.WriteString(w, ":keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
