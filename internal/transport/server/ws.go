package server

import (
	"context"
	"net/http"
	"time"

	"log/slog"

	"github.com/gorilla/websocket"

	"github.com/fleetflow/fleetsync/internal/domain"
	"github.com/fleetflow/fleetsync/internal/events"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Разрешаем подключения с любых источников (демо-режим без аутентификации)
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WebSocketHandler — вторая push-лента: те же события, что и в event-stream,
// но кадрами WebSocket. Используется дашбордами, предпочитающими ws.
type WebSocketHandler struct {
	broadcaster *events.Broadcaster
	logger      *slog.Logger
}

// NewWebSocketHandler создаёт обработчик.
func NewWebSocketHandler(b *events.Broadcaster, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{broadcaster: b, logger: logger}
}

// ServeHTTP выполняет апгрейд соединения и подписывает его на события.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade error", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	send := make(chan domain.FleetEvent, 256)
	unsubscribe := h.broadcaster.Subscribe(func(event domain.FleetEvent) {
		select {
		case send <- event:
		default:
			h.logger.Warn("Disconnecting slow websocket client", "remote", r.RemoteAddr)
			cancel()
		}
	})
	defer unsubscribe()

	connectedPushClients.WithLabelValues("ws").Inc()
	defer connectedPushClients.WithLabelValues("ws").Dec()

	go h.writePump(conn, send, ctx)
	h.readPump(conn)
}

// readPump читает входящие сообщения (понги) и завершает соединение при ошибке.
func (h *WebSocketHandler) readPump(conn *websocket.Conn) {
	defer conn.Close()
	conn.SetReadLimit(1024)
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Error("Unexpected websocket close", "error", err)
			}
			return
		}
	}
}

// writePump отправляет события и периодические ping.
func (h *WebSocketHandler) writePump(conn *websocket.Conn, send <-chan domain.FleetEvent, ctx context.Context) {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()
	for {
		select {
		case event := <-send:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(event); err != nil {
				h.logger.Error("Error writing JSON", "error", err)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.logger.Error("Ping error", "error", err)
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
