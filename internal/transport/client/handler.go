package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/looplab/fsm"

	"github.com/fleetflow/fleetsync/internal/domain"
)

// Состояния подписки.
const (
	StateDisconnected = "disconnected"
	StateConnecting   = "connecting"
	StateConnected    = "connected"
)

const (
	eventConnect = "connect"
	eventAck     = "ack"
	eventDrop    = "drop"
)

// DefaultReconnectDelay — задержка перед переподключением по умолчанию.
const DefaultReconnectDelay = 3 * time.Second

// Callback получает разобранные события из push-канала.
type Callback func(domain.FleetEvent)

// SubscriptionHandler держит живое event-stream соединение с сервером
// и автоматически переподключается после разрыва. Явная машина состояний
// disconnected → connecting → connected; Close() терминален.
type SubscriptionHandler struct {
	serverURL string
	delay     time.Duration
	callback  Callback
	logger    *slog.Logger

	// Подменяются в тестах.
	clock Clock
	httpc *http.Client

	mu     sync.Mutex
	states *fsm.FSM
	closed bool
	timer  Timer
	cancel context.CancelFunc
}

// NewSubscriptionHandler создаёт обработчик подписки.
// При reconnectDelay <= 0 используется DefaultReconnectDelay.
func NewSubscriptionHandler(serverURL string, reconnectDelay time.Duration, cb Callback, logger *slog.Logger) *SubscriptionHandler {
	if reconnectDelay <= 0 {
		reconnectDelay = DefaultReconnectDelay
	}
	return &SubscriptionHandler{
		serverURL: serverURL,
		delay:     reconnectDelay,
		callback:  cb,
		logger:    logger,
		clock:     systemClock{},
		httpc:     http.DefaultClient,
		states: fsm.NewFSM(
			StateDisconnected,
			fsm.Events{
				{Name: eventConnect, Src: []string{StateDisconnected}, Dst: StateConnecting},
				{Name: eventAck, Src: []string{StateConnecting}, Dst: StateConnected},
				{Name: eventDrop, Src: []string{StateConnecting, StateConnected}, Dst: StateDisconnected},
			},
			fsm.Callbacks{},
		),
	}
}

// Connect открывает соединение. Повторный вызов при уже открытом или
// открывающемся соединении — no-op; после Close() соединения не открываются.
func (h *SubscriptionHandler) Connect() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed || h.states.Current() != StateDisconnected {
		return
	}
	_ = h.states.Event(context.Background(), eventConnect)

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go h.run(ctx)
}

// State возвращает текущее состояние машины.
func (h *SubscriptionHandler) State() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.states.Current()
}

// Connected сообщает, получен ли кадр подтверждения соединения.
func (h *SubscriptionHandler) Connected() bool {
	return h.State() == StateConnected
}

// Close закрывает соединение, снимает таймер переподключения и переводит
// машину в терминальное disconnected: автоматических переподключений
// больше не будет. Повторный вызов безопасен.
func (h *SubscriptionHandler) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
	if h.states.Current() != StateDisconnected {
		_ = h.states.Event(context.Background(), eventDrop)
	}
	h.logger.Info("Subscription handler closed")
}

// run читает кадры потока до разрыва соединения.
func (h *SubscriptionHandler) run(ctx context.Context) {
	body, err := h.dial(ctx)
	if err != nil {
		h.logger.Error("Connection failed", "url", h.serverURL, "error", err)
		h.onDisconnect()
		return
	}
	defer body.Close()

	reader := bufio.NewReader(body)
	var dataLines []string
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			break
		}
		line = strings.TrimRight(line, "\r\n")
		switch {
		case line == "":
			// Пустая строка завершает кадр.
			if len(dataLines) > 0 {
				h.dispatch(strings.Join(dataLines, "\n"))
				dataLines = nil
			}
		case strings.HasPrefix(line, ":"):
			// Комментарии: ":connected" подтверждает соединение,
			// ":keep-alive" и прочие до callback не доходят.
			if line == ":connected" {
				h.markConnected()
			}
		case strings.HasPrefix(line, "data:"):
			dataLines = append(dataLines, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}
	h.onDisconnect()
}

// dial открывает event-stream и проверяет статус ответа.
func (h *SubscriptionHandler) dial(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.serverURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	resp, err := h.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// dispatch разбирает payload кадра. Повреждённый кадр логируется
// и отбрасывается, соединение при этом не рвётся.
func (h *SubscriptionHandler) dispatch(payload string) {
	var event domain.FleetEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		h.logger.Error("Failed to parse event frame", "error", err)
		return
	}
	if event.Type == "" {
		h.logger.Error("Event frame without type dropped")
		return
	}
	h.callback(event)
}

func (h *SubscriptionHandler) markConnected() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	if err := h.states.Event(context.Background(), eventAck); err == nil {
		h.logger.Info("Connected to event stream", "url", h.serverURL)
	}
}

// onDisconnect переводит машину в disconnected и взводит таймер
// переподключения, если обработчик не закрыт.
func (h *SubscriptionHandler) onDisconnect() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
	if h.states.Current() != StateDisconnected {
		_ = h.states.Event(context.Background(), eventDrop)
	}
	if h.closed {
		return
	}
	h.logger.Info("Connection lost, reconnect scheduled", "delay", h.delay)
	h.timer = h.clock.AfterFunc(h.delay, h.Connect)
}
