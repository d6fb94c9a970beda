package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Checker-Finance/interledger/pkg/model"
)

// WebSocketConfig configures a WebSocket-backed transport.
type WebSocketConfig struct {
	URL     string
	Account string
	Info    Info
}

// WebSocket carries correlation envelopes over a single bidirectional
// WebSocket connection to a ledger gateway.
type WebSocket struct {
	cfg      WebSocketConfig
	logger   *zap.Logger
	handlers *handlerSet

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	done      chan struct{}
}

var _ Transport = (*WebSocket)(nil)

// NewWebSocket creates a WebSocket transport. Connect must be called
// before use.
func NewWebSocket(cfg WebSocketConfig, logger *zap.Logger) *WebSocket {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebSocket{
		cfg:      cfg,
		logger:   logger,
		handlers: newHandlerSet(),
	}
}

// Connect dials the gateway and starts the read loop. Calling it on a live
// connection is a no-op.
func (t *WebSocket) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.connected {
		return nil
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, t.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("dial websocket: %w", err)
	}

	t.conn = conn
	t.connected = true
	t.done = make(chan struct{})
	go t.readLoop(conn, t.done)

	t.logger.Info("transport.ws.connected", zap.String("url", t.cfg.URL))
	return nil
}

// Info returns the ledger description.
func (t *WebSocket) Info() Info { return t.cfg.Info }

// Account returns this client's ledger address.
func (t *WebSocket) Account() string { return t.cfg.Account }

// SendMessage writes msg as a JSON text frame.
func (t *WebSocket) SendMessage(_ context.Context, msg *model.Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.connected {
		return fmt.Errorf("transport not connected")
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := t.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

// Subscribe attaches a handler to the inbound message stream.
func (t *WebSocket) Subscribe(h Handler) (cancel func()) {
	return t.handlers.add(h)
}

// Close stops the read loop and closes the connection.
func (t *WebSocket) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.connected {
		return nil
	}
	close(t.done)
	t.connected = false
	return t.conn.Close()
}

func (t *WebSocket) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer t.logger.Info("transport.ws.read_loop_exited")

	for {
		select {
		case <-done:
			return
		default:
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				t.logger.Info("transport.ws.closed")
			} else {
				t.logger.Error("transport.ws.read_failed", zap.Error(err))
			}
			// A second Close on the shutdown path is harmless; on a
			// gateway-side failure this releases the socket.
			_ = conn.Close()
			t.mu.Lock()
			t.connected = false
			t.mu.Unlock()
			return
		}

		var msg model.Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			t.logger.Warn("transport.ws.unmarshal_failed", zap.Error(err))
			continue
		}
		t.handlers.dispatch(&msg)
	}
}
