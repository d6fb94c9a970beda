package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/Checker-Finance/interledger/pkg/model"
)

// DefaultSubjectPrefix is prepended to an ILP account address to form its
// NATS subject. ILP addresses are dot-separated, so they map directly onto
// subject tokens.
const DefaultSubjectPrefix = "ilp.msg."

// NATSConfig configures a NATS-backed transport.
type NATSConfig struct {
	URL           string
	Account       string
	Info          Info
	SubjectPrefix string // defaults to DefaultSubjectPrefix
}

// NATS is the production Transport: one subject per ledger account, JSON
// message bodies.
type NATS struct {
	cfg      NATSConfig
	logger   *zap.Logger
	handlers *handlerSet

	mu  sync.Mutex
	nc  *nats.Conn
	sub *nats.Subscription
}

var _ Transport = (*NATS)(nil)

// NewNATS creates a NATS transport. Connect must be called before use.
func NewNATS(cfg NATSConfig, logger *zap.Logger) *NATS {
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = DefaultSubjectPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NATS{
		cfg:      cfg,
		logger:   logger,
		handlers: newHandlerSet(),
	}
}

// Connect dials the NATS server and subscribes to this account's subject.
// Calling it again on a live connection is a no-op.
func (t *NATS) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.nc != nil && t.nc.IsConnected() {
		return nil
	}

	nc, err := nats.Connect(t.cfg.URL, nats.Name("ilp-"+t.cfg.Account))
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}

	sub, err := nc.Subscribe(t.subject(t.cfg.Account), func(m *nats.Msg) {
		var msg model.Message
		if err := json.Unmarshal(m.Data, &msg); err != nil {
			t.logger.Warn("transport.nats.unmarshal_failed", zap.Error(err))
			return
		}
		t.handlers.dispatch(&msg)
	})
	if err != nil {
		nc.Close()
		return fmt.Errorf("subscribe to inbound subject: %w", err)
	}

	t.nc = nc
	t.sub = sub
	t.logger.Info("transport.nats.connected",
		zap.String("url", nc.ConnectedUrl()),
		zap.String("account", t.cfg.Account))
	return nil
}

// Info returns the ledger description.
func (t *NATS) Info() Info { return t.cfg.Info }

// Account returns this client's ledger address.
func (t *NATS) Account() string { return t.cfg.Account }

// SendMessage publishes msg to the subject of the account it names.
func (t *NATS) SendMessage(_ context.Context, msg *model.Message) error {
	t.mu.Lock()
	nc := t.nc
	t.mu.Unlock()
	if nc == nil {
		return fmt.Errorf("transport not connected")
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	if err := nc.Publish(t.subject(msg.Account), data); err != nil {
		return fmt.Errorf("publish to %s: %w", msg.Account, err)
	}
	return nil
}

// Subscribe attaches a handler to the inbound message stream.
func (t *NATS) Subscribe(h Handler) (cancel func()) {
	return t.handlers.add(h)
}

// Close drains the subscription and closes the connection.
func (t *NATS) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.sub != nil {
		_ = t.sub.Unsubscribe()
		t.sub = nil
	}
	if t.nc != nil {
		t.nc.Close()
		t.nc = nil
	}
	return nil
}

func (t *NATS) subject(account string) string {
	return t.cfg.SubjectPrefix + account
}
