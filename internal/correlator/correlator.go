// Package correlator turns a transport's shared inbound message stream into
// single-shot request/response exchanges keyed by correlation id.
package correlator

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Checker-Finance/interledger/internal/metrics"
	"github.com/Checker-Finance/interledger/internal/transport"
	"github.com/Checker-Finance/interledger/pkg/ilperr"
	"github.com/Checker-Finance/interledger/pkg/model"
)

// DefaultTimeout bounds an exchange when the caller does not supply one.
const DefaultTimeout = 5000 * time.Millisecond

type outcome struct {
	msg *model.Message
	err error
}

type pendingCall struct {
	expect string
	ch     chan outcome
}

// Correlator multiplexes in-flight exchanges over one transport
// subscription. In-flight calls are entries in an id-keyed map; inbound
// messages are dispatched by lookup, and every entry is removed exactly
// once whatever the outcome.
type Correlator struct {
	tr     transport.Transport
	logger *zap.Logger

	mu      sync.Mutex
	pending map[string]*pendingCall
	cancel  func()
}

// New creates a Correlator over tr.
func New(tr transport.Transport, logger *zap.Logger) *Correlator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Correlator{
		tr:      tr,
		logger:  logger,
		pending: make(map[string]*pendingCall),
	}
}

// Exchange sends msg and waits for the first response whose id matches and
// whose method is expectMethod. A response with method "error" rejects the
// exchange with the remote-supplied message. Exactly one of response,
// remote error or timeout occurs; the correlation entry is removed on
// every path. A zero timeout means DefaultTimeout.
func (c *Correlator) Exchange(ctx context.Context, msg *model.Message, expectMethod string, timeout time.Duration) (*model.Message, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if msg.Data == nil {
		msg.Data = &model.MessageData{}
	}
	if msg.Data.ID == "" {
		msg.Data.ID = uuid.NewString()
	}
	id := msg.Data.ID

	// Register before sending so a reply that beats the send's return
	// cannot be missed.
	call := &pendingCall{expect: expectMethod, ch: make(chan outcome, 1)}
	c.register(id, call)
	defer c.deregister(id)

	if err := c.tr.SendMessage(ctx, msg); err != nil {
		return nil, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case out := <-call.ch:
		return out.msg, out.err
	case <-timer.C:
		metrics.CorrelatorTimeoutsTotal.Inc()
		c.logger.Debug("correlator.exchange_timed_out",
			zap.String("id", id),
			zap.Duration("timeout", timeout))
		return nil, &ilperr.TimeoutError{After: timeout}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Pending returns the number of in-flight exchanges.
func (c *Correlator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Close detaches the correlator from the transport's inbound stream.
func (c *Correlator) Close() {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (c *Correlator) register(id string, call *pendingCall) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[id] = call
	if c.cancel == nil {
		c.cancel = c.tr.Subscribe(c.dispatch)
	}
}

func (c *Correlator) deregister(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, id)
}

// dispatch applies the resolution rules to one inbound message: unknown
// ids are ignored, "error" rejects, the expected method resolves, and any
// other method is left for a different correlation sharing the stream.
func (c *Correlator) dispatch(msg *model.Message) {
	if msg.Data == nil || msg.Data.ID == "" {
		return
	}

	c.mu.Lock()
	call, ok := c.pending[msg.Data.ID]
	c.mu.Unlock()
	if !ok {
		return
	}

	switch msg.Data.Method {
	case model.MethodError:
		var remote model.RemoteError
		if err := json.Unmarshal(msg.Data.Data, &remote); err != nil {
			remote.Message = string(msg.Data.Data)
		}
		call.resolve(outcome{err: &ilperr.TransportError{Remote: remote.Message}})
	case call.expect:
		call.resolve(outcome{msg: msg})
	default:
		// Belongs to another exchange with the same id, or noise.
	}
}

// resolve delivers at most one outcome; later calls are dropped.
func (p *pendingCall) resolve(out outcome) {
	select {
	case p.ch <- out:
	default:
	}
}
