package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/Checker-Finance/interledger/pkg/model"
)

// Bus is an in-process message bus connecting Loopback endpoints by
// account address. It is used by tests and local examples.
type Bus struct {
	mu        sync.RWMutex
	endpoints map[string]*Loopback
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{endpoints: make(map[string]*Loopback)}
}

// Endpoint registers and returns a loopback transport for the given
// account. Re-registering an account replaces the previous endpoint.
func (b *Bus) Endpoint(account string, info Info) *Loopback {
	ep := &Loopback{
		bus:      b,
		account:  account,
		info:     info,
		handlers: newHandlerSet(),
	}
	b.mu.Lock()
	b.endpoints[account] = ep
	b.mu.Unlock()
	return ep
}

func (b *Bus) deliver(msg *model.Message) error {
	b.mu.RLock()
	ep, ok := b.endpoints[msg.Account]
	b.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no endpoint registered for account %q", msg.Account)
	}
	ep.handlers.dispatch(msg)
	return nil
}

// Loopback is an in-process Transport bound to a Bus.
type Loopback struct {
	bus      *Bus
	account  string
	info     Info
	handlers *handlerSet
}

var _ Transport = (*Loopback)(nil)

// Connect is a no-op; a loopback endpoint is always connected.
func (l *Loopback) Connect(context.Context) error { return nil }

// Info returns the endpoint's ledger description.
func (l *Loopback) Info() Info { return l.info }

// Account returns the endpoint's own address.
func (l *Loopback) Account() string { return l.account }

// SendMessage delivers msg synchronously to the endpoint registered for
// msg.Account.
func (l *Loopback) SendMessage(_ context.Context, msg *model.Message) error {
	return l.bus.deliver(msg)
}

// Subscribe attaches a handler to the inbound stream.
func (l *Loopback) Subscribe(h Handler) (cancel func()) {
	return l.handlers.add(h)
}

// SubscriberCount returns the number of attached handlers. Tests use it to
// assert that correlations do not leak subscriptions.
func (l *Loopback) SubscriberCount() int { return l.handlers.len() }

// Close is a no-op.
func (l *Loopback) Close() error { return nil }
