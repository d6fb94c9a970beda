// Package transport abstracts the messaging layer that carries correlation
// envelopes between this client and its connectors. Implementations exist
// for NATS, WebSocket, RabbitMQ and an in-process loopback bus.
package transport

import (
	"context"
	"sync"

	"github.com/Checker-Finance/interledger/pkg/model"
)

// Info describes the ledger the transport is attached to.
type Info struct {
	// AddressPrefix is the ledger's ILP address prefix, e.g. "example.ledger.".
	AddressPrefix string `json:"prefix"`
	// DefaultConnectors are the connector accounts advertised by the ledger.
	DefaultConnectors []string `json:"connectors"`
}

// Handler receives inbound messages. Handlers must not block.
type Handler func(*model.Message)

// Transport sends and receives correlation envelopes on behalf of one
// ledger account.
type Transport interface {
	// Connect establishes the underlying connection. It is idempotent and
	// safe to call when already connected.
	Connect(ctx context.Context) error
	// Info returns the ledger description.
	Info() Info
	// Account returns this client's own ledger address.
	Account() string
	// SendMessage delivers msg to the account named in it.
	SendMessage(ctx context.Context, msg *model.Message) error
	// Subscribe attaches a handler to the inbound message stream and
	// returns a cancel function that detaches it.
	Subscribe(h Handler) (cancel func())
	// Close tears the connection down.
	Close() error
}

// handlerSet is the shared subscriber registry used by every transport
// implementation. Dispatch order across handlers is unspecified.
type handlerSet struct {
	mu       sync.RWMutex
	next     int
	handlers map[int]Handler
}

func newHandlerSet() *handlerSet {
	return &handlerSet{handlers: make(map[int]Handler)}
}

func (s *handlerSet) add(h Handler) (cancel func()) {
	s.mu.Lock()
	id := s.next
	s.next++
	s.handlers[id] = h
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.handlers, id)
		s.mu.Unlock()
	}
}

func (s *handlerSet) dispatch(msg *model.Message) {
	s.mu.RLock()
	handlers := make([]Handler, 0, len(s.handlers))
	for _, h := range s.handlers {
		handlers = append(handlers, h)
	}
	s.mu.RUnlock()

	for _, h := range handlers {
		h(msg)
	}
}

func (s *handlerSet) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.handlers)
}
