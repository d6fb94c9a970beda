package correlator

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Checker-Finance/interledger/internal/transport"
	"github.com/Checker-Finance/interledger/pkg/ilperr"
	"github.com/Checker-Finance/interledger/pkg/model"
)

const (
	clientAccount    = "example.ledger.client"
	connectorAccount = "example.connector.west"
)

func newPair(t *testing.T) (*transport.Loopback, *transport.Loopback) {
	t.Helper()
	bus := transport.NewBus()
	client := bus.Endpoint(clientAccount, transport.Info{AddressPrefix: "example.ledger."})
	connector := bus.Endpoint(connectorAccount, transport.Info{})
	return client, connector
}

func request() *model.Message {
	return &model.Message{
		Ledger:  "example.ledger.",
		Account: connectorAccount,
		Data: &model.MessageData{
			Method: model.MethodQuoteRequest,
			Data:   json.RawMessage(`{"destination_address":"example.other.bob"}`),
		},
	}
}

// echo wires the connector endpoint to answer every request with the given
// method and payload, echoing the correlation id.
func echo(connector *transport.Loopback, method string, payload string) {
	connector.Subscribe(func(msg *model.Message) {
		reply := &model.Message{
			Ledger:  msg.Ledger,
			Account: clientAccount,
			Data: &model.MessageData{
				ID:     msg.Data.ID,
				Method: method,
				Data:   json.RawMessage(payload),
			},
		}
		_ = connector.SendMessage(context.Background(), reply)
	})
}

func TestExchange_ResolvesMatchingResponse(t *testing.T) {
	client, connector := newPair(t)
	echo(connector, model.MethodQuoteResponse, `{"source_amount":"5"}`)

	c := New(client, nil)
	defer c.Close()

	resp, err := c.Exchange(context.Background(), request(), model.MethodQuoteResponse, time.Second)
	require.NoError(t, err)
	require.NotNil(t, resp.Data)
	assert.Equal(t, model.MethodQuoteResponse, resp.Data.Method)
	assert.JSONEq(t, `{"source_amount":"5"}`, string(resp.Data.Data))

	assert.Equal(t, 0, c.Pending())
}

func TestExchange_AssignsCorrelationID(t *testing.T) {
	client, connector := newPair(t)

	var seen string
	connector.Subscribe(func(msg *model.Message) {
		seen = msg.Data.ID
		echoMsg := &model.Message{
			Account: clientAccount,
			Data:    &model.MessageData{ID: msg.Data.ID, Method: model.MethodQuoteResponse, Data: json.RawMessage(`{}`)},
		}
		_ = connector.SendMessage(context.Background(), echoMsg)
	})

	c := New(client, nil)
	defer c.Close()

	msg := request()
	_, err := c.Exchange(context.Background(), msg, model.MethodQuoteResponse, time.Second)
	require.NoError(t, err)
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, msg.Data.ID)
}

func TestExchange_RemoteError(t *testing.T) {
	client, connector := newPair(t)
	echo(connector, model.MethodError, `{"message":"no liquidity"}`)

	c := New(client, nil)
	defer c.Close()

	_, err := c.Exchange(context.Background(), request(), model.MethodQuoteResponse, time.Second)
	require.Error(t, err)

	var te *ilperr.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "no liquidity", te.Remote)
	assert.Equal(t, 0, c.Pending())
}

func TestExchange_IgnoresMismatchedIDAndMethod(t *testing.T) {
	client, connector := newPair(t)

	connector.Subscribe(func(msg *model.Message) {
		send := func(id, method string) {
			_ = connector.SendMessage(context.Background(), &model.Message{
				Account: clientAccount,
				Data:    &model.MessageData{ID: id, Method: method, Data: json.RawMessage(`{}`)},
			})
		}
		// Wrong id, then unrelated method, then the real answer.
		send("some-other-exchange", model.MethodQuoteResponse)
		send(msg.Data.ID, "balance_update")
		send(msg.Data.ID, model.MethodQuoteResponse)
	})

	c := New(client, nil)
	defer c.Close()

	resp, err := c.Exchange(context.Background(), request(), model.MethodQuoteResponse, time.Second)
	require.NoError(t, err)
	assert.Equal(t, model.MethodQuoteResponse, resp.Data.Method)
}

func TestExchange_Timeout(t *testing.T) {
	client, _ := newPair(t) // connector stays silent

	c := New(client, nil)
	defer c.Close()

	const timeout = 100 * time.Millisecond
	msg := request()

	start := time.Now()
	_, err := c.Exchange(context.Background(), msg, model.MethodQuoteResponse, timeout)
	elapsed := time.Since(start)

	var te *ilperr.TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, timeout, te.After)
	assert.GreaterOrEqual(t, elapsed, timeout)
	assert.Less(t, elapsed, 5*time.Second)

	// The correlation entry is gone; a late reply with the same id is
	// ignored rather than resolving anything.
	assert.Equal(t, 0, c.Pending())
	late := &model.Message{
		Account: clientAccount,
		Data:    &model.MessageData{ID: msg.Data.ID, Method: model.MethodQuoteResponse, Data: json.RawMessage(`{}`)},
	}
	_ = client.SendMessage(context.Background(), late)
	assert.Equal(t, 0, c.Pending())
}

func TestExchange_ContextCancel(t *testing.T) {
	client, _ := newPair(t)

	c := New(client, nil)
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := c.Exchange(ctx, request(), model.MethodQuoteResponse, time.Minute)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, c.Pending())
}

func TestClose_DetachesFromTransport(t *testing.T) {
	client, _ := newPair(t)

	c := New(client, nil)
	_, err := c.Exchange(context.Background(), request(), model.MethodQuoteResponse, 20*time.Millisecond)
	require.Error(t, err)

	require.Equal(t, 1, client.SubscriberCount())
	c.Close()
	assert.Equal(t, 0, client.SubscriberCount())
}
