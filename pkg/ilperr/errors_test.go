package ilperr

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProtocolError(t *testing.T) {
	err := Protocol(KindInvalidStatusLine, "%q", "PSK/2.0")
	assert.EqualError(t, err, `protocol error: invalid status line: "PSK/2.0"`)
	assert.True(t, IsProtocol(err, KindInvalidStatusLine))
	assert.False(t, IsProtocol(err, KindInvalidRequest))

	// Kind survives wrapping.
	wrapped := fmt.Errorf("parse details: %w", err)
	assert.True(t, IsProtocol(wrapped, KindInvalidStatusLine))
	assert.False(t, IsProtocol(errors.New("other"), KindInvalidStatusLine))
}

func TestInvalidArgument(t *testing.T) {
	err := InvalidArgument("amount %q is not a decimal", "abc")
	assert.EqualError(t, err, `invalid argument: amount "abc" is not a decimal`)

	var ia *InvalidArgumentError
	assert.ErrorAs(t, err, &ia)
}

func TestAggregateQuoteError_JoinsFailures(t *testing.T) {
	err := &AggregateQuoteError{Failures: []string{
		"example.conn.a: no route",
		"example.conn.b: timed out after 5s waiting for response",
	}}
	assert.EqualError(t, err,
		"all connectors failed to quote: example.conn.a: no route, example.conn.b: timed out after 5s waiting for response")
}

func TestTimeoutAndTransportErrors(t *testing.T) {
	assert.EqualError(t, &TimeoutError{After: 5 * time.Second}, "timed out after 5s waiting for response")
	assert.EqualError(t, &TransportError{Remote: "ledger unavailable"}, "remote error: ledger unavailable")
}
