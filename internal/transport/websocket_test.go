package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A gateway-side disconnect must release the client socket, not just flip
// the connected flag.
func TestWebSocket_ReadErrorClosesConnection(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c.Close()
	}))
	defer srv.Close()

	tr := NewWebSocket(WebSocketConfig{
		URL:     "ws" + strings.TrimPrefix(srv.URL, "http"),
		Account: "example.ledger.client",
	}, nil)
	require.NoError(t, tr.Connect(context.Background()))

	require.Eventually(t, func() bool {
		tr.mu.Lock()
		defer tr.mu.Unlock()
		return !tr.connected
	}, time.Second, 10*time.Millisecond, "read loop did not observe the disconnect")

	// The underlying socket is closed, so deadline calls fail.
	err := tr.conn.UnderlyingConn().SetReadDeadline(time.Now().Add(time.Second))
	assert.Error(t, err)

	assert.NoError(t, tr.Close())
}
