package gateway

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/arenalabs/arena/internal/config"
)

func newTestServer(t *testing.T) (*Server, *fixture, *httptest.Server) {
	t.Helper()
	fx := newFixture(t)
	cfg := config.ServerConfig{
		Host:          "127.0.0.1",
		Port:          8080,
		WriteTimeout:  5 * time.Second,
		PongTimeout:   30 * time.Second,
		HandleTimeout: 5 * time.Second,
	}
	srv := NewServer(cfg, fx.gateway, fx.store, zaptest.NewLogger(t))
	ts := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(ts.Close)
	return srv, fx, ts
}

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestServerEchoOverWebsocket(t *testing.T) {
	_, _, ts := newTestServer(t)
	conn := dialWS(t, ts)

	err := conn.WriteJSON(Message{Type: TypeEcho, Payload: []byte(`{"n":1}`)})
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var reply Message
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, TypeEchoReply, reply.Type)
	assert.JSONEq(t, `{"n":1}`, string(reply.Payload))
}

func TestServerRegistersAndDeregistersConnections(t *testing.T) {
	_, fx, ts := newTestServer(t)
	conn := dialWS(t, ts)

	require.Eventually(t, func() bool {
		return fx.gateway.Conns().Count() == 1
	}, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool {
		return fx.gateway.Conns().Count() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestServerHealthz(t *testing.T) {
	_, _, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServerStats(t *testing.T) {
	_, _, ts := newTestServer(t)
	dialWS(t, ts)

	resp, err := http.Get(ts.URL + "/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}
