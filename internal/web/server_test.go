package web

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T, handler http.Handler) *Server {
	t.Helper()

	srv := NewServer(&Config{Port: 0}, handler) // random port
	require.NoError(t, srv.Listen())

	go func() { _ = srv.Start() }()
	t.Cleanup(func() { _ = srv.Stop(context.Background()) })

	return srv
}

func TestServer_ServesHandler(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"status":"ok"}`)
	})

	srv := startServer(t, mux)

	require.Eventually(t, func() bool {
		resp, err := http.Get(srv.BaseURL() + "/health")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 50*time.Millisecond)
}

func TestServer_BaseURLBeforeListen(t *testing.T) {
	srv := NewServer(&Config{Port: 3100}, http.NotFoundHandler())
	assert.Equal(t, "http://localhost:3100", srv.BaseURL())
}

func TestServer_StopWithoutStart(t *testing.T) {
	srv := NewServer(&Config{Port: 0}, http.NotFoundHandler())
	assert.NoError(t, srv.Stop(context.Background()))
}

func TestServer_WebSocketReceivesBroadcast(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ServeWs(hub, w, r)
	})
	srv := startServer(t, mux)

	u := "ws" + strings.TrimPrefix(srv.BaseURL(), "http") + "/ws"
	c, resp, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	defer c.Close()
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}

	// allow time for registration
	time.Sleep(50 * time.Millisecond)

	hub.Broadcast([]byte(`{"type":"scan.start"}`))

	require.NoError(t, c.SetReadDeadline(time.Now().Add(time.Second)))
	_, msg, err := c.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(msg), EventScanStart)
}
