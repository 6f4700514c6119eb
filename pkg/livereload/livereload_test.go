package livereload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hemaweb/featmock/pkg/metrics"
	"github.com/hemaweb/featmock/pkg/reload"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.CloseNow() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	typ, data, err := conn.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, websocket.MessageText, typ)
	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestHub_Broadcast(t *testing.T) {
	t.Parallel()
	m := metrics.NewMock()
	hub := NewHub(nil, m)
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)

	a, b := dial(t, srv), dial(t, srv)
	assert.Equal(t, TypeConnected, read(t, a).Type)
	assert.Equal(t, TypeConnected, read(t, b).Type)
	require.Eventually(t, func() bool { return hub.Len() == 2 }, 2*time.Second, 10*time.Millisecond)

	hub.Notify(reload.Event{Files: []string{"packages/feat-a/mocks/a.mock.yaml"}, Routes: 3})
	for _, conn := range []*websocket.Conn{a, b} {
		msg := read(t, conn)
		assert.Equal(t, TypeReload, msg.Type)
		assert.Equal(t, 3, msg.Routes)
		assert.Equal(t, []string{"packages/feat-a/mocks/a.mock.yaml"}, msg.Files)
		assert.Empty(t, msg.Error)
		assert.NotEmpty(t, msg.Timestamp)
	}

	var buf bytes.Buffer
	_, _ = m.Registry().WriteTo(&buf)
	assert.Contains(t, buf.String(), "featmock_livereload_clients 2")
}

func TestHub_DropsClosedClients(t *testing.T) {
	t.Parallel()
	m := metrics.NewMock()
	hub := NewHub(nil, m)
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)

	gone, stays := dial(t, srv), dial(t, srv)
	read(t, gone)
	read(t, stays)
	require.Eventually(t, func() bool { return hub.Len() == 2 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, gone.Close(websocket.StatusNormalClosure, "bye"))
	require.Eventually(t, func() bool { return hub.Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Notify(reload.Event{Err: errors.New("bad yaml")})
	msg := read(t, stays)
	assert.Equal(t, "bad yaml", msg.Error)
	assert.Equal(t, []string{}, msg.Files)

	var buf bytes.Buffer
	_, _ = m.Registry().WriteTo(&buf)
	assert.Contains(t, buf.String(), "featmock_livereload_clients 1")
}

func TestHub_Close(t *testing.T) {
	t.Parallel()
	hub := NewHub(nil, nil)
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)

	conn := dial(t, srv)
	read(t, conn)
	require.Eventually(t, func() bool { return hub.Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Close()
	assert.Zero(t, hub.Len())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, _, err := conn.Read(ctx)
	assert.Error(t, err)

	late, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err == nil {
		_, _, err = late.Read(ctx)
		assert.Equal(t, websocket.StatusGoingAway, websocket.CloseStatus(err))
		_ = late.CloseNow()
	}
}

func TestHub_RejectsPlainHTTP(t *testing.T) {
	t.Parallel()
	hub := NewHub(nil, nil)
	rec := httptest.NewRecorder()
	hub.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/__featmock/ws", nil))
	assert.Equal(t, http.StatusUpgradeRequired, rec.Code)
	assert.Zero(t, hub.Len())
}

func TestReloadMessage(t *testing.T) {
	t.Parallel()
	msg := ReloadMessage(reload.Event{Routes: 7})
	assert.Equal(t, TypeReload, msg.Type)
	assert.Equal(t, 7, msg.Routes)
	assert.NotNil(t, msg.Files)

	data, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"error"`)
}
