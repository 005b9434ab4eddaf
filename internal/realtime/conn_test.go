package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ent-messaging-go/internal/config"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startConnServer 启动一个把每个连接注册到 reg 的 WebSocket 服务端。
func startConnServer(t *testing.T, reg Registry) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		userID := r.URL.Query().Get("user")
		conn := NewConn(ws, userID, config.RealtimeConfig{WriteTimeout: time.Second, PongWait: 2 * time.Second})
		reg.Register(userID, conn)
		defer reg.Unregister(userID, conn)
		_ = conn.Run(r.Context())
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestConn_PushReachesClient(t *testing.T) {
	reg := NewLocalRegistry()
	url := startConnServer(t, reg)

	client, _, err := websocket.DefaultDialer.Dial(url+"?user=s-1", nil)
	require.NoError(t, err)
	defer client.Close()

	require.Eventually(t, func() bool { return reg.Count() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.True(t, reg.Push(context.Background(), "s-1", []byte(`{"type":"new_message"}`)))

	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := client.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"new_message"}`, string(data))
}

func TestConn_CloseUnregisters(t *testing.T) {
	reg := NewLocalRegistry()
	url := startConnServer(t, reg)

	client, _, err := websocket.DefaultDialer.Dial(url+"?user=s-1", nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return reg.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	_ = client.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = client.Close()

	require.Eventually(t, func() bool { return reg.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.False(t, reg.Push(context.Background(), "s-1", []byte("x")))
}

func TestConn_ReconnectReplacesOldChannel(t *testing.T) {
	reg := NewLocalRegistry()
	url := startConnServer(t, reg)

	old, _, err := websocket.DefaultDialer.Dial(url+"?user=s-1", nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return reg.Count() == 1 }, 2*time.Second, 10*time.Millisecond)
	oldCh, _ := reg.lookup("s-1")

	fresh, _, err := websocket.DefaultDialer.Dial(url+"?user=s-1", nil)
	require.NoError(t, err)
	defer fresh.Close()
	require.Eventually(t, func() bool {
		ch, _ := reg.lookup("s-1")
		return ch != oldCh
	}, 2*time.Second, 10*time.Millisecond)

	// 旧连接断开不能移除新连接
	_ = old.Close()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, reg.Count())

	assert.True(t, reg.Push(context.Background(), "s-1", []byte("hello")))
	_ = fresh.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := fresh.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestConn_SendAfterCloseFails(t *testing.T) {
	reg := NewLocalRegistry()
	url := startConnServer(t, reg)

	client, _, err := websocket.DefaultDialer.Dial(url+"?user=s-1", nil)
	require.NoError(t, err)
	defer client.Close()
	require.Eventually(t, func() bool { return reg.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	ch, _ := reg.lookup("s-1")
	conn := ch.(*Conn)
	require.NoError(t, conn.Close())
	assert.NoError(t, conn.Close())
	assert.ErrorIs(t, conn.Send(context.Background(), []byte("x")), ErrConnClosed)
}
