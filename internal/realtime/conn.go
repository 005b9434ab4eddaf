package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"ent-messaging-go/internal/config"

	"github.com/gorilla/websocket"
)

// ErrConnClosed 表示通道已关闭。
var ErrConnClosed = errors.New("realtime: connection closed")

// Conn 包装一个 gorilla WebSocket 连接：写操作串行化并带写超时，
// 读循环丢弃客户端发来的数据帧，只用于感知断开与维持心跳。
type Conn struct {
	ws     *websocket.Conn
	userID string
	cfg    config.RealtimeConfig

	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
}

// NewConn 包装已完成升级的连接。零值的超时配置使用默认值。
func NewConn(ws *websocket.Conn, userID string, cfg config.RealtimeConfig) *Conn {
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = 60 * time.Second
	}
	if cfg.PingInterval <= 0 || cfg.PingInterval >= cfg.PongWait {
		cfg.PingInterval = cfg.PongWait * 9 / 10
	}
	if cfg.MaxMessageBytes <= 0 {
		cfg.MaxMessageBytes = 1 << 16
	}
	return &Conn{ws: ws, userID: userID, cfg: cfg, done: make(chan struct{})}
}

// UserID 返回通道所属用户。
func (c *Conn) UserID() string { return c.userID }

// Send 写入一个文本帧。写超时取 write_timeout 与 ctx 截止时间中较早者。
func (c *Conn) Send(ctx context.Context, payload []byte) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline := time.Now().Add(c.cfg.WriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.ws.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, payload)
}

// Run 运行读循环与心跳，直到对端断开、协议错误或 ctx 结束，返回前关闭连接。
func (c *Conn) Run(ctx context.Context) error {
	defer c.Close()

	c.ws.SetReadLimit(c.cfg.MaxMessageBytes)
	_ = c.ws.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	go c.pingLoop(ctx)

	readErr := make(chan error, 1)
	go func() {
		for {
			if _, _, err := c.ws.ReadMessage(); err != nil {
				readErr <- err
				return
			}
		}
	}()

	select {
	case err := <-readErr:
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
			return nil
		}
		return err
	case <-ctx.Done():
		_ = c.CloseWithCode(websocket.CloseGoingAway, "server shutting down")
		return nil
	case <-c.done:
		return nil
	}
}

func (c *Conn) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.cfg.WriteTimeout))
			c.writeMu.Unlock()
			if err != nil {
				c.Close()
				return
			}
		case <-ctx.Done():
			return
		case <-c.done:
			return
		}
	}
}

// CloseWithCode 发送关闭帧后关闭连接。
func (c *Conn) CloseWithCode(code int, reason string) error {
	c.writeMu.Lock()
	msg := websocket.FormatCloseMessage(code, reason)
	_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.cfg.WriteTimeout))
	c.writeMu.Unlock()
	return c.Close()
}

// Close 关闭连接，可重复调用。
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.ws.Close()
	})
	return err
}
