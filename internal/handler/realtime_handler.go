package handler

import (
	"context"
	"net/http"
	"time"

	"ent-messaging-go/internal/config"
	"ent-messaging-go/internal/realtime"
	"ent-messaging-go/internal/service"
	"ent-messaging-go/pkg/log"
	"ent-messaging-go/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // token 通过查询参数传递，不依赖 cookie
	},
}

// RealtimeHandler 负责建立推送用的 WebSocket 连接。
type RealtimeHandler struct {
	ctx         context.Context // 服务关闭时取消，用于结束所有连接
	verifier    token.Verifier
	userService service.UserService
	registry    realtime.Registry
	cfg         config.RealtimeConfig
}

// NewRealtimeHandler 创建一个新的 RealtimeHandler。
func NewRealtimeHandler(ctx context.Context, verifier token.Verifier, userService service.UserService, registry realtime.Registry, cfg config.RealtimeConfig) *RealtimeHandler {
	return &RealtimeHandler{
		ctx:         ctx,
		verifier:    verifier,
		userService: userService,
		registry:    registry,
		cfg:         cfg,
	}
}

// Handle 处理 GET /ws?token=...。token 在连接建立时校验一次：
// 无效时以 1008 关闭，内部错误以 1011 关闭。
func (h *RealtimeHandler) Handle(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}

	id, err := h.verifier.Verify(c.Request.Context(), c.Query("token"))
	if err != nil {
		log.Debugf("WebSocket token 校验失败: %v", err)
		closeWithCode(ws, websocket.ClosePolicyViolation, "Invalid token")
		return
	}
	if _, err := h.userService.EnsureUser(c.Request.Context(), id); err != nil {
		log.Errorf("WebSocket 连接写入用户目录失败, user=%s: %v", id.UserID, err)
		closeWithCode(ws, websocket.CloseInternalServerErr, "Internal error")
		return
	}

	conn := realtime.NewConn(ws, id.UserID, h.cfg)
	h.registry.Register(conn.UserID(), conn)
	defer h.registry.Unregister(conn.UserID(), conn)

	log.Infof("WebSocket 连接已建立，用户: %s", conn.UserID())
	if err := conn.Run(h.ctx); err != nil {
		log.Debugf("WebSocket 连接异常结束, user=%s: %v", conn.UserID(), err)
	}
	log.Infof("WebSocket 连接已断开，用户: %s", conn.UserID())
}

func closeWithCode(ws *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	_ = ws.Close()
}
