// Package router 组装 HTTP 路由与中间件。
package router

import (
	"context"
	"time"

	"ent-messaging-go/internal/config"
	"ent-messaging-go/internal/handler"
	"ent-messaging-go/internal/middleware"
	"ent-messaging-go/internal/model"
	"ent-messaging-go/internal/realtime"
	"ent-messaging-go/internal/service"
	"ent-messaging-go/pkg/token"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Deps 是路由依赖的服务集合。
type Deps struct {
	BaseContext      context.Context // 服务关闭时取消，结束所有 WebSocket 连接
	Verifier         token.Verifier
	UserService      service.UserService
	MessagingService service.MessagingService
	SearchService    service.SearchService
	AssistantService service.AssistantService
	Registry         realtime.Registry
	Realtime         config.RealtimeConfig
	CORSOrigins      []string
}

// New 创建路由引擎并注册全部路由。
func New(d Deps) *gin.Engine {
	if d.BaseContext == nil {
		d.BaseContext = context.Background()
	}

	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())
	if len(d.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     d.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	authHandler := handler.NewAuthHandler(d.UserService)
	userHandler := handler.NewUserHandler(d.UserService)
	conversationHandler := handler.NewConversationHandler(d.MessagingService)
	searchHandler := handler.NewSearchHandler(d.SearchService)
	assistantHandler := handler.NewAssistantHandler(d.AssistantService)
	realtimeHandler := handler.NewRealtimeHandler(d.BaseContext, d.Verifier, d.UserService, d.Registry, d.Realtime)
	healthHandler := handler.NewHealthHandler(d.Registry)

	r.GET("/healthz", healthHandler.Healthz)
	r.GET("/ws", realtimeHandler.Handle)

	apiV1 := r.Group("/api/v1")
	{
		// 无需认证的路由
		apiV1.POST("/auth/login", authHandler.Login)

		authed := apiV1.Group("")
		authed.Use(middleware.AuthMiddleware(d.Verifier, d.UserService))
		{
			authed.GET("/users/me", userHandler.Me)
			authed.GET("/users/professors", middleware.RequireRole(model.RoleStudent), userHandler.ListProfessors)
			authed.GET("/users/students", middleware.RequireRole(model.RoleProfessor), userHandler.ListStudents)
			authed.POST("/assistant/chat", assistantHandler.Chat)

			messaging := authed.Group("")
			messaging.Use(middleware.RequireMessagingRole())
			{
				messaging.GET("/conversations", conversationHandler.ListConversations)
				messaging.GET("/conversations/:id/messages", conversationHandler.ListMessages)
				messaging.GET("/conversations/:id/search", searchHandler.SearchConversation)
				messaging.POST("/messages", conversationHandler.SendMessage)
			}
		}
	}
	return r
}
