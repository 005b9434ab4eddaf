// Package main 是应用程序的入口点。
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ent-messaging-go/internal/config"
	"ent-messaging-go/internal/pipeline"
	"ent-messaging-go/internal/realtime"
	"ent-messaging-go/internal/repository"
	"ent-messaging-go/internal/router"
	"ent-messaging-go/internal/service"
	"ent-messaging-go/pkg/database"
	"ent-messaging-go/pkg/es"
	"ent-messaging-go/pkg/kafka"
	"ent-messaging-go/pkg/keycloak"
	"ent-messaging-go/pkg/llm"
	"ent-messaging-go/pkg/log"
	"ent-messaging-go/pkg/token"

	"github.com/gin-gonic/gin"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// baseCtx 在停机时取消：结束 WebSocket 连接、Kafka 消费者和 JWKS 刷新
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()

	// 3. 初始化数据库并建表
	database.InitDB(cfg.Database.Driver, cfg.Database.DSN)
	if err := repository.AutoMigrate(database.DB); err != nil {
		log.Fatal("数据库迁移失败", err)
	}

	// 4. 初始化 Repository
	userRepo := repository.NewUserRepository(database.DB)
	conversationRepo := repository.NewConversationRepository(database.DB)
	messageRepo := repository.NewMessageRepository(database.DB)

	// 5. 身份校验
	verifier := newVerifier(baseCtx, cfg.Identity)
	keycloakClient := keycloak.NewClient(cfg.Identity)

	// 6. 推送注册表：集群模式下通过 Redis 在实例间转发
	var registry realtime.Registry
	var redisRegistry *realtime.RedisRegistry
	if cfg.Realtime.Cluster {
		database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
		var err error
		redisRegistry, err = realtime.NewRedisRegistry(baseCtx, database.RDB, cfg.Realtime.ChannelPrefix)
		if err != nil {
			log.Fatal("Redis 推送注册表初始化失败", err)
		}
		registry = redisRegistry
	} else {
		registry = realtime.NewLocalRegistry()
	}

	// 7. 搜索索引与异步管道
	var searcher service.MessageSearcher
	var processor kafka.TaskProcessor
	if cfg.Elasticsearch.Enabled {
		esClient, err := es.NewClient(cfg.Elasticsearch)
		if err != nil {
			log.Fatal("Elasticsearch 初始化失败", err)
		}
		if err := esClient.EnsureIndex(baseCtx); err != nil {
			log.Fatal("Elasticsearch 索引创建失败", err)
		}
		searcher = esClient
		processor = pipeline.NewIndexer(esClient)
	}

	var producer kafka.Producer
	if cfg.Kafka.Enabled && processor != nil {
		producer = kafka.NewProducer(cfg.Kafka)
		go kafka.StartConsumer(baseCtx, cfg.Kafka, processor)
	} else {
		if cfg.Kafka.Enabled {
			log.Warnf("kafka.enabled 已设置但 Elasticsearch 未启用，不启动消息索引管道")
		}
		// 未启用 Kafka 时同步写索引；ES 也未启用时任务被丢弃
		producer = kafka.DirectProducer{Processor: processor}
	}

	// 8. 初始化 Service (依赖注入)
	roles := service.RoleMapping{ProfessorRole: cfg.Identity.ProfessorRole, StudentRole: cfg.Identity.StudentRole}
	userService := service.NewUserService(userRepo, keycloakClient, verifier, roles)
	messagingService := service.NewMessagingService(userRepo, conversationRepo, messageRepo, registry, producer)
	searchService := service.NewSearchService(conversationRepo, searcher)
	assistantService := service.NewAssistantService(llm.NewClient(cfg.Assistant))

	// 9. 设置 Gin 模式并注册路由
	gin.SetMode(cfg.Server.Mode)
	r := router.New(router.Deps{
		BaseContext:      baseCtx,
		Verifier:         verifier,
		UserService:      userService,
		MessagingService: messagingService,
		SearchService:    searchService,
		AssistantService: assistantService,
		Registry:         registry,
		Realtime:         cfg.Realtime,
		CORSOrigins:      cfg.Server.CORSOrigins,
	})

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	// 先取消 baseCtx，让 WebSocket 连接以 1001 关闭，Shutdown 才不会等待被劫持的连接
	cancelBase()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("HTTP 服务器关闭失败: %v", err)
	}

	if err := producer.Close(); err != nil {
		log.Errorf("关闭 Kafka 生产者失败: %v", err)
	}
	if redisRegistry != nil {
		if err := redisRegistry.Close(); err != nil {
			log.Errorf("关闭 Redis 推送注册表失败: %v", err)
		}
	}
	log.Info("服务已优雅关闭")
}

// newVerifier 配置了 hmac_secret 时使用共享密钥，否则从 Keycloak 拉取 JWKS。
func newVerifier(ctx context.Context, cfg config.IdentityConfig) token.Verifier {
	if cfg.HMACSecret != "" {
		log.Warnf("identity.hmac_secret 已设置，使用 HS256 校验 token，仅限本地开发")
		return token.NewHMACVerifier(cfg.HMACSecret)
	}
	v, err := token.NewJWKSVerifier(ctx, cfg.CertsURL())
	if err != nil {
		log.Fatal("加载 Keycloak JWKS 失败", err)
	}
	return v
}
