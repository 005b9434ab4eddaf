package realtime

import (
	"context"
	"strings"
	"sync"
	"time"

	"ent-messaging-go/pkg/log"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// defaultSubscribeTimeout 限制注册与注销时的订阅变更，Redis 卡住时连接的建立与断开不会被一直阻塞。
const defaultSubscribeTimeout = 3 * time.Second

// RedisRegistry 在多个服务实例之间转发推送。
// 每个实例为本地在线用户订阅 <prefix>:push:<user_id>；本地未命中的推送通过 PUBLISH 发给持有该用户连接的实例。
type RedisRegistry struct {
	local  *LocalRegistry
	rdb    *redis.Client
	prefix string
	pubsub *redis.PubSub

	mu               sync.Mutex // 串行化本地注册与订阅变更
	subscribeTimeout time.Duration
	cancel           context.CancelFunc
	done             chan struct{}
}

// NewRedisRegistry 创建注册表并开始接收转发给本实例的推送。
func NewRedisRegistry(ctx context.Context, rdb *redis.Client, prefix string) (*RedisRegistry, error) {
	// 先订阅实例自身的频道，确保 PubSub 连接处于订阅模式
	instanceChannel := prefix + ":instance:" + uuid.NewString()
	ps := rdb.Subscribe(ctx, instanceChannel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	r := &RedisRegistry{
		local:            NewLocalRegistry(),
		rdb:              rdb,
		prefix:           prefix,
		pubsub:           ps,
		subscribeTimeout: defaultSubscribeTimeout,
		cancel:           cancel,
		done:             make(chan struct{}),
	}
	go r.forwardLoop(loopCtx)
	log.Infof("[Registry] Redis 推送转发已启动，实例频道: %s", instanceChannel)
	return r, nil
}

func (r *RedisRegistry) channel(userID string) string {
	return r.prefix + ":push:" + userID
}

func (r *RedisRegistry) Register(userID string, ch Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.local.Register(userID, ch)
	ctx, cancel := context.WithTimeout(context.Background(), r.subscribeTimeout)
	defer cancel()
	if err := r.pubsub.Subscribe(ctx, r.channel(userID)); err != nil {
		log.Errorf("[Registry] 订阅用户 %s 的推送频道失败: %v", userID, err)
	}
}

func (r *RedisRegistry) Unregister(userID string, ch Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.local.Unregister(userID, ch)
	if r.local.has(userID) {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.subscribeTimeout)
	defer cancel()
	if err := r.pubsub.Unsubscribe(ctx, r.channel(userID)); err != nil {
		log.Warnf("[Registry] 取消订阅用户 %s 的推送频道失败: %v", userID, err)
	}
}

// Push 优先推送给本地连接；本地不在线时发布到 Redis，至少一个实例订阅即视为已送达。
func (r *RedisRegistry) Push(ctx context.Context, userID string, payload []byte) bool {
	if r.local.has(userID) {
		return r.local.Push(ctx, userID, payload)
	}
	n, err := r.rdb.Publish(ctx, r.channel(userID), payload).Result()
	if err != nil {
		log.Warnf("[Registry] 发布推送给用户 %s 失败: %v", userID, err)
		return false
	}
	return n > 0
}

func (r *RedisRegistry) Count() int {
	return r.local.Count()
}

// Close 停止转发并关闭订阅连接。
func (r *RedisRegistry) Close() error {
	r.cancel()
	err := r.pubsub.Close()
	<-r.done
	return err
}

func (r *RedisRegistry) forwardLoop(ctx context.Context) {
	defer close(r.done)
	pushPrefix := r.prefix + ":push:"
	msgs := r.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			userID := strings.TrimPrefix(msg.Channel, pushPrefix)
			if userID == msg.Channel {
				continue
			}
			pushCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			if !r.local.Push(pushCtx, userID, []byte(msg.Payload)) {
				log.Debugf("[Registry] 转发的推送未送达用户 %s", userID)
			}
			cancel()
		}
	}
}
