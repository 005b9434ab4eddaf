// Package realtime 管理在线用户的 WebSocket 推送通道。
package realtime

import (
	"context"
	"sync"

	"ent-messaging-go/pkg/log"
)

// Channel 是可以向单个已连接用户发送帧的通道。
type Channel interface {
	Send(ctx context.Context, payload []byte) error
}

// Registry 维护 user_id 到在线通道的映射，每个用户最多一个通道，后连接者覆盖先连接者。
type Registry interface {
	// Register 安装或替换用户的通道，被替换的通道不会被关闭。
	Register(userID string, ch Channel)
	// Unregister 仅在映射仍指向 ch 时删除它。
	Unregister(userID string, ch Channel)
	// Push 尽力推送，不重试；没有通道或发送失败时返回 false。
	Push(ctx context.Context, userID string, payload []byte) bool
	// Count 返回当前进程内的在线通道数。
	Count() int
}

// LocalRegistry 是进程内的 Registry 实现。
type LocalRegistry struct {
	mu       sync.RWMutex
	channels map[string]Channel
}

// NewLocalRegistry 创建一个空的进程内注册表。
func NewLocalRegistry() *LocalRegistry {
	return &LocalRegistry{channels: make(map[string]Channel)}
}

func (r *LocalRegistry) Register(userID string, ch Channel) {
	r.mu.Lock()
	_, replaced := r.channels[userID]
	r.channels[userID] = ch
	total := len(r.channels)
	r.mu.Unlock()

	log.Debugf("[Registry] 用户 %s 已连接 (replaced=%t)，在线数: %d", userID, replaced, total)
}

func (r *LocalRegistry) Unregister(userID string, ch Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.channels[userID]
	if !ok || current != ch {
		return
	}
	delete(r.channels, userID)
	log.Debugf("[Registry] 用户 %s 已断开，在线数: %d", userID, len(r.channels))
}

func (r *LocalRegistry) Push(ctx context.Context, userID string, payload []byte) bool {
	ch, ok := r.lookup(userID)
	if !ok {
		return false
	}
	if err := ch.Send(ctx, payload); err != nil {
		log.Warnf("[Registry] 推送给用户 %s 失败: %v", userID, err)
		return false
	}
	return true
}

func (r *LocalRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels)
}

func (r *LocalRegistry) lookup(userID string) (Channel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ch, ok := r.channels[userID]
	return ch, ok
}

// has 报告用户当前是否在本进程在线。
func (r *LocalRegistry) has(userID string) bool {
	_, ok := r.lookup(userID)
	return ok
}
