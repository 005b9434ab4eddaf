// Package pipeline 定义了消息写入搜索索引的处理流程。
package pipeline

import (
	"context"
	"fmt"

	"ent-messaging-go/internal/model"
	"ent-messaging-go/pkg/log"
	"ent-messaging-go/pkg/tasks"
)

// MessageIndex 是索引器依赖的搜索存储。
type MessageIndex interface {
	IndexMessage(ctx context.Context, doc model.EsMessage) error
}

// Indexer 把消息索引任务写入搜索存储，实现 kafka.TaskProcessor。
type Indexer struct {
	index MessageIndex
}

// NewIndexer 创建一个新的 Indexer 实例。
func NewIndexer(index MessageIndex) *Indexer {
	return &Indexer{index: index}
}

// Process 处理一条消息索引任务。
func (p *Indexer) Process(ctx context.Context, task tasks.MessageIndexTask) error {
	if task.MessageID == 0 || task.ConversationID == 0 {
		log.Warnf("[Indexer] 跳过无效任务: message_id=%d, conversation_id=%d", task.MessageID, task.ConversationID)
		return nil
	}

	doc := model.EsMessage{
		MessageID:      task.MessageID,
		ConversationID: task.ConversationID,
		SenderID:       task.SenderID,
		ProfessorID:    task.ProfessorID,
		StudentID:      task.StudentID,
		MessageText:    task.MessageText,
		SentAt:         task.SentAt,
	}
	if err := p.index.IndexMessage(ctx, doc); err != nil {
		return fmt.Errorf("index message %d: %w", task.MessageID, err)
	}
	log.Debugf("[Indexer] 消息已索引: message_id=%d, conversation_id=%d", task.MessageID, task.ConversationID)
	return nil
}
