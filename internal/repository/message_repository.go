package repository

import (
	"context"

	"ent-messaging-go/internal/model"

	"gorm.io/gorm"
)

// MessageRepository 定义了会话消息日志的持久化操作。
type MessageRepository interface {
	// Append 在同一事务中写入消息并把会话的 last_activity_at 更新为消息的发送时间。
	Append(ctx context.Context, msg *model.Message) error
	ListByConversation(ctx context.Context, conversationID uint) ([]model.MessageView, error)
	// MarkRead 把 readerID 之外的一方发送、ID 不超过 upToID 的未读消息标记为已读。
	MarkRead(ctx context.Context, conversationID uint, readerID string, upToID uint) (int64, error)
	CountUnread(ctx context.Context, conversationID uint, readerID string) (int64, error)
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository 创建一个新的 MessageRepository 实例。
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Append(ctx context.Context, msg *model.Message) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		return tx.Model(&model.Conversation{}).
			Where("id = ?", msg.ConversationID).
			Update("last_activity_at", msg.SentAt).Error
	})
}

// ListByConversation 按发送顺序（自增 ID）返回会话中的全部消息。
func (r *messageRepository) ListByConversation(ctx context.Context, conversationID uint) ([]model.MessageView, error) {
	var views []model.MessageView
	err := r.db.WithContext(ctx).
		Table("messages").
		Select("messages.*, COALESCE(users.username, '') AS sender_username").
		Joins("LEFT JOIN users ON users.user_id = messages.sender_id").
		Where("messages.conversation_id = ?", conversationID).
		Order("messages.id ASC").
		Scan(&views).Error
	if err != nil {
		return nil, err
	}
	return views, nil
}

func (r *messageRepository) MarkRead(ctx context.Context, conversationID uint, readerID string, upToID uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND is_read = ? AND id <= ?", conversationID, readerID, false, upToID).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

func (r *messageRepository) CountUnread(ctx context.Context, conversationID uint, readerID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND is_read = ?", conversationID, readerID, false).
		Count(&n).Error
	return n, err
}
