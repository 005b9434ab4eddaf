package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ent-messaging-go/internal/model"

	"gorm.io/gorm"
)

// ConversationRepository 定义了教师-学生会话的操作接口。
type ConversationRepository interface {
	FindByID(ctx context.Context, conversationID uint) (*model.Conversation, error)
	FindByPair(ctx context.Context, professorID, studentID string) (*model.Conversation, error)
	// FindOrCreate 返回该教师-学生对唯一的会话，created 表示本次调用是否新建了它。
	FindOrCreate(ctx context.Context, professorID, studentID string) (conv *model.Conversation, created bool, err error)
	ListSummaries(ctx context.Context, userID string, role model.Role) ([]model.ConversationSummary, error)
}

type conversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository 创建一个新的 ConversationRepository 实例。
func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

func (r *conversationRepository) FindByID(ctx context.Context, conversationID uint) (*model.Conversation, error) {
	var conv model.Conversation
	if err := r.db.WithContext(ctx).First(&conv, conversationID).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepository) FindByPair(ctx context.Context, professorID, studentID string) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.db.WithContext(ctx).
		Where("professor_id = ? AND student_id = ?", professorID, studentID).
		First(&conv).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// FindOrCreate 返回教师-学生对的会话。先查找只是已有会话时的快速路径，
// 不承担去重：新建总是直接插入，并发首次发消息导致的唯一约束冲突视为"已存在"，回查后返回已有会话。
func (r *conversationRepository) FindOrCreate(ctx context.Context, professorID, studentID string) (*model.Conversation, bool, error) {
	conv, err := r.FindByPair(ctx, professorID, studentID)
	if err == nil {
		return conv, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("failed to find conversation: %w", err)
	}
	return r.insertOrReconcile(ctx, professorID, studentID)
}

func (r *conversationRepository) insertOrReconcile(ctx context.Context, professorID, studentID string) (*model.Conversation, bool, error) {
	conv := &model.Conversation{
		ProfessorID:    professorID,
		StudentID:      studentID,
		LastActivityAt: time.Now(),
	}
	err := r.db.WithContext(ctx).Create(conv).Error
	if err == nil {
		return conv, true, nil
	}
	if !isUniqueViolation(err) {
		return nil, false, fmt.Errorf("failed to create conversation: %w", err)
	}

	existing, findErr := r.FindByPair(ctx, professorID, studentID)
	if findErr != nil {
		return nil, false, fmt.Errorf("conversation conflict but re-read failed: %w", findErr)
	}
	return existing, false, nil
}

// isUniqueViolation 识别唯一约束冲突。未开启 TranslateError 的连接退回到按驱动报错文本判断。
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || // sqlite
		strings.Contains(msg, "Duplicate entry") || // mysql
		strings.Contains(msg, "duplicate key value") // postgres
}

// ListSummaries 返回用户作为教师或学生参与的全部会话，按最近活动时间倒序。
// unread_count 只统计对方发送且未读的消息。
func (r *conversationRepository) ListSummaries(ctx context.Context, userID string, role model.Role) ([]model.ConversationSummary, error) {
	partyColumn := "c.student_id"
	if role == model.RoleProfessor {
		partyColumn = "c.professor_id"
	}

	var rows []model.ConversationSummary
	err := r.db.WithContext(ctx).
		Table("conversations AS c").
		Select(`c.id AS conversation_id, c.professor_id, c.student_id, c.last_activity_at,
			COALESCE(p.username, '') AS professor_username,
			COALESCE(s.username, '') AS student_username,
			(SELECT COUNT(*) FROM messages m
				WHERE m.conversation_id = c.id AND m.is_read = ? AND m.sender_id <> ?) AS unread_count,
			(SELECT lm.message_text FROM messages lm
				WHERE lm.conversation_id = c.id ORDER BY lm.id DESC LIMIT 1) AS last_message`, false, userID).
		Joins("LEFT JOIN users p ON p.user_id = c.professor_id").
		Joins("LEFT JOIN users s ON s.user_id = c.student_id").
		Where(partyColumn+" = ?", userID).
		Order("c.last_activity_at DESC, c.id DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
