package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"ent-messaging-go/internal/model"
	"ent-messaging-go/internal/realtime"
	"ent-messaging-go/internal/repository"
	appErrors "ent-messaging-go/pkg/errors"
	"ent-messaging-go/pkg/kafka"
	"ent-messaging-go/pkg/log"
	"ent-messaging-go/pkg/tasks"

	"gorm.io/gorm"
)

// indexPublishTimeout 限制发布索引任务占用请求的时间。
const indexPublishTimeout = 3 * time.Second

// Sender 是已通过认证的发送者，角色取自当前 token。
type Sender struct {
	UserID string
	Role   model.Role
}

// MessagingService 定义了教师与学生之间私信的业务操作。
type MessagingService interface {
	ListConversations(ctx context.Context, userID string, role model.Role) ([]model.ConversationSummary, error)
	// ListMessages 返回会话的全部消息（从旧到新），并把对方发来的消息标记为已读。
	ListMessages(ctx context.Context, conversationID uint, requesterID string) ([]model.MessageView, error)
	// SendMessage 持久化消息后尽力推送给在线的接收者。
	SendMessage(ctx context.Context, sender Sender, receiverID, body string) (*model.MessageView, error)
}

type messagingService struct {
	userRepo repository.UserRepository
	convRepo repository.ConversationRepository
	msgRepo  repository.MessageRepository
	registry realtime.Registry
	producer kafka.Producer
	now      func() time.Time
}

// NewMessagingService 创建一个新的 MessagingService 实例。producer 为 nil 时不发布索引任务。
func NewMessagingService(
	userRepo repository.UserRepository,
	convRepo repository.ConversationRepository,
	msgRepo repository.MessageRepository,
	registry realtime.Registry,
	producer kafka.Producer,
) MessagingService {
	if producer == nil {
		producer = kafka.DirectProducer{}
	}
	return &messagingService{
		userRepo: userRepo,
		convRepo: convRepo,
		msgRepo:  msgRepo,
		registry: registry,
		producer: producer,
		now:      time.Now,
	}
}

func (s *messagingService) ListConversations(ctx context.Context, userID string, role model.Role) ([]model.ConversationSummary, error) {
	if !role.Valid() {
		return nil, appErrors.ErrNoMessagingRole
	}
	summaries, err := s.convRepo.ListSummaries(ctx, userID, role)
	if err != nil {
		return nil, appErrors.Internal("查询会话列表失败", err)
	}
	if summaries == nil {
		summaries = []model.ConversationSummary{}
	}
	return summaries, nil
}

func (s *messagingService) ListMessages(ctx context.Context, conversationID uint, requesterID string) ([]model.MessageView, error) {
	conv, err := authorizeConversation(ctx, s.convRepo, conversationID, requesterID)
	if err != nil {
		return nil, err
	}

	views, err := s.msgRepo.ListByConversation(ctx, conv.ID)
	if err != nil {
		return nil, appErrors.Internal("查询消息失败", err)
	}
	if len(views) == 0 {
		return []model.MessageView{}, nil
	}

	// 只标记本次返回的消息，之后到达的消息保持未读
	lastID := views[len(views)-1].ID
	if _, err := s.msgRepo.MarkRead(ctx, conv.ID, requesterID, lastID); err != nil {
		log.Errorf("[MessagingService] 标记已读失败, conversation_id=%d, user=%s: %v", conv.ID, requesterID, err)
		return views, nil
	}
	for i := range views {
		if views[i].SenderID != requesterID {
			views[i].IsRead = true
		}
	}
	return views, nil
}

// authorizeConversation 加载会话并确认 requesterID 是会话的一方。
func authorizeConversation(ctx context.Context, convRepo repository.ConversationRepository, conversationID uint, requesterID string) (*model.Conversation, error) {
	conv, err := convRepo.FindByID(ctx, conversationID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, appErrors.ErrConversationNotFound
	}
	if err != nil {
		return nil, appErrors.Internal("查询会话失败", err)
	}
	if !conv.HasParty(requesterID) {
		return nil, appErrors.ErrNotConversationParty
	}
	return conv, nil
}

func (s *messagingService) SendMessage(ctx context.Context, sender Sender, receiverID, body string) (*model.MessageView, error) {
	if strings.TrimSpace(body) == "" {
		return nil, appErrors.ErrEmptyMessage
	}
	if !sender.Role.Valid() {
		return nil, appErrors.ErrNoMessagingRole
	}

	receiver, err := s.userRepo.FindByID(ctx, receiverID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, appErrors.ErrReceiverNotFound
	}
	if err != nil {
		return nil, appErrors.Internal("查询接收者失败", err)
	}

	msg, conv, err := s.appendMessage(ctx, sender, receiver, body)
	if err != nil {
		return nil, err
	}

	view := &model.MessageView{Message: *msg, SenderUsername: s.usernameOf(ctx, sender.UserID)}
	s.notify(ctx, receiver.UserID, view)
	s.publishIndexTask(ctx, conv, msg)
	return view, nil
}

// appendMessage 校验消息方向，找到或创建会话，并在一个事务中写入消息。
func (s *messagingService) appendMessage(ctx context.Context, sender Sender, receiver *model.User, body string) (*model.Message, *model.Conversation, error) {
	var professorID, studentID string
	switch {
	case sender.Role == model.RoleProfessor && receiver.Role == model.RoleStudent:
		professorID, studentID = sender.UserID, receiver.UserID
	case sender.Role == model.RoleStudent && receiver.Role == model.RoleProfessor:
		professorID, studentID = receiver.UserID, sender.UserID
	default:
		return nil, nil, appErrors.ErrInvalidMessageFlow
	}

	conv, created, err := s.convRepo.FindOrCreate(ctx, professorID, studentID)
	if err != nil {
		return nil, nil, appErrors.Internal("创建会话失败", err)
	}
	if created {
		log.Infof("[MessagingService] 新建会话 %d: professor=%s, student=%s", conv.ID, professorID, studentID)
	}

	msg := &model.Message{
		ConversationID: conv.ID,
		SenderID:       sender.UserID,
		Body:           body,
		SentAt:         s.now(),
	}
	if err := s.msgRepo.Append(ctx, msg); err != nil {
		return nil, nil, appErrors.Internal("保存消息失败", err)
	}
	return msg, conv, nil
}

func (s *messagingService) usernameOf(ctx context.Context, userID string) string {
	u, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		log.Warnf("[MessagingService] 查询发送者 %s 用户名失败: %v", userID, err)
		return ""
	}
	return u.Username
}

// notify 推送结果只记录日志，消息已经持久化，接收者下次拉取时可以看到。
func (s *messagingService) notify(ctx context.Context, receiverID string, view *model.MessageView) {
	payload, err := json.Marshal(model.PushFrame{Type: model.PushTypeNewMessage, Data: view})
	if err != nil {
		log.Errorf("[MessagingService] 序列化推送帧失败: %v", err)
		return
	}
	if s.registry.Push(ctx, receiverID, payload) {
		log.Debugf("[MessagingService] 消息 %d 已推送给 %s", view.ID, receiverID)
	} else {
		log.Debugf("[MessagingService] 接收者 %s 不在线，消息 %d 等待拉取", receiverID, view.ID)
	}
}

func (s *messagingService) publishIndexTask(ctx context.Context, conv *model.Conversation, msg *model.Message) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), indexPublishTimeout)
	defer cancel()
	task := tasks.MessageIndexTask{
		MessageID:      msg.ID,
		ConversationID: conv.ID,
		SenderID:       msg.SenderID,
		ProfessorID:    conv.ProfessorID,
		StudentID:      conv.StudentID,
		MessageText:    msg.Body,
		SentAt:         msg.SentAt,
	}
	if err := s.producer.ProduceMessageTask(pubCtx, task); err != nil {
		log.Warnf("[MessagingService] 发布消息 %d 的索引任务失败: %v", msg.ID, err)
	}
}
