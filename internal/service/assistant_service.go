package service

import (
	"context"
	"errors"
	"strings"

	appErrors "ent-messaging-go/pkg/errors"
	"ent-messaging-go/pkg/llm"
	"ent-messaging-go/pkg/log"

	"github.com/google/uuid"
)

// AssistantReply 是 AI 助手的一次回复。
type AssistantReply struct {
	Response       string `json:"response"`
	ConversationID string `json:"conversation_id"`
}

// AssistantService 把用户的问题转发给本地补全服务。
type AssistantService interface {
	Chat(ctx context.Context, message, conversationID string) (*AssistantReply, error)
}

type assistantService struct {
	llmClient llm.Client
}

// NewAssistantService 创建一个新的 AssistantService。
func NewAssistantService(llmClient llm.Client) AssistantService {
	return &assistantService{llmClient: llmClient}
}

// Chat 单轮问答，不保存历史；conversationID 为空时生成一个新的。
func (s *assistantService) Chat(ctx context.Context, message, conversationID string) (*AssistantReply, error) {
	if strings.TrimSpace(message) == "" {
		return nil, appErrors.ErrEmptyMessage
	}
	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	answer, err := s.llmClient.Generate(ctx, message)
	switch {
	case errors.Is(err, llm.ErrTimeout):
		log.Errorf("[AssistantService] 补全服务超时: %v", err)
		return nil, appErrors.DeadlineExceeded("AI 服务响应超时", err)
	case errors.Is(err, llm.ErrUnavailable):
		log.Errorf("[AssistantService] 无法连接补全服务: %v", err)
		return nil, appErrors.WithCause(appErrors.ErrAssistantUnavailable, err)
	case err != nil:
		log.Errorf("[AssistantService] 补全服务返回错误: %v", err)
		return nil, appErrors.Internal("与 AI 服务通信出错", err)
	}
	return &AssistantReply{Response: answer, ConversationID: conversationID}, nil
}
