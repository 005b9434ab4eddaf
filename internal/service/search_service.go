package service

import (
	"context"
	"strings"

	"ent-messaging-go/internal/model"
	"ent-messaging-go/internal/repository"
	appErrors "ent-messaging-go/pkg/errors"
	"ent-messaging-go/pkg/log"
)

const (
	defaultSearchSize = 20
	maxSearchSize     = 100
)

// MessageSearcher 是会话内全文检索的后端。
type MessageSearcher interface {
	SearchConversation(ctx context.Context, conversationID uint, query string, size int) ([]model.MessageSearchHit, error)
}

// SearchService 接口定义了消息搜索操作。
type SearchService interface {
	SearchConversation(ctx context.Context, conversationID uint, requesterID, query string, size int) ([]model.MessageSearchHit, error)
}

type searchService struct {
	convRepo repository.ConversationRepository
	searcher MessageSearcher
}

// NewSearchService 创建一个新的 SearchService 实例。searcher 为 nil 表示未启用搜索。
func NewSearchService(convRepo repository.ConversationRepository, searcher MessageSearcher) SearchService {
	return &searchService{
		convRepo: convRepo,
		searcher: searcher,
	}
}

// SearchConversation 按与拉取消息相同的规则鉴权后，在会话内检索消息正文。
func (s *searchService) SearchConversation(ctx context.Context, conversationID uint, requesterID, query string, size int) ([]model.MessageSearchHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, appErrors.ErrEmptyQuery
	}
	if _, err := authorizeConversation(ctx, s.convRepo, conversationID, requesterID); err != nil {
		return nil, err
	}
	if s.searcher == nil {
		return nil, appErrors.ErrSearchDisabled
	}

	if size <= 0 {
		size = defaultSearchSize
	}
	if size > maxSearchSize {
		size = maxSearchSize
	}

	log.Infof("[SearchService] 会话 %d 内搜索, query_len: %d, size: %d", conversationID, len(query), size)
	hits, err := s.searcher.SearchConversation(ctx, conversationID, query, size)
	if err != nil {
		log.Errorf("[SearchService] 搜索失败: %v", err)
		return nil, appErrors.Unavailable("消息搜索暂不可用", err)
	}
	if hits == nil {
		hits = []model.MessageSearchHit{}
	}
	return hits, nil
}
