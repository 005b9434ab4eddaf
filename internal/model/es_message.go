package model

import "time"

// EsMessage 是写入 Elasticsearch 消息索引的文档，文档 ID 为消息 ID。
type EsMessage struct {
	MessageID      uint      `json:"message_id"`
	ConversationID uint      `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	ProfessorID    string    `json:"professor_id"`
	StudentID      string    `json:"student_id"`
	MessageText    string    `json:"message_text"`
	SentAt         time.Time `json:"sent_at"`
}

// MessageSearchHit 是会话内全文搜索返回给前端的一条结果。
type MessageSearchHit struct {
	EsMessage
	Score float64 `json:"score"`
}
