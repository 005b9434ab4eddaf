// Package tasks defines the structure for tasks that are sent to Kafka.
package tasks

import "time"

// MessageIndexTask 描述一条已持久化、等待写入搜索索引的消息。
type MessageIndexTask struct {
	MessageID      uint      `json:"message_id"`
	ConversationID uint      `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	ProfessorID    string    `json:"professor_id"`
	StudentID      string    `json:"student_id"`
	MessageText    string    `json:"message_text"`
	SentAt         time.Time `json:"sent_at"`
}
