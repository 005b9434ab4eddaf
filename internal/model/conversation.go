// Package model 包含了应用的数据模型定义。
package model

import "time"

// Conversation 是一位教师与一位学生之间唯一的消息会话。
type Conversation struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"conversation_id"`
	ProfessorID    string    `gorm:"type:varchar(64);not null;uniqueIndex:uk_conversation_pair,priority:1" json:"professor_id"`
	StudentID      string    `gorm:"type:varchar(64);not null;uniqueIndex:uk_conversation_pair,priority:2;index" json:"student_id"`
	LastActivityAt time.Time `gorm:"not null;index" json:"last_activity_at"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Conversation) TableName() string {
	return "conversations"
}

// HasParty 判断用户是否是会话的一方。
func (c *Conversation) HasParty(userID string) bool {
	return c.ProfessorID == userID || c.StudentID == userID
}

// ConversationSummary 是会话列表中的一行，附带未读数和最后一条消息。
type ConversationSummary struct {
	ConversationID    uint      `json:"conversation_id"`
	ProfessorID       string    `json:"professor_id"`
	StudentID         string    `json:"student_id"`
	ProfessorUsername string    `json:"professor_username"`
	StudentUsername   string    `json:"student_username"`
	LastActivityAt    time.Time `json:"last_activity_at"`
	UnreadCount       int64     `json:"unread_count"`
	LastMessage       *string   `json:"last_message"`
}
