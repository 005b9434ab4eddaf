package model

import "time"

// Message 对应于 'messages' 表，只有 IsRead 会在创建后变化。
type Message struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"message_id"`
	ConversationID uint      `gorm:"not null;index:idx_messages_conversation" json:"conversation_id"`
	SenderID       string    `gorm:"type:varchar(64);not null" json:"sender_id"`
	Body           string    `gorm:"column:message_text;type:text;not null" json:"message_text"`
	SentAt         time.Time `gorm:"not null" json:"sent_at"`
	IsRead         bool      `gorm:"not null;default:false" json:"is_read"`
}

func (Message) TableName() string {
	return "messages"
}

// MessageView 是返回给客户端的消息，附带发送者用户名。
type MessageView struct {
	Message
	SenderUsername string `json:"sender_username"`
}

// PushFrame 是通过 WebSocket 推送给接收者的帧。
type PushFrame struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// PushTypeNewMessage 标识新消息推送。
const PushTypeNewMessage = "new_message"
