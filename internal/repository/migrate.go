package repository

import (
	"ent-messaging-go/internal/model"

	"gorm.io/gorm"
)

// AutoMigrate 创建或更新消息服务使用的表及唯一索引。
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&model.User{}, &model.Conversation{}, &model.Message{})
}
