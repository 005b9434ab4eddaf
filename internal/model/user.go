package model

import "time"

// Role 是用户在消息系统中的角色。
type Role string

const (
	RoleProfessor Role = "professor"
	RoleStudent   Role = "student"
)

// Valid 判断角色是否可以参与消息收发。
func (r Role) Valid() bool {
	return r == RoleProfessor || r == RoleStudent
}

// User 对应于数据库中的 'users' 表。
// UserID 是身份服务中的 subject，首次通过认证时写入。
type User struct {
	UserID    string    `gorm:"type:varchar(64);primaryKey" json:"user_id"`
	Username  string    `gorm:"type:varchar(255);not null" json:"username"`
	Role      Role      `gorm:"type:varchar(16);not null;index" json:"role"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (User) TableName() string {
	return "users"
}

// Contact 是用户列表接口返回的精简信息。
type Contact struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}
