// Package repository 定义了与数据库进行数据交换的接口和实现。
package repository

import (
	"context"

	"ent-messaging-go/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository 接口定义了用户目录的持久化操作。
type UserRepository interface {
	// CreateIfAbsent 在用户不存在时插入，已存在的记录保持不变。
	CreateIfAbsent(ctx context.Context, user *model.User) error
	// Upsert 插入或覆盖用户名与角色（后写者胜出）。
	Upsert(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, userID string) (*model.User, error)
	FindByRole(ctx context.Context, role model.Role) ([]model.User, error)
}

// userRepository 是 UserRepository 接口的 GORM 实现。
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建一个新的 UserRepository 实例。
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) CreateIfAbsent(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(user).Error
}

func (r *userRepository) Upsert(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"username", "role", "updated_at"}),
		}).
		Create(user).Error
}

// FindByID 根据用户 ID 查找用户，不存在时返回 gorm.ErrRecordNotFound。
func (r *userRepository) FindByID(ctx context.Context, userID string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByRole 按用户名排序返回某一角色的全部用户。
func (r *userRepository) FindByRole(ctx context.Context, role model.Role) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).Where("role = ?", role).Order("username ASC").Find(&users).Error
	return users, err
}
