// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"errors"

	"ent-messaging-go/internal/model"
	"ent-messaging-go/internal/repository"
	appErrors "ent-messaging-go/pkg/errors"
	"ent-messaging-go/pkg/keycloak"
	"ent-messaging-go/pkg/log"
	"ent-messaging-go/pkg/token"

	"gorm.io/gorm"
)

// RoleMapping 描述 IdP realm 角色到消息角色的映射。
type RoleMapping struct {
	ProfessorRole string
	StudentRole   string
}

// Resolve 返回身份对应的消息角色；同时持有两种角色时按教师处理。
func (m RoleMapping) Resolve(id *token.Identity) (model.Role, bool) {
	switch {
	case id == nil:
		return "", false
	case id.HasRole(m.ProfessorRole):
		return model.RoleProfessor, true
	case id.HasRole(m.StudentRole):
		return model.RoleStudent, true
	default:
		return "", false
	}
}

// PasswordGranter 用用户名和密码向 IdP 换取 token。
type PasswordGranter interface {
	PasswordGrant(ctx context.Context, username, password string) (*keycloak.TokenResponse, error)
}

// LoginResult 是登录成功后返回给客户端的内容。
type LoginResult struct {
	Tokens *keycloak.TokenResponse
	User   *model.User // 没有消息角色时为 nil
}

// UserService 接口定义了所有与用户目录相关的业务操作。
type UserService interface {
	// EnsureUser 在用户首次出现时写入目录（已存在则不修改），返回 token 对应的消息角色。
	// 没有消息角色的身份不写入目录，返回空角色。
	EnsureUser(ctx context.Context, id *token.Identity) (model.Role, error)
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	ListByRole(ctx context.Context, role model.Role) ([]model.Contact, error)
	GetUser(ctx context.Context, userID string) (*model.User, error)
}

// userService 是 UserService 接口的实现。
type userService struct {
	userRepo repository.UserRepository
	idp      PasswordGranter
	verifier token.Verifier
	roles    RoleMapping
}

// NewUserService 创建一个新的 UserService 实例。
func NewUserService(userRepo repository.UserRepository, idp PasswordGranter, verifier token.Verifier, roles RoleMapping) UserService {
	return &userService{
		userRepo: userRepo,
		idp:      idp,
		verifier: verifier,
		roles:    roles,
	}
}

func (s *userService) EnsureUser(ctx context.Context, id *token.Identity) (model.Role, error) {
	role, ok := s.roles.Resolve(id)
	if !ok {
		return "", nil
	}
	err := s.userRepo.CreateIfAbsent(ctx, &model.User{
		UserID:   id.UserID,
		Username: id.Username,
		Role:     role,
	})
	if err != nil {
		return "", appErrors.Internal("写入用户目录失败", err)
	}
	return role, nil
}

// Login 通过 IdP 密码模式登录，并以 token 中的用户名和角色覆盖目录中的记录。
func (s *userService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	if username == "" || password == "" {
		return nil, appErrors.InvalidArg("用户名和密码不能为空")
	}

	tokens, err := s.idp.PasswordGrant(ctx, username, password)
	switch {
	case errors.Is(err, keycloak.ErrInvalidCredentials):
		return nil, appErrors.ErrInvalidCredentials
	case errors.Is(err, keycloak.ErrAccountDisabled):
		return nil, appErrors.ErrAccountDisabled
	case err != nil:
		log.Errorf("[UserService] 调用身份服务失败: %v", err)
		return nil, appErrors.WithCause(appErrors.ErrIdentityProviderFailed, err)
	}

	id, err := s.verifier.Verify(ctx, tokens.AccessToken)
	if err != nil {
		return nil, appErrors.Internal("身份服务返回的 token 无法校验", err)
	}

	result := &LoginResult{Tokens: tokens}
	role, ok := s.roles.Resolve(id)
	if !ok {
		log.Warnf("[UserService] 用户 %s 没有教师或学生角色，不写入目录", id.UserID)
		return result, nil
	}

	user := &model.User{UserID: id.UserID, Username: id.Username, Role: role}
	if err := s.userRepo.Upsert(ctx, user); err != nil {
		return nil, appErrors.Internal("写入用户目录失败", err)
	}
	log.Infof("[UserService] 用户 %s 登录成功, role: %s", id.Username, role)
	result.User = user
	return result, nil
}

// ListByRole 返回某一角色的全部用户。
func (s *userService) ListByRole(ctx context.Context, role model.Role) ([]model.Contact, error) {
	if !role.Valid() {
		return nil, appErrors.InvalidArg("无效的角色")
	}
	users, err := s.userRepo.FindByRole(ctx, role)
	if err != nil {
		return nil, appErrors.Internal("查询用户失败", err)
	}
	contacts := make([]model.Contact, 0, len(users))
	for _, u := range users {
		contacts = append(contacts, model.Contact{UserID: u.UserID, Username: u.Username})
	}
	return contacts, nil
}

func (s *userService) GetUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, appErrors.ErrUserNotFound
	}
	if err != nil {
		return nil, appErrors.Internal("查询用户失败", err)
	}
	return user, nil
}
