package handler

import (
	"ent-messaging-go/internal/middleware"
	"ent-messaging-go/internal/model"
	"ent-messaging-go/internal/service"

	"github.com/gin-gonic/gin"
)

// UserHandler 负责处理用户目录相关的 API 请求。
type UserHandler struct {
	userService service.UserService
}

// NewUserHandler 创建一个新的 UserHandler 实例。
func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// Me 返回当前 token 的身份以及解析出的消息角色。
func (h *UserHandler) Me(c *gin.Context) {
	id, _ := middleware.CurrentIdentity(c)
	respondOK(c, "success", gin.H{
		"user_id":  id.UserID,
		"username": id.Username,
		"roles":    id.Roles,
		"role":     middleware.CurrentRole(c),
	})
}

// ListProfessors 返回全部教师，供学生选择联系人。
func (h *UserHandler) ListProfessors(c *gin.Context) {
	h.listByRole(c, model.RoleProfessor)
}

// ListStudents 返回全部学生，供教师选择联系人。
func (h *UserHandler) ListStudents(c *gin.Context) {
	h.listByRole(c, model.RoleStudent)
}

func (h *UserHandler) listByRole(c *gin.Context, role model.Role) {
	contacts, err := h.userService.ListByRole(c.Request.Context(), role)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "success", contacts)
}
