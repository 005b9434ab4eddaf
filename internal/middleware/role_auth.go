package middleware

import (
	"slices"

	"ent-messaging-go/internal/model"
	appErrors "ent-messaging-go/pkg/errors"

	"github.com/gin-gonic/gin"
)

// RequireRole 检查当前 token 的消息角色是否在允许列表中。
// 此中间件必须在 AuthMiddleware 之后使用。
func RequireRole(allowed ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentIdentity(c); !ok {
			abortInternal(c, "无法获取用户信息")
			return
		}

		role := CurrentRole(c)
		if !role.Valid() {
			abortWithError(c, appErrors.ErrNoMessagingRole)
			return
		}
		if len(allowed) > 0 && !slices.Contains(allowed, role) {
			abortWithError(c, appErrors.ErrRoleRequired)
			return
		}
		c.Next()
	}
}

// RequireMessagingRole 只允许教师或学生访问。
func RequireMessagingRole() gin.HandlerFunc {
	return RequireRole(model.RoleProfessor, model.RoleStudent)
}
