// Package middleware 提供了处理 HTTP 请求的中间件。
package middleware

import (
	"net/http"
	"strings"

	"ent-messaging-go/internal/model"
	"ent-messaging-go/internal/service"
	appErrors "ent-messaging-go/pkg/errors"
	"ent-messaging-go/pkg/log"
	"ent-messaging-go/pkg/token"

	"github.com/gin-gonic/gin"
)

const (
	// AccessTokenCookie 是登录接口写入的 HttpOnly cookie 名。
	AccessTokenCookie = "access_token"

	identityKey = "identity"
	roleKey     = "role"
)

// AuthMiddleware 创建一个 Gin 中间件，用于 token 认证。
// 它从 Authorization 头（或 access_token cookie）中提取 token，校验后把身份和消息角色存入上下文，
// 并在用户首次出现时写入用户目录。
func AuthMiddleware(verifier token.Verifier, userService service.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := ExtractToken(c)
		if raw == "" {
			abortWithError(c, appErrors.ErrUnauthenticated)
			return
		}

		id, err := verifier.Verify(c.Request.Context(), raw)
		if err != nil {
			log.Debugf("token 校验失败: %v", err)
			abortWithError(c, appErrors.ErrUnauthenticated)
			return
		}

		role, err := userService.EnsureUser(c.Request.Context(), id)
		if err != nil {
			log.Errorf("写入用户目录失败, user=%s: %v", id.UserID, err)
			abortWithError(c, err)
			return
		}

		c.Set(identityKey, id)
		c.Set(roleKey, role)
		c.Next()
	}
}

// ExtractToken 优先读取 "Bearer <token>" 形式的 Authorization 头，否则读取 access_token cookie。
func ExtractToken(c *gin.Context) string {
	const bearerPrefix = "Bearer "
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			return ""
		}
		return strings.TrimSpace(strings.TrimPrefix(authHeader, bearerPrefix))
	}
	if cookie, err := c.Cookie(AccessTokenCookie); err == nil {
		return cookie
	}
	return ""
}

// CurrentIdentity 返回 AuthMiddleware 存入的身份。
func CurrentIdentity(c *gin.Context) (*token.Identity, bool) {
	v, exists := c.Get(identityKey)
	if !exists {
		return nil, false
	}
	id, ok := v.(*token.Identity)
	return id, ok
}

// CurrentRole 返回当前 token 对应的消息角色，没有时为空。
func CurrentRole(c *gin.Context) model.Role {
	v, _ := c.Get(roleKey)
	role, _ := v.(model.Role)
	return role
}

func abortWithError(c *gin.Context, err error) {
	status := appErrors.HTTPStatus(err)
	c.AbortWithStatusJSON(status, gin.H{"code": status, "message": appErrors.MessageOf(err), "data": nil})
}

// abortInternal 用于中间件顺序配置错误等不应出现的情况。
func abortInternal(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": msg, "data": nil})
}
