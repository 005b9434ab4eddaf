package handler

import (
	"net/http"

	"ent-messaging-go/internal/middleware"
	"ent-messaging-go/internal/service"
	"ent-messaging-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// defaultCookieMaxAge 在 IdP 未返回 expires_in 时使用。
const defaultCookieMaxAge = 3600

// AuthHandler 负责处理登录请求。
type AuthHandler struct {
	userService service.UserService
}

// NewAuthHandler 创建一个新的 AuthHandler 实例。
func NewAuthHandler(userService service.UserService) *AuthHandler {
	return &AuthHandler{userService: userService}
}

// LoginRequest 定义了用户登录 API 的请求体结构。
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login 通过身份服务登录，返回 token 集合并写入 HttpOnly cookie。
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("Login: Invalid request payload, error: %v", err)
		respondBadRequest(c, "无效的请求负载：用户名和密码不能为空")
		return
	}

	res, err := h.userService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		log.Warnf("Login: 用户 '%s' 登录失败: %v", req.Username, err)
		respondError(c, err)
		return
	}

	maxAge := res.Tokens.ExpiresIn
	if maxAge <= 0 {
		maxAge = defaultCookieMaxAge
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AccessTokenCookie, res.Tokens.AccessToken, maxAge, "/", "", c.Request.TLS != nil, true)

	data := gin.H{
		"access_token":  res.Tokens.AccessToken,
		"expires_in":    res.Tokens.ExpiresIn,
		"refresh_token": res.Tokens.RefreshToken,
		"token_type":    res.Tokens.TokenType,
		"user":          res.User,
	}
	respondOK(c, "Login successful", data)
}
