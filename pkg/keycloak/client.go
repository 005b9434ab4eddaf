// Package keycloak 提供了与 Keycloak OpenID Connect token 接口交互的客户端。
package keycloak

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ent-messaging-go/internal/config"
)

var (
	// ErrInvalidCredentials 表示用户名或密码错误。
	ErrInvalidCredentials = errors.New("keycloak: invalid user credentials")
	// ErrAccountDisabled 表示账号存在但尚未启用。
	ErrAccountDisabled = errors.New("keycloak: account disabled")
)

// TokenResponse 是 token 接口返回的 token 集合。
type TokenResponse struct {
	AccessToken      string `json:"access_token"`
	ExpiresIn        int    `json:"expires_in"`
	RefreshToken     string `json:"refresh_token,omitempty"`
	RefreshExpiresIn int    `json:"refresh_expires_in,omitempty"`
	TokenType        string `json:"token_type"`
	Scope            string `json:"scope,omitempty"`
}

type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// Client 是 Keycloak realm 的客户端。
type Client struct {
	tokenURL     string
	clientID     string
	clientSecret string
	httpClient   *http.Client
}

// NewClient 创建一个新的 Keycloak 客户端实例。
func NewClient(cfg config.IdentityConfig) *Client {
	return &Client{
		tokenURL:     cfg.TokenURL(),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
	}
}

// PasswordGrant 使用用户名和密码换取 token（Resource Owner Password Credentials）。
func (c *Client) PasswordGrant(ctx context.Context, username, password string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("client_id", c.clientID)
	if c.clientSecret != "" {
		form.Set("client_secret", c.clientSecret)
	}
	form.Set("username", username)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("调用 Keycloak 失败: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取 Keycloak 响应失败: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		var tokens TokenResponse
		if err := json.Unmarshal(body, &tokens); err != nil {
			return nil, fmt.Errorf("解析 Keycloak 响应失败: %w", err)
		}
		if tokens.AccessToken == "" {
			return nil, errors.New("Keycloak 响应中缺少 access_token")
		}
		return &tokens, nil
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized:
		var kcErr errorResponse
		_ = json.Unmarshal(body, &kcErr)
		if strings.Contains(kcErr.ErrorDescription, "Account disabled") {
			return nil, ErrAccountDisabled
		}
		return nil, ErrInvalidCredentials
	default:
		return nil, fmt.Errorf("Keycloak 返回错误 [%d]: %s", resp.StatusCode, string(body))
	}
}
