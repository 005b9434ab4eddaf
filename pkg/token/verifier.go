// Package token 提供了校验身份服务签发的 JSON Web Tokens (JWT) 的功能。
package token

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken 表示 token 缺失、签名不合法、已过期或缺少主体。
var ErrInvalidToken = errors.New("invalid token")

// Identity 是一次成功校验后得到的调用者身份。
type Identity struct {
	UserID   string   // IdP 的 subject
	Username string   // preferred_username
	Roles    []string // realm_access.roles
}

// HasRole 判断 token 是否携带给定的 realm 角色。
func (i *Identity) HasRole(role string) bool {
	return role != "" && slices.Contains(i.Roles, role)
}

// Verifier 校验原始 token 并返回身份。
type Verifier interface {
	Verify(ctx context.Context, raw string) (*Identity, error)
}

// KeycloakClaims 对应 Keycloak access token 中我们关心的声明。
type KeycloakClaims struct {
	PreferredUsername string `json:"preferred_username"`
	RealmAccess       struct {
		Roles []string `json:"roles"`
	} `json:"realm_access"`
	jwt.RegisteredClaims
}

// JWTVerifier 使用给定的 jwt.Keyfunc 校验签名，并要求 token 带有过期时间和主体。
type JWTVerifier struct {
	keyfunc jwt.Keyfunc
	methods []string
}

// NewJWTVerifier 创建一个 JWTVerifier，methods 限定允许的签名算法。
func NewJWTVerifier(kf jwt.Keyfunc, methods ...string) *JWTVerifier {
	return &JWTVerifier{keyfunc: kf, methods: methods}
}

// NewJWKSVerifier 从 Keycloak 的 certs 地址拉取 JWKS 并在后台刷新，用于校验 RS256 token。
// ctx 结束时后台刷新停止。
func NewJWKSVerifier(ctx context.Context, certsURL string) (*JWTVerifier, error) {
	k, err := keyfunc.NewDefaultCtx(ctx, []string{certsURL})
	if err != nil {
		return nil, fmt.Errorf("failed to load JWKS from %s: %w", certsURL, err)
	}
	return NewJWTVerifier(k.Keyfunc, jwt.SigningMethodRS256.Alg()), nil
}

// NewHMACVerifier 创建使用共享密钥 (HS256) 的校验器，仅用于本地开发和测试。
func NewHMACVerifier(secret string) *JWTVerifier {
	key := []byte(secret)
	return NewJWTVerifier(func(*jwt.Token) (interface{}, error) {
		return key, nil
	}, jwt.SigningMethodHS256.Alg())
}

// Verify 校验 token 字符串。签名不匹配、过期或缺少 sub 时返回包装了 ErrInvalidToken 的错误。
func (v *JWTVerifier) Verify(_ context.Context, raw string) (*Identity, error) {
	if raw == "" {
		return nil, ErrInvalidToken
	}
	claims := &KeycloakClaims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, v.keyfunc,
		jwt.WithValidMethods(v.methods),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &Identity{
		UserID:   claims.Subject,
		Username: claims.PreferredUsername,
		Roles:    claims.RealmAccess.Roles,
	}, nil
}
