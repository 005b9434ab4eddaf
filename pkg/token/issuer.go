package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// HMACIssuer 签发与 Keycloak access token 结构相同的 HS256 token。
// 仅在配置了 identity.hmac_secret 的本地开发环境及测试中使用。
type HMACIssuer struct {
	secretKey []byte
	ttl       time.Duration
}

// NewHMACIssuer 创建一个新的 HMACIssuer 实例。
func NewHMACIssuer(secret string, ttl time.Duration) *HMACIssuer {
	return &HMACIssuer{secretKey: []byte(secret), ttl: ttl}
}

// Issue 为给定主体生成 access token。
func (m *HMACIssuer) Issue(userID, username string, roles ...string) (string, error) {
	now := time.Now()
	claims := KeycloakClaims{
		PreferredUsername: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	claims.RealmAccess.Roles = roles
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secretKey)
}
