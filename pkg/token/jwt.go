// Package token 提供了用于签发和验证访客 JSON Web Token 的功能。
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	kindAccess  = "access"
	kindRefresh = "refresh"
)

// JWTManager 负责管理 JWT 的生成和验证。
type JWTManager struct {
	secretKey       []byte        // secretKey 用于签名和验证 token 的密钥
	accessTokenDur  time.Duration // accessTokenDur 定义了 access token 的有效期
	refreshTokenDur time.Duration // refreshTokenDur 定义了 refresh token 的有效期
}

// VisitorClaims 是访客令牌中携带的数据。
// 站点没有账号体系，VisitorID 即访客在存储中的命名空间。
type VisitorClaims struct {
	VisitorID string `json:"visitorId"`
	Kind      string `json:"kind"`
	jwt.RegisteredClaims
}

// NewJWTManager 创建一个新的 JWTManager 实例。
func NewJWTManager(secret string, accessTokenExpireHours, refreshTokenExpireDays int) *JWTManager {
	return &JWTManager{
		secretKey:       []byte(secret),
		accessTokenDur:  time.Hour * time.Duration(accessTokenExpireHours),
		refreshTokenDur: time.Duration(refreshTokenExpireDays) * 24 * time.Hour,
	}
}

// GenerateToken 为访客签发 access token。
func (m *JWTManager) GenerateToken(visitorID string) (string, error) {
	return m.sign(visitorID, kindAccess, m.accessTokenDur)
}

// GenerateRefreshToken 为访客签发有效期更长的 refresh token。
func (m *JWTManager) GenerateRefreshToken(visitorID string) (string, error) {
	return m.sign(visitorID, kindRefresh, m.refreshTokenDur)
}

func (m *JWTManager) sign(visitorID, kind string, dur time.Duration) (string, error) {
	now := time.Now()
	claims := VisitorClaims{
		VisitorID: visitorID,
		Kind:      kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   visitorID,
			ExpiresAt: jwt.NewNumericDate(now.Add(dur)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secretKey)
}

// VerifyToken 验证 access token 并返回其中的 claims。
func (m *JWTManager) VerifyToken(tokenString string) (*VisitorClaims, error) {
	return m.verify(tokenString, kindAccess)
}

// VerifyRefreshToken 验证 refresh token 并返回其中的 claims。
func (m *JWTManager) VerifyRefreshToken(tokenString string) (*VisitorClaims, error) {
	return m.verify(tokenString, kindRefresh)
}

func (m *JWTManager) verify(tokenString, kind string) (*VisitorClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &VisitorClaims{}, func(token *jwt.Token) (interface{}, error) {
		// 检查签名方法是否为 HMAC
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secretKey, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*VisitorClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Kind != kind || claims.VisitorID == "" {
		return nil, errors.New("token kind mismatch")
	}
	return claims, nil
}
