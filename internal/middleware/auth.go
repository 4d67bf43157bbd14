// Package middleware 提供了处理 HTTP 请求的中间件。
package middleware

import (
	"net/http"
	"portfolio-assistant/pkg/token"
	"strings"

	"github.com/gin-gonic/gin"
)

// 上下文中保存访客信息的键。
const (
	ContextVisitorID = "visitorID"
	ContextClaims    = "claims"
)

// AuthMiddleware 创建一个 Gin 中间件，用于访客令牌认证。
// 它从 Authorization 头中提取 Bearer token，验证通过后把访客 ID 存入上下文。
func AuthMiddleware(jwtManager *token.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "请求未包含授权头", "data": nil})
			return
		}

		const bearerPrefix = "Bearer "
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "无效的授权头格式", "data": nil})
			return
		}

		claims, err := jwtManager.VerifyToken(strings.TrimPrefix(authHeader, bearerPrefix))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "无效或已过期的 token", "data": nil})
			return
		}

		c.Set(ContextVisitorID, claims.VisitorID)
		c.Set(ContextClaims, claims)
		c.Next()
	}
}

// VisitorID 取出 AuthMiddleware 写入的访客 ID。
func VisitorID(c *gin.Context) string {
	return c.GetString(ContextVisitorID)
}
