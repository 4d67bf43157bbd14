package middleware

import (
	"crypto/subtle"
	"net/http"
	"portfolio-assistant/internal/config"
	"portfolio-assistant/pkg/hash"
	"portfolio-assistant/pkg/log"

	"github.com/gin-gonic/gin"
)

// AdminAuthMiddleware 使用 HTTP Basic Auth 保护管理接口，密码与配置中的 bcrypt 哈希比对。
// 未配置密码哈希时所有管理请求都会被拒绝。
func AdminAuthMiddleware(cfg config.AdminConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		username, password, ok := c.Request.BasicAuth()
		if !ok {
			c.Header("WWW-Authenticate", `Basic realm="admin"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "需要管理员凭证", "data": nil})
			return
		}

		userOK := subtle.ConstantTimeCompare([]byte(username), []byte(cfg.Username)) == 1
		if !userOK || !hash.CheckPasswordHash(password, cfg.PasswordHash) {
			log.Warnf("管理员认证失败，用户名: %s, IP: %s", username, c.ClientIP())
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"code": http.StatusForbidden, "message": "权限不足，需要管理员权限", "data": nil})
			return
		}

		c.Next()
	}
}
