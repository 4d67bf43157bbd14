// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"net/http"
	"portfolio-assistant/internal/service"
	"portfolio-assistant/pkg/log"

	"github.com/gin-gonic/gin"
)

// VisitorHandler 负责为匿名访客签发和刷新令牌。
type VisitorHandler struct {
	visitorService service.VisitorService
}

// NewVisitorHandler 创建一个新的 VisitorHandler 实例。
func NewVisitorHandler(visitorService service.VisitorService) *VisitorHandler {
	return &VisitorHandler{visitorService: visitorService}
}

// RefreshTokenRequest 定义了刷新 token API 的请求体结构。
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// Register 为新访客分配 ID 并签发令牌。
func (h *VisitorHandler) Register(c *gin.Context) {
	tokens, err := h.visitorService.Register()
	if err != nil {
		log.Errorf("Register: failed to issue visitor tokens, error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "签发访客令牌失败", "data": nil})
		return
	}

	log.Infow("新访客已注册", "visitorId", tokens.VisitorID)
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": tokens})
}

// RefreshToken 处理刷新 token 的请求。
func (h *VisitorHandler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("RefreshToken: Invalid request payload, error: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的请求负载：refreshToken 不能为空", "data": nil})
		return
	}

	tokens, err := h.visitorService.Refresh(req.RefreshToken)
	if err != nil {
		log.Warnf("RefreshToken: Failed to refresh token, error: %v", err)
		c.JSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "无效的 refresh token", "data": nil})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "Token refreshed successfully", "data": tokens})
}
