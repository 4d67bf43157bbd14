package handler

import (
	"errors"
	"fmt"
	"net/http"
	"portfolio-assistant/internal/middleware"
	"portfolio-assistant/internal/service"
	"portfolio-assistant/pkg/log"

	"github.com/gin-gonic/gin"
)

// ConversationHandler 处理对话历史与导出。
type ConversationHandler struct {
	chatService service.ChatService
}

// NewConversationHandler 创建一个新的 ConversationHandler。
func NewConversationHandler(chatService service.ChatService) *ConversationHandler {
	return &ConversationHandler{chatService: chatService}
}

// GetHistory 返回访客的完整对话。
func (h *ConversationHandler) GetHistory(c *gin.Context) {
	history := h.chatService.History(c.Request.Context(), middleware.VisitorID(c))
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": history})
}

// Export 下载纯文本对话记录；store=true 时上传到对象存储并返回下载链接。
func (h *ConversationHandler) Export(c *gin.Context) {
	upload := c.Query("store") == "true"
	visitorID := middleware.VisitorID(c)

	result, err := h.chatService.Export(c.Request.Context(), visitorID, upload)
	if err != nil {
		if errors.Is(err, service.ErrStorageDisabled) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"code": http.StatusServiceUnavailable, "message": "对象存储未启用", "data": nil})
			return
		}
		log.Errorw("导出对话失败", "visitorId", visitorID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "导出对话失败", "data": nil})
		return
	}

	if upload {
		c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": result})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, result.FileName))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(result.Content))
}
