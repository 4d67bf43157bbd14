package handler

import (
	"net/http"
	"portfolio-assistant/internal/service"
	"portfolio-assistant/pkg/log"
	"strconv"

	"github.com/gin-gonic/gin"
)

// AdminHandler 负责处理所有与管理员相关的 API 请求。
type AdminHandler struct {
	adminService service.AdminService
}

// NewAdminHandler 创建一个新的 AdminHandler 实例。
func NewAdminHandler(adminService service.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

// ListExchanges 分页查询归档的问答，visitorId 为空时查询全部访客。
func (h *AdminHandler) ListExchanges(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的 limit 参数", "data": nil})
		return
	}

	exchanges, err := h.adminService.ListExchanges(c.Query("visitorId"), limit)
	if err != nil {
		log.Error("ListExchanges: Failed to list exchanges", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "获取问答记录失败", "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": exchanges})
}

// ListVisitors 列出有对话记录的访客。
func (h *AdminHandler) ListVisitors(c *gin.Context) {
	ids, err := h.adminService.ListVisitors(c.Request.Context())
	if err != nil {
		log.Error("ListVisitors: Failed to scan visitors", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "获取访客列表失败", "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": ids})
}

// GetAnalytics 返回某个访客的聊天统计。
func (h *AdminHandler) GetAnalytics(c *gin.Context) {
	stats, err := h.adminService.GetAnalytics(c.Request.Context(), c.Param("visitorId"))
	if err != nil {
		log.Error("GetAnalytics: Failed to load analytics", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "获取统计数据失败", "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": stats})
}
