package handler

import (
	"errors"
	"net/http"
	"portfolio-assistant/internal/middleware"
	"portfolio-assistant/internal/service"
	"portfolio-assistant/pkg/log"

	"github.com/gin-gonic/gin"
)

// BookmarkHandler 处理项目收藏。
type BookmarkHandler struct {
	bookmarkService service.BookmarkService
}

// NewBookmarkHandler 创建一个新的 BookmarkHandler。
func NewBookmarkHandler(bookmarkService service.BookmarkService) *BookmarkHandler {
	return &BookmarkHandler{bookmarkService: bookmarkService}
}

// Toggle 切换某个项目的收藏状态。
func (h *BookmarkHandler) Toggle(c *gin.Context) {
	projectID := c.Param("projectId")
	visitorID := middleware.VisitorID(c)

	bookmarked, err := h.bookmarkService.Toggle(c.Request.Context(), visitorID, projectID)
	if err != nil {
		if errors.Is(err, service.ErrUnknownProject) {
			c.JSON(http.StatusNotFound, gin.H{"code": http.StatusNotFound, "message": "项目不存在", "data": nil})
			return
		}
		log.Errorw("切换收藏失败", "visitorId", visitorID, "projectId", projectID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "切换收藏失败", "data": nil})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": gin.H{"projectId": projectID, "bookmarked": bookmarked}})
}

// List 返回访客收藏的项目 ID。
func (h *BookmarkHandler) List(c *gin.Context) {
	ids, err := h.bookmarkService.List(c.Request.Context(), middleware.VisitorID(c))
	if err != nil {
		log.Errorf("List bookmarks failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "获取收藏失败", "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": ids})
}
