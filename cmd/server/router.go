package main

import (
	"portfolio-assistant/internal/config"
	"portfolio-assistant/internal/handler"
	"portfolio-assistant/internal/middleware"
	"portfolio-assistant/internal/service"
	"portfolio-assistant/pkg/token"

	"github.com/gin-gonic/gin"
)

type routerDeps struct {
	jwtManager      *token.JWTManager
	admin           config.AdminConfig
	visitorService  service.VisitorService
	chatService     service.ChatService
	bookmarkService service.BookmarkService
	adminService    service.AdminService
}

// newRouter 注册所有路由。
func newRouter(d routerDeps) *gin.Engine {
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	// 添加我们自定义的日志中间件和 Gin 的 Recovery 中间件
	r.Use(middleware.RequestLogger(), gin.Recovery())

	visitorHandler := handler.NewVisitorHandler(d.visitorService)
	chatHandler := handler.NewChatHandler(d.chatService, d.jwtManager)
	conversationHandler := handler.NewConversationHandler(d.chatService)
	bookmarkHandler := handler.NewBookmarkHandler(d.bookmarkService)
	adminHandler := handler.NewAdminHandler(d.adminService)

	apiV1 := r.Group("/api/v1")
	{
		// 无需认证：签发访客身份
		visitors := apiV1.Group("/visitors")
		{
			visitors.POST("", visitorHandler.Register)
			visitors.POST("/refreshToken", visitorHandler.RefreshToken)
		}

		// Chat 路由组，需要访客令牌
		chat := apiV1.Group("/chat")
		chat.Use(middleware.AuthMiddleware(d.jwtManager))
		{
			chat.POST("/session", chatHandler.OpenSession)
			chat.DELETE("/session", chatHandler.CloseSession)
			chat.POST("/messages", chatHandler.SendMessage)
			chat.GET("/quick-actions", chatHandler.QuickActions)
			chat.POST("/quick-actions/:index", chatHandler.SendQuickAction)
			chat.GET("/suggestions", chatHandler.Suggestions)
			chat.POST("/share/:kind", chatHandler.ShareFile)
			chat.GET("/history", conversationHandler.GetHistory)
			chat.GET("/export", conversationHandler.Export)
		}

		bookmarks := apiV1.Group("/bookmarks")
		bookmarks.Use(middleware.AuthMiddleware(d.jwtManager))
		{
			bookmarks.GET("", bookmarkHandler.List)
			bookmarks.POST("/:projectId", bookmarkHandler.Toggle)
		}

		admin := apiV1.Group("/admin")
		admin.Use(middleware.AdminAuthMiddleware(d.admin))
		{
			admin.GET("/exchanges", adminHandler.ListExchanges)
			admin.GET("/visitors", adminHandler.ListVisitors)
			admin.GET("/analytics/:visitorId", adminHandler.GetAnalytics)
		}
	}

	// Chat 路由 (WebSocket)，token 放在路径中，浏览器无法为 WebSocket 设置请求头
	r.GET("/chat/:token", chatHandler.Handle)

	return r
}
