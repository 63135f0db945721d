package server

import (
	"context"
	"time"

	"marketplace-messaging/internal/messaging"
	"marketplace-messaging/internal/platform/config"
	"marketplace-messaging/internal/platform/health"
	"marketplace-messaging/internal/platform/middleware"
	"marketplace-messaging/internal/presence"

	"github.com/gin-gonic/gin"
)

// securityHeadersMiddleware 添加安全標頭
func securityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 防止點擊劫持
		c.Header("X-Frame-Options", "DENY")

		// 防止 MIME 類型嗅探
		c.Header("X-Content-Type-Options", "nosniff")

		// 啟用 XSS 保護
		c.Header("X-XSS-Protection", "1; mode=block")

		// 內容安全策略
		c.Header("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data: https:; font-src 'self'; connect-src 'self'; frame-ancestors 'none';")

		// 推薦政策
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		// 權限政策
		c.Header("Permissions-Policy", "geolocation=(), microphone=(), camera=()")

		c.Next()
	}
}

// corsMiddleware 安全的 CORS 中間件
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		// 只允許特定的來源（生產環境應該從配置文件讀取）
		allowedOrigins := map[string]bool{
			"http://localhost:3000":  true, // 開發環境前端
			"http://localhost:8080":  true, // 本地測試
			"http://127.0.0.1:8080":  true, // 本地測試 (127.0.0.1)
			"https://yourdomain.com": true, // 生產環境（請修改為實際域名）
		}

		if allowedOrigins[origin] {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID, X-User-ID")
		c.Header("Access-Control-Max-Age", "86400") // 預檢請求緩存 24 小時

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// presenceHeartbeat 通過任一認證請求刷新用戶在線標記
func presenceHeartbeat(tracker *presence.Tracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.CurrentUserID(c)
		if userID != "" {
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = tracker.Heartbeat(ctx, userID)
			}()
		}
		c.Next()
	}
}

// Router 設定路由.
func Router(handler *messaging.Handler, tracker *presence.Tracker) *gin.Engine {
	r := gin.Default()

	// 添加安全的 CORS 中間件
	r.Use(corsMiddleware())

	// 添加請求 ID 中間件（最優先）
	r.Use(middleware.RequestIDMiddleware())

	// 添加安全標頭中間件
	r.Use(securityHeadersMiddleware())

	// 添加請求元數據中間件（提取 IP、User-Agent、用戶身份）
	r.Use(middleware.RequestMetadataMiddleware())

	// 從配置讀取限制參數
	cfg := config.Get()

	// 添加請求大小限制（防止大文件攻擊）
	maxBodySize := int64(10 << 20) // 默認 10MB
	if cfg != nil && cfg.Limits.Request.MaxBodySize > 0 {
		maxBodySize = cfg.Limits.Request.MaxBodySize
	}
	r.Use(middleware.RequestSizeLimiter(maxBodySize))

	maxMemory := int64(10 << 20) // 默認 10MB
	if cfg != nil && cfg.Limits.Request.MaxMultipartMemory > 0 {
		maxMemory = cfg.Limits.Request.MaxMultipartMemory
	}
	r.MaxMultipartMemory = maxMemory

	// 創建 Rate Limiter
	defaultLimit := 100
	if cfg != nil && cfg.Limits.RateLimiting.DefaultPerMinute > 0 {
		defaultLimit = cfg.Limits.RateLimiting.DefaultPerMinute
	}
	rateLimiter := middleware.NewPerEndpointRateLimiter(defaultLimit, time.Minute)

	// 為不同端點設置不同的速率限制
	if cfg != nil && cfg.Limits.RateLimiting.Enabled {
		if cfg.Limits.RateLimiting.SendPerMin > 0 {
			rateLimiter.SetLimit("/api/v1/messages", cfg.Limits.RateLimiting.SendPerMin, time.Minute)
		}
		if cfg.Limits.RateLimiting.SearchPerMin > 0 {
			rateLimiter.SetLimit("/api/v1/messages/search", cfg.Limits.RateLimiting.SearchPerMin, time.Minute)
		}
	}

	// 應用 Rate Limiting 中間件
	r.Use(rateLimiter.Middleware())

	// 創建處理器
	healthHandler := health.NewHealthHandler()

	// health check
	r.GET("/health", healthHandler.HealthCheck)

	// 站內信 API（一律要求用戶身份）
	api := r.Group("/api/v1", middleware.RequireUser(), presenceHeartbeat(tracker))
	{
		api.POST("/messages", handler.SendMessage)
		api.GET("/messages", handler.ListMessages)
		api.GET("/messages/search", handler.Search)
		api.GET("/messages/unread-count", handler.UnreadCount)
		api.GET("/messages/:id", handler.GetMessage)
		api.POST("/messages/:id/reply", handler.Reply)
		api.POST("/messages/:id/read", handler.MarkRead)
		api.POST("/messages/:id/star", handler.ToggleStar)
		api.POST("/messages/:id/archive", handler.Archive)
		api.POST("/messages/:id/unarchive", handler.Unarchive)
		api.DELETE("/messages/:id", handler.DeleteMessage)

		api.POST("/drafts", handler.SaveDraft)

		api.GET("/conversations", handler.ListConversations)

		api.GET("/notifications", handler.ListNotifications)
		api.POST("/notifications/read", handler.MarkNotificationsRead)
	}

	return r
}
