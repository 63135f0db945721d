package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketplace-messaging/internal/attachments"
	"marketplace-messaging/internal/messaging"
	"marketplace-messaging/internal/notifications"
	"marketplace-messaging/internal/platform/config"
	"marketplace-messaging/internal/platform/driver"
	"marketplace-messaging/internal/platform/logger"
	"marketplace-messaging/internal/presence"
	"marketplace-messaging/internal/storage/database"
)

// Start 啟動伺服器，阻塞直到收到關閉信號.
func Start(repos *database.Repositories) error {
	cfg := config.Get()

	ctx := context.Background()

	// 附件上傳器（未配置 S3 bucket 時停用）
	uploader, err := attachments.NewUploader(ctx)
	if err != nil {
		logger.LogErrorf("附件上傳器初始化失敗: %v", err)
		return err
	}
	if uploader == nil {
		logger.LogInfof("未配置 S3 bucket，附件功能停用")
	}

	// 在線狀態追蹤（Redis 未啟用時降級）
	tracker := presence.NewTracker(driver.GetRedisClient())

	// 通知分發器
	dispatcher := notifications.NewDispatcher(repos.Notification, repos.User, tracker)

	// 站內信處理器
	handler := messaging.NewHandler(
		repos.Message, repos.User, repos.Listing, repos.Notification,
		uploader, dispatcher, tracker)

	// setting router
	router := Router(handler, tracker)

	// create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.Timeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.Timeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// HTTPS 配置
	if cfg.Server.UseHTTPS {
		tlsConfig, tlsErr := LoadTLSConfig(cfg.Server.CertPath, cfg.Server.KeyPath)
		if tlsErr != nil {
			logger.LogErrorf("TLS 配置載入失敗: %v", tlsErr)
			return tlsErr
		}
		server.TLSConfig = tlsConfig
	}

	// start server
	go func() {
		logger.LogInfof("伺服器正在監聽埠口: %s", cfg.Server.Port)

		var serveErr error
		if cfg.Server.UseHTTPS {
			serveErr = server.ListenAndServeTLS("", "")
		} else {
			serveErr = server.ListenAndServe()
		}
		if serveErr != nil && serveErr != http.ErrServerClosed {
			logger.LogErrorf("伺服器啟動失敗: %v", serveErr)
			os.Exit(1)
		}
	}()

	// 等待關閉信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.LogInfof("收到關閉信號，正在優雅關閉伺服器...")

	// 優雅關閉
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.LogErrorf("伺服器關閉失敗: %v", err)
		return err
	}

	logger.LogInfof("伺服器已優雅關閉")
	return nil
}
