package main

import (
	"context"
	"fmt"
	"os"

	"marketplace-messaging/internal/platform/config"
	"marketplace-messaging/internal/platform/driver"
	"marketplace-messaging/internal/platform/logger"
	"marketplace-messaging/internal/platform/server"
	"marketplace-messaging/internal/storage/database"
)

func main() {
	if err := mainNoExit(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// mainNoExit 分離主要邏輯以避免 exitAfterDefer 問題，確保 defer 函數正常執行.
func mainNoExit() error {
	// 載入配置.
	if err := config.Load(); err != nil {
		return err
	}

	// 初始化日誌.
	if err := logger.InitLogger(); err != nil {
		return err
	}
	defer logger.CloseLogger()

	ctx := context.Background()
	logger.Infof(ctx, "正在啟動站內信 API 伺服器，環境: %s", config.GetEnv())

	// 連接資料庫.
	if err := driver.ConnectMongo(); err != nil {
		return err
	}
	defer func() {
		if err := driver.CloseMongo(); err != nil {
			logger.Errorf(ctx, "關閉 MongoDB 連接失敗: %v", err)
		}
	}()

	// 連接 Redis（可選，未啟用時在線狀態與通知抑制降級）.
	if err := driver.ConnectRedis(); err != nil {
		logger.Errorf(ctx, "Redis 連接失敗，相關功能降級: %v", err)
	}
	defer func() {
		if err := driver.CloseRedis(); err != nil {
			logger.Errorf(ctx, "關閉 Redis 連接失敗: %v", err)
		}
	}()

	// 設置 MongoDB 連接到 database 包
	database.SetMongoDB(driver.GetMongoDatabase())

	// 初始化 Repository.
	repos := database.NewRepositories(config.Get())
	if repos == nil {
		return fmt.Errorf("repository initialization failed")
	}

	// 啟動 HTTP 服務器（阻塞直到收到關閉信號）.
	return server.Start(repos)
}
