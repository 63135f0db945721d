package constants

// HTTP 請求相關常數
const (
	// 默認值（可被配置覆蓋）
	DefaultMaxRequestBodySize = 10 << 20 // 10MB
	DefaultMaxMultipartMemory = 10 << 20 // 10MB
	DefaultRequestTimeout     = 30       // 秒
)

// 分頁相關常數
const (
	DefaultPageSize    = 20
	DefaultMaxPageSize = 100
	MinPageSize        = 1
)

// 訊息相關常數
const (
	DefaultMaxSubjectLength = 200
	DefaultMaxContentLength = 10000
	MinContentLength        = 1
)

// 附件相關常數
const (
	DefaultMaxAttachmentCount = 5
	DefaultMaxAttachmentSize  = 10 << 20 // 10MB
	ThumbnailMaxEdge          = 320      // 縮圖最長邊（像素）
)

// Rate Limiting 默認值
const (
	DefaultRateLimitPerMinute   = 100
	DefaultSendRateLimit        = 30
	DefaultSearchRateLimit      = 20
	RateLimitCleanupIntervalMin = 10 // 分鐘
)

// MongoDB 查詢相關常數
const (
	DefaultMongoQueryLimit = 20
	MaxMongoQueryLimit     = 100
	MaxSweepBatchSize      = 500
)

// 用戶 ID 相關常數
const (
	MaxUserIDLength = 100
)

// 未讀計數快取相關常數
const (
	DefaultUnreadTTLSeconds = 30
)

// 通知相關常數
const (
	DefaultSuppressionWindowSeconds = 300 // 同一對話的通知抑制窗口
	DefaultNotifyTimeoutSeconds     = 10
	DefaultUploadTimeoutSeconds     = 30
)
