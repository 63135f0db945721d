package middleware

import (
	"github.com/gin-gonic/gin"
)

// RequireUser 要求請求帶有用戶身份
// 等待 user 服務實現後改為 token 驗證
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := CurrentUserID(c)
		if userID == "" {
			c.JSON(401, gin.H{
				"error":      "未授權訪問",
				"success":    false,
				"request_id": GetRequestID(c),
			})
			c.Abort()
			return
		}

		if err := ValidateUserID(userID); err != nil {
			c.JSON(401, gin.H{
				"error":      "未授權訪問",
				"success":    false,
				"request_id": GetRequestID(c),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
