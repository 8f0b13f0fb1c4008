package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CORS はすべてのオリジンからのクロスオリジンリクエストを許可する
// Ginミドルウェアを返す。資格情報付きリクエストを許可するため、
// ワイルドカードではなくリクエスト元のオリジンをそのまま応答する。
// Authorizationヘッダーはクライアントから参照できるよう公開する。
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			if reqHeaders := c.GetHeader("Access-Control-Request-Headers"); reqHeaders != "" {
				c.Header("Access-Control-Allow-Headers", reqHeaders)
			} else {
				c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
			}
			c.Header("Access-Control-Expose-Headers", "Authorization")
			c.Header("Access-Control-Max-Age", "86400")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
