package middleware

import (
	"net/http"
	"strings"

	"PRelay/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Origin 只放行白名单里的 Origin；allowed 为空时全部放行，"*" 也表示全部放行。
// 没带 Origin 头的请求（非浏览器客户端）直接放行。
func Origin(allowed []string) gin.HandlerFunc {
	set := make(map[string]struct{}, len(allowed))
	allowAll := len(allowed) == 0
	for _, o := range allowed {
		o = strings.TrimRight(strings.ToLower(strings.TrimSpace(o)), "/")
		if o == "*" {
			allowAll = true
		}
		if o != "" {
			set[o] = struct{}{}
		}
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if allowAll || origin == "" {
			c.Next()
			return
		}
		if _, ok := set[strings.TrimRight(strings.ToLower(origin), "/")]; !ok {
			logger.Warn("[HTTP] origin rejected", zap.String("origin", origin), zap.String("path", c.Request.URL.Path))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"code": "OriginNotAllowed", "message": "Origin not allowed"})
			return
		}
		c.Next()
	}
}
