package security

import (
	"PRelay/logger"
	"PRelay/tools/errs"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// 后续 handler 统一用这个 key 读取握手身份
const PPCtxIdentityKey = "relayIdentity"

// HandshakeGuard 升级前拦截：握手不通过直接 401，不建立连接
func HandshakeGuard(a *Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := a.Authenticate(c.Request.URL.Query(), c.Request.Header)
		if err != nil {
			ce, _ := errs.AsCodeError(err)
			logger.Info("[Handshake] rejected",
				zap.String("remote", c.ClientIP()),
				zap.String("reason", ce.Reason),
				zap.String("detail", ce.Detail))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    ce.Reason,
				"message": ce.Msg,
			})
			return
		}
		c.Set(PPCtxIdentityKey, id)
		c.Next()
	}
}

// IdentityFrom 取出 HandshakeGuard 写入的身份
func IdentityFrom(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(PPCtxIdentityKey)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}
