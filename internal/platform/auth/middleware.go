package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ContextKey gin.Context 中保存 identity id 的键
const ContextKey = "x-identity-id"

// Middleware 校验 Bearer 令牌并把 identity id 注入上下文
func Middleware(issuer *TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token", "code": "unauthenticated"})
			return
		}

		id, err := issuer.Parse(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error(), "code": "unauthenticated"})
			return
		}

		c.Set(ContextKey, id)
		c.Next()
	}
}

// IdentityID 从上下文读取已认证的 identity id
func IdentityID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(ContextKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}
