package middlewares

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"social-hub/services"
	"social-hub/utils"
)

const userIDKey = "user_id"

// TokenAuthMiddleware 校验 Bearer Token 并把用户 ID 写入上下文
func TokenAuthMiddleware(tokens services.TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			utils.RespondError(c, fmt.Errorf("%w: missing bearer token", services.ErrUnauthorized))
			return
		}
		userID, err := tokens.ParseToken(strings.TrimSpace(token))
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// CurrentUserID returns the id set by TokenAuthMiddleware, or 0.
func CurrentUserID(c *gin.Context) uint {
	if v, ok := c.Get(userIDKey); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}
