package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mautops/governance-gin/internal/auth"
	"github.com/mautops/governance-gin/internal/workflow"
)

// AuthMiddleware 身份中间件
// 解析 Bearer Token 并把操作者放入上下文,required 为 false 时允许匿名访问
func AuthMiddleware(validator *auth.TokenValidator, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.ExtractBearerToken(c.GetHeader("Authorization"))
		if err != nil {
			if required {
				Error(c, http.StatusUnauthorized, "unauthorized", err.Error())
				c.Abort()
				return
			}
			c.Next()
			return
		}

		claims, err := validator.ValidateToken(token)
		if err != nil {
			Error(c, http.StatusUnauthorized, "invalid token", err.Error())
			c.Abort()
			return
		}

		c.Set(auth.ActorContextKey, auth.ActorFromClaims(claims))
		c.Next()
	}
}

// GetActor 从上下文获取操作者
// 未认证的请求返回匿名操作者
func GetActor(c *gin.Context) workflow.Actor {
	if v, exists := c.Get(auth.ActorContextKey); exists {
		if actor, ok := v.(workflow.Actor); ok {
			return actor
		}
	}
	return workflow.Actor{ID: "anonymous", Name: "Anonymous"}
}
