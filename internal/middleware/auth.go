package middleware

import (
	"edu_bridge_backend/internal/util"
	"edu_bridge_backend/pkg/authgateway"
	"edu_bridge_backend/pkg/logger"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthMiddleware rejects the request with 401 unless the bearer token is
// vouched for by the gateway.
func AuthMiddleware(gateway authgateway.Gateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			tokenString = strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		}

		if tokenString == "" {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		identity, err := gateway.Verify(c.Request.Context(), tokenString)
		if err != nil {
			logger.Log.Debug("token rejected", zap.String("path", c.FullPath()), zap.Error(err))
			util.Unauthorized(c)
			c.Abort()
			return
		}

		c.Set(util.ContextUserKey, &util.CurrentUser{
			UserID: identity.ID,
			Email:  identity.Email,
			Role:   identity.Role,
		})
		c.Next()
	}
}

type UserActivityRepo interface {
	UpdateLastSeen(userID string) error
}

func ActivityMiddleware(repo UserActivityRepo) gin.HandlerFunc {
	return func(c *gin.Context) {
		current := util.GetUserFromContext(c)
		if current != nil {
			// 异步更新，不阻塞主流程
			go func(userID string) {
				if err := repo.UpdateLastSeen(userID); err != nil {
					logger.Log.Warn("update last_seen failed", zap.String("user_id", userID), zap.Error(err))
				}
			}(current.UserID)
		}
		c.Next()
	}
}
