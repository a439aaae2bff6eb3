package middleware

import (
	"context"
	"net/http"
	"time"

	"wishlist-service/internal/dto"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Limiter interface {
	AllowRequest(ctx context.Context, key string, window time.Duration) (bool, error)
}

// RateLimit допускает один запрос к маршруту с одного IP за окно window.
// Без лимитера или при ошибке Redis запрос пропускается.
func RateLimit(limiter Limiter, window time.Duration, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || window <= 0 {
			c.Next()
			return
		}
		key := c.FullPath() + ":" + c.ClientIP()
		ok, err := limiter.AllowRequest(c.Request.Context(), key, window)
		if err != nil {
			log.Warn("rate limit check failed", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewRateLimitedError("too many requests"))
			return
		}
		c.Next()
	}
}
