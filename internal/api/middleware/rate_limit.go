package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/edmundobop/plataforma-bravo-web-sub000/pkg/response"
)

// RateLimiter 窗口计数限流（Redis 实现）
type RateLimiter interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RateLimit 限制单个用户（未登录时按 IP）对某路由的请求频率
// limit: 窗口内允许的最大请求数
// window: 窗口时长
// store 为 nil 或 Redis 出错时改用进程内令牌桶，凭据复核不会因 Redis 故障失去限流
func RateLimit(store RateLimiter, limit int, window time.Duration) gin.HandlerFunc {
	local := newLocalLimiter(limit, window)
	retryAfter := window
	if limit > 0 {
		retryAfter = window / time.Duration(limit)
	}

	return func(c *gin.Context) {
		key := fmt.Sprintf("rate_limit:%s:%s", rateLimitSubject(c), c.FullPath())

		var allowed bool
		if store != nil {
			ok, err := store.CheckRateLimit(c.Request.Context(), key, limit, window)
			if err != nil {
				allowed = local.allow(key)
			} else {
				allowed = ok
			}
		} else {
			allowed = local.allow(key)
		}

		if !allowed {
			response.TooManyRequests(c, "请求过于频繁，请稍后再试", retryAfter)
			c.Abort()
			return
		}

		c.Next()
	}
}

func rateLimitSubject(c *gin.Context) string {
	if uid := c.GetString("user_id"); uid != "" {
		return "user:" + uid
	}
	return "ip:" + c.ClientIP()
}

// localLimiter 按 key 维护令牌桶；limit 次/window，允许 limit 次突发
type localLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	every    rate.Limit
	burst    int
}

func newLocalLimiter(limit int, window time.Duration) *localLimiter {
	if limit <= 0 {
		limit = 1
	}
	return &localLimiter{
		limiters: make(map[string]*rate.Limiter),
		every:    rate.Every(window / time.Duration(limit)),
		burst:    limit,
	}
}

func (l *localLimiter) allow(key string) bool {
	l.mu.Lock()
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(l.every, l.burst)
		l.limiters[key] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}
