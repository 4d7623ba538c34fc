package middlewares

import (
	"context"
	"net/http"
	"sync"
	"time"

	"election-engine/internal/api/models"

	"github.com/gin-gonic/gin"
)

// RateLimiter counts requests per client in fixed one-minute windows
type RateLimiter struct {
	visitors map[string]*visitor
	mutex    sync.Mutex
	rate     int
	cleanup  time.Duration
	now      func() time.Time
}

type visitor struct {
	lastSeen time.Time
	count    int
	window   time.Time
}

// NewRateLimiter creates a limiter allowing rate requests per minute per client.
// Idle clients are forgotten until ctx is done.
func NewRateLimiter(ctx context.Context, rate int) *RateLimiter {
	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		cleanup:  10 * time.Minute,
		now:      time.Now,
	}

	go rl.cleanupExpiredVisitors(ctx)
	return rl
}

// Middleware limits per voter identity when present, otherwise per client IP
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetString(ContextVoterID)
		if key == "" {
			key = c.ClientIP()
		}

		if !rl.Allow(key) {
			c.JSON(http.StatusTooManyRequests, models.BaseResponse{
				Success: false,
				Error: &models.ErrorInfo{
					Code:    models.ErrCodeRateLimitExceeded,
					Message: "Rate limit exceeded. Please try again later.",
				},
				Timestamp: time.Now().Unix(),
				RequestID: c.GetString("request_id"),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

func (rl *RateLimiter) Allow(key string) bool {
	if rl.rate <= 0 {
		return true
	}

	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	v, exists := rl.visitors[key]
	if !exists {
		rl.visitors[key] = &visitor{lastSeen: now, count: 1, window: now}
		return true
	}

	v.lastSeen = now

	// Reset counter if window has passed
	if now.Sub(v.window) >= time.Minute {
		v.count = 1
		v.window = now
		return true
	}

	if v.count >= rl.rate {
		return false
	}

	v.count++
	return true
}

func (rl *RateLimiter) cleanupExpiredVisitors(ctx context.Context) {
	ticker := time.NewTicker(rl.cleanup)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.mutex.Lock()
			now := rl.now()
			for key, v := range rl.visitors {
				if now.Sub(v.lastSeen) > rl.cleanup {
					delete(rl.visitors, key)
				}
			}
			rl.mutex.Unlock()
		}
	}
}
