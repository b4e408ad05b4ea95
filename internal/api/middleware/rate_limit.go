package middleware

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"menu-scanner/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// IPRateLimiter 依來源 IP 分別限流；閒置超過 window 的 IP 會被移除，
// 此時其令牌桶已補滿，移除不改變限流結果
type IPRateLimiter struct {
	limiters sync.Map
	rate     rate.Limit
	burst    int
	window   time.Duration
	now      func() time.Time

	mu        sync.Mutex
	lastPrune time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64
}

// NewIPRateLimiter 每個 IP 在 window 內最多 requests 次，令牌平均補充
func NewIPRateLimiter(requests int, window time.Duration) *IPRateLimiter {
	return newIPRateLimiter(requests, window, time.Now)
}

func newIPRateLimiter(requests int, window time.Duration, now func() time.Time) *IPRateLimiter {
	return &IPRateLimiter{
		rate:      rate.Limit(float64(requests) / window.Seconds()),
		burst:     requests,
		window:    window,
		now:       now,
		lastPrune: now(),
	}
}

func (l *IPRateLimiter) getLimiter(ip string, now time.Time) *rate.Limiter {
	v, ok := l.limiters.Load(ip)
	if !ok {
		v, _ = l.limiters.LoadOrStore(ip, &visitor{limiter: rate.NewLimiter(l.rate, l.burst)})
	}
	vis := v.(*visitor)
	vis.lastSeen.Store(now.UnixNano())
	return vis.limiter
}

// Allow 檢查該 IP 是否還有令牌，每個 window 順帶清理一次閒置 IP
func (l *IPRateLimiter) Allow(ip string) bool {
	now := l.now()
	l.maybePrune(now)
	return l.getLimiter(ip, now).AllowN(now, 1)
}

func (l *IPRateLimiter) maybePrune(now time.Time) {
	l.mu.Lock()
	if now.Sub(l.lastPrune) < l.window {
		l.mu.Unlock()
		return
	}
	l.lastPrune = now
	l.mu.Unlock()

	if removed := l.Prune(now); removed > 0 {
		common.LogDebug("Pruned idle rate limiters", zap.Int("removed", removed))
	}
}

// Prune 移除閒置至少一個 window 的 IP，回傳移除數量
func (l *IPRateLimiter) Prune(now time.Time) int {
	removed := 0
	l.limiters.Range(func(key, value interface{}) bool {
		last := time.Unix(0, value.(*visitor).lastSeen.Load())
		if now.Sub(last) >= l.window {
			l.limiters.Delete(key)
			removed++
		}
		return true
	})
	return removed
}

// Len 目前追蹤中的 IP 數量
func (l *IPRateLimiter) Len() int {
	n := 0
	l.limiters.Range(func(_, _ interface{}) bool {
		n++
		return true
	})
	return n
}

// RateLimit 限流中間件
func (l *IPRateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !l.Allow(ip) {
			common.LogInfo("Rate limit exceeded",
				zap.String("ip", ip),
				zap.String("path", c.Request.URL.Path),
			)

			c.Header("Retry-After", fmt.Sprintf("%d", int(l.window.Seconds())))
			common.WriteError(c, common.ErrTooManyRequests)
			return
		}

		c.Next()
	}
}

// RateLimit 以預設的 IP 限流器建立中間件
func RateLimit(requests int, window time.Duration) gin.HandlerFunc {
	return NewIPRateLimiter(requests, window).RateLimit()
}
