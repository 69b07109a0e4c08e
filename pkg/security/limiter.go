package security

import (
	"context"
	"course_studio_backend/internal/util"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// visitor 包装限流器和最后活跃时间，用于定期清理
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter 按 key（IP 或用户）限流：window 内最多 maxRequests 次，自动清理过期条目
type Limiter struct {
	mu          sync.Mutex
	store       map[string]*visitor
	limit       rate.Limit
	burst       int
	window      time.Duration
	maxRequests int
	now         func() time.Time
}

func NewLimiter(maxRequests int, window time.Duration) *Limiter {
	l := &Limiter{
		store: make(map[string]*visitor),
		now:   time.Now,
	}
	l.SetRate(maxRequests, window)
	return l
}

// SetRate 配置热更新时调整额度，已有条目一并调整
func (l *Limiter) SetRate(maxRequests int, window time.Duration) {
	if maxRequests <= 0 {
		maxRequests = 1
	}
	if window <= 0 {
		window = time.Minute
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.maxRequests = maxRequests
	l.window = window
	l.limit = rate.Every(window / time.Duration(maxRequests))
	l.burst = maxRequests
	now := l.now()
	for _, v := range l.store {
		v.limiter.SetLimitAt(now, l.limit)
		v.limiter.SetBurstAt(now, l.burst)
	}
}

func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	now := l.now()
	v, exists := l.store[key]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.store[key] = v
	}
	v.lastSeen = now
	l.mu.Unlock()

	return v.limiter.AllowN(now, 1)
}

// Cleanup 删除长时间未访问的条目
func (l *Limiter) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()
	expiry := l.window * 3
	if expiry < time.Minute {
		expiry = time.Minute
	}
	now := l.now()
	for key, v := range l.store {
		if now.Sub(v.lastSeen) > expiry {
			delete(l.store, key)
		}
	}
}

// Run 每分钟清理一次，直到 ctx 结束
func (l *Limiter) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Cleanup()
		}
	}
}

// KeyFunc 从请求中取限流 key，返回空串时不限流
type KeyFunc func(c *gin.Context) string

func ByClientIP(c *gin.Context) string {
	return c.ClientIP()
}

// ByUser 已认证用户按用户 ID，未认证退化为 IP
func ByUser(c *gin.Context) string {
	if claims := util.GetUserFromContext(c); claims != nil && claims.UserID != "" {
		return "user:" + claims.UserID
	}
	return "ip:" + c.ClientIP()
}

func (l *Limiter) Middleware(key KeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		k := key(c)
		if k != "" && !l.Allow(k) {
			util.TooManyRequests(c)
			c.Abort()
			return
		}
		c.Next()
	}
}
