package middleware

import (
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

const (
	limiterMemory = "memory"
	limiterRedis  = "redis"
)

// RateLimitMetrics counts limiter decisions by limiter type. A nil value records nothing.
type RateLimitMetrics struct {
	allowed  *prometheus.CounterVec
	rejected *prometheus.CounterVec
}

func NewRateLimitMetrics(reg prometheus.Registerer) (*RateLimitMetrics, error) {
	m := &RateLimitMetrics{
		allowed: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: "qrverify", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
			[]string{"limiter"},
		),
		rejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: "qrverify", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
			[]string{"limiter"},
		),
	}
	for _, c := range []prometheus.Collector{m.allowed, m.rejected} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *RateLimitMetrics) allow(limiter string) {
	if m != nil {
		m.allowed.WithLabelValues(limiter).Inc()
	}
}

func (m *RateLimitMetrics) reject(limiter string) {
	if m != nil {
		m.rejected.WithLabelValues(limiter).Inc()
	}
}

func rateLimitKey(c *fiber.Ctx) string {
	ip := c.IP()
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}

func tooManyRequests(c *fiber.Ctx, retryAfter int) error {
	c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))
	return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
		"success": false,
		"message": "Too many requests",
	})
}

const (
	limiterIdleTTL = 10 * time.Minute
	limiterMaxTTL  = 24 * time.Hour
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// memoryLimiter holds one token bucket per client key. A bucket idle for
// longer than ttl has refilled completely, so evicting it loses no state.
type memoryLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	ttl       time.Duration
	lastSweep time.Time
	entries   map[string]*limiterEntry
	now       func() time.Time
}

func newMemoryLimiter(rps float64, burst int) *memoryLimiter {
	ttl := limiterIdleTTL
	if rps > 0 {
		// never shorter than the time a drained bucket needs to refill
		refill := math.Min(float64(burst)/rps, limiterMaxTTL.Seconds())
		if d := time.Duration(refill * float64(time.Second)); d > ttl {
			ttl = d
		}
	}
	return &memoryLimiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		ttl:     ttl,
		entries: make(map[string]*limiterEntry),
		now:     time.Now,
	}
}

func (m *memoryLimiter) allow(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if now.Sub(m.lastSweep) >= m.ttl {
		m.sweep(now)
	}
	e, ok := m.entries[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(m.limit, m.burst)}
		m.entries[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// sweep drops idle buckets. Callers hold mu.
func (m *memoryLimiter) sweep(now time.Time) {
	for key, e := range m.entries {
		if now.Sub(e.lastSeen) > m.ttl {
			delete(m.entries, key)
		}
	}
	m.lastSweep = now
}

func (m *memoryLimiter) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// MemoryRateLimit enforces a per-client token bucket held in process memory.
// rps = allowed events per second, burst = maximum tokens in bucket.
// Buckets of clients that went quiet are swept lazily on later requests.
func MemoryRateLimit(rps float64, burst int, metrics *RateLimitMetrics) fiber.Handler {
	return memoryRateLimit(newMemoryLimiter(rps, burst), metrics)
}

func memoryRateLimit(l *memoryLimiter, metrics *RateLimitMetrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !l.allow(rateLimitKey(c)) {
			metrics.reject(limiterMemory)
			return tooManyRequests(c, 1)
		}
		metrics.allow(limiterMemory)
		return c.Next()
	}
}

// RedisRateLimit is a fixed-window limiter shared by every replica.
// It INCRs a per-window key and compares against floor(rps*window)+burst.
// A nil client falls back to MemoryRateLimit.
func RedisRateLimit(client *redis.Client, rps float64, burst int, window time.Duration, metrics *RateLimitMetrics) fiber.Handler {
	if client == nil {
		return MemoryRateLimit(rps, burst, metrics)
	}
	windowSeconds := int(window.Seconds())
	if windowSeconds <= 0 {
		windowSeconds = 1
	}
	allowedPerWindow := int(rps*float64(windowSeconds)) + burst

	return func(c *fiber.Ctx) error {
		bucket := time.Now().Unix() / int64(windowSeconds)
		redisKey := fmt.Sprintf("rl:%s:%d", rateLimitKey(c), bucket)
		ctx := c.UserContext()

		cnt, err := client.Incr(ctx, redisKey).Result()
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "Rate limit check failed",
			})
		}
		if cnt == 1 {
			_ = client.Expire(ctx, redisKey, time.Duration(windowSeconds+1)*time.Second).Err()
		}
		if int(cnt) > allowedPerWindow {
			metrics.reject(limiterRedis)
			return tooManyRequests(c, windowSeconds)
		}
		metrics.allow(limiterRedis)
		return c.Next()
	}
}
