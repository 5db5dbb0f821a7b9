package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// IPRateLimiter manages rate limiters per IP address
type IPRateLimiter struct {
	limiters map[string]*rateLimiterEntry
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
	duration time.Duration
}

// rateLimiterEntry holds a rate limiter and its last access time for cleanup
type rateLimiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// NewIPRateLimiter creates a new IP-based rate limiter allowing
// requestsPerDuration requests within the given window
func NewIPRateLimiter(requestsPerDuration int, duration time.Duration) *IPRateLimiter {
	limiter := &IPRateLimiter{
		limiters: make(map[string]*rateLimiterEntry),
		rate:     rate.Limit(float64(requestsPerDuration) / duration.Seconds()),
		burst:    requestsPerDuration,
		duration: duration,
	}

	go limiter.cleanupLoop()

	return limiter
}

// getLimiter retrieves or creates a rate limiter for the given IP
func (rl *IPRateLimiter) getLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, exists := rl.limiters[ip]
	if !exists {
		limiter := rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[ip] = &rateLimiterEntry{
			limiter:    limiter,
			lastAccess: time.Now(),
		}
		return limiter
	}

	entry.lastAccess = time.Now()
	return entry.limiter
}

// cleanupLoop removes rate limiters that haven't been accessed recently
func (rl *IPRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.duration)
	defer ticker.Stop()

	for range ticker.C {
		rl.cleanup()
	}
}

// cleanup removes stale rate limiters
func (rl *IPRateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for ip, entry := range rl.limiters {
		if now.Sub(entry.lastAccess) > rl.duration*2 {
			delete(rl.limiters, ip)
		}
	}
}

// Middleware returns an Echo middleware function that enforces rate limiting
func (rl *IPRateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := getClientIP(c)
			limiter := rl.getLimiter(ip)

			if !limiter.Allow() {
				reservation := limiter.Reserve()
				delay := reservation.Delay()
				reservation.Cancel()

				c.Response().Header().Set("Retry-After", delay.String())

				return c.JSON(http.StatusTooManyRequests, ErrorResponse{
					Error:   "Rate limit exceeded",
					Details: "Too many requests. Please try again later.",
				})
			}

			return next(c)
		}
	}
}

// RateLimiterConfig holds different rate limiters for different endpoint types
type RateLimiterConfig struct {
	Auth               *IPRateLimiter
	SurveyMutation     *IPRateLimiter
	ResponseSubmission *IPRateLimiter
	GeneralAPI         *IPRateLimiter
}

// NewRateLimiterConfig creates rate limiters with the specified limits
func NewRateLimiterConfig() *RateLimiterConfig {
	return &RateLimiterConfig{
		Auth:               NewIPRateLimiter(10, time.Minute), // login/register attempts
		SurveyMutation:     NewIPRateLimiter(10, time.Minute), // create/update/delete/transition
		ResponseSubmission: NewIPRateLimiter(20, time.Minute),
		GeneralAPI:         NewIPRateLimiter(60, time.Minute),
	}
}
