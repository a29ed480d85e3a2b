package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/freema/docsgate/internal/redisclient"
)

// RateLimiter implements Redis-based sliding window rate limiting.
type RateLimiter struct {
	redis     *redisclient.Client
	limit     int
	window    time.Duration
	byAddress bool
}

// NewRateLimiter creates a rate limiter allowing limit requests per window.
// A limit below one is raised to one.
func NewRateLimiter(rdb *redisclient.Client, limit int, window time.Duration) *RateLimiter {
	if limit < 1 {
		limit = 1
	}
	return &RateLimiter{
		redis:  rdb,
		limit:  limit,
		window: window,
	}
}

// PerAddress keys the limit on the client address alone. Use it when every
// caller presents the same gateway token.
func (rl *RateLimiter) PerAddress() *RateLimiter {
	rl.byAddress = true
	return rl
}

// Middleware enforces the limit per Bearer token, falling back to the
// client IP for anonymous callers.
func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, retryAfter := rl.allow(r, rl.clientKey(r))
			if !allowed {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"error":   "rate_limit_exceeded",
					"message": fmt.Sprintf("rate limit exceeded, retry after %ds", int(retryAfter.Seconds())),
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RateLimiter) allow(r *http.Request, clientID string) (bool, time.Duration) {
	ctx := r.Context()
	key := rl.redis.Key("ratelimit", hashToken(clientID))

	now := time.Now().UnixMilli()
	windowStart := now - rl.window.Milliseconds()
	// Requests in the same millisecond must not collapse into one member.
	member := strconv.FormatInt(now, 10) + ":" + uuid.NewString()

	pipe := rl.redis.Unwrap().Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart, 10))
	countCmd := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now), Member: member})
	pipe.Expire(ctx, key, rl.window)
	if _, err := pipe.Exec(ctx); err != nil {
		// Fail open.
		slog.Warn("rate limit check failed", "error", err)
		return true, 0
	}

	if countCmd.Val() >= int64(rl.limit) {
		return false, rl.window / time.Duration(rl.limit)
	}
	return true, 0
}

func (rl *RateLimiter) clientKey(r *http.Request) string {
	if rl.byAddress {
		return addressID(r)
	}
	return clientID(r)
}

func clientID(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if token := strings.TrimPrefix(auth, "Bearer "); token != auth && token != "" {
		return "token:" + token
	}
	return addressID(r)
}

func addressID(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:8])
}
