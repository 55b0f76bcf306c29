package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/noah-isme/pos-gateway/internal/common"
)

// New builds a Redis-backed limiter allowing max requests per minute.
func New(rdb *redis.Client, prefix string, perMinute int) (*limiter.Limiter, error) {
	store, err := limiterredis.NewStoreWithOptions(rdb, limiter.StoreOptions{
		Prefix: prefix,
	})
	if err != nil {
		return nil, err
	}
	rate := limiter.Rate{Period: time.Minute, Limit: int64(perMinute)}
	return limiter.New(store, rate), nil
}

// Middleware enforces a limiter keyed by client IP. Limiter backend errors
// fail open so a Redis hiccup does not take the endpoint down with it.
type Middleware struct {
	Limiter *limiter.Limiter
	OnError func(error)
}

// Handle wraps the next handler with the rate limit check.
func (m Middleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.Limiter == nil {
			next.ServeHTTP(w, r)
			return
		}
		lctx, err := m.Limiter.Get(r.Context(), common.ClientIP(r))
		if err != nil {
			if m.OnError != nil {
				m.OnError(err)
			}
			next.ServeHTTP(w, r)
			return
		}

		headers := w.Header()
		headers.Set("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
		headers.Set("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))

		if lctx.Reached {
			retryAfter := lctx.Reset - time.Now().Unix()
			if retryAfter < 0 {
				retryAfter = 0
			}
			headers.Set("Retry-After", strconv.FormatInt(retryAfter, 10))
			common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
