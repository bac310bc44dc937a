package api

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	ginmiddleware "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/nekogravitycat/reservation-backend/internal/auth"
)

// ParseRate accepts formats like "10-2m", "30-1m", "5-1h" or "20-10s".
func ParseRate(rateStr string) (limiter.Rate, error) {
	limitStr, periodStr, ok := strings.Cut(strings.TrimSpace(rateStr), "-")
	if !ok {
		return limiter.Rate{}, fmt.Errorf("invalid rate format: %q", rateStr)
	}

	limit, err := strconv.ParseInt(limitStr, 10, 64)
	if err != nil || limit < 1 {
		return limiter.Rate{}, fmt.Errorf("invalid limit: %q", limitStr)
	}

	if len(periodStr) < 2 {
		return limiter.Rate{}, fmt.Errorf("invalid period: %q", periodStr)
	}
	n, err := strconv.Atoi(periodStr[:len(periodStr)-1])
	if err != nil || n < 1 {
		return limiter.Rate{}, fmt.Errorf("invalid period: %q", periodStr)
	}

	var unit time.Duration
	switch periodStr[len(periodStr)-1] {
	case 's':
		unit = time.Second
	case 'm':
		unit = time.Minute
	case 'h':
		unit = time.Hour
	default:
		return limiter.Rate{}, fmt.Errorf("unsupported period: %q", periodStr)
	}

	return limiter.Rate{Period: time.Duration(n) * unit, Limit: limit}, nil
}

// NewStore returns a redis-backed store when rdb is set, otherwise a process-local one.
func NewStore(rdb *redis.Client, routeID string, period time.Duration) (limiter.Store, error) {
	opts := limiter.StoreOptions{
		Prefix:          "rate_limiter:" + routeID,
		MaxRetry:        3,
		CleanUpInterval: period,
	}
	if rdb == nil {
		return memory.NewStoreWithOptions(opts), nil
	}

	store, err := redisstore.NewStoreWithOptions(rdb, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis store for route %s: %w", routeID, err)
	}
	return store, nil
}

// RateLimit throttles a route per authenticated user, falling back to the client IP.
// It MUST be used after auth.AuthRequired.
func RateLimit(store limiter.Store, rate limiter.Rate) gin.HandlerFunc {
	instance := limiter.New(store, rate)
	return ginmiddleware.NewMiddleware(instance, ginmiddleware.WithKeyGetter(func(c *gin.Context) string {
		if userID := auth.GetUserID(c); userID != "" {
			return "user:" + userID
		}
		return "ip:" + c.ClientIP()
	}))
}
