package middleware

import (
	"context"
	"errors"
	"strconv"

	"qrious/config"
	"qrious/internal/core"
	redisRepo "qrious/internal/database/redis/repository"
	cErr "qrious/internal/pkg/error"
	"qrious/internal/pkg/response"
	"qrious/internal/telemetry"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	ThrottleGeneral = "general"
	ThrottleAuth    = "auth"
	ThrottleAPIKey  = "apikey"
)

var defaultThrottleRules = map[string]config.ThrottleRule{
	ThrottleGeneral: {Limit: 1000, WindowSec: 900},
	ThrottleAuth:    {Limit: 5, WindowSec: 900},
	ThrottleAPIKey:  {Limit: 10, WindowSec: 3600},
}

// ThrottleCounter 固定視窗計數
type ThrottleCounter interface {
	Consume(ctx context.Context, bucket string, subject string, windowSeconds int64, limitCount int) (int, int64, error)
}

// Throttle 以來源 IP 做固定視窗限流，與產生配額無關
type Throttle struct {
	logger  *zap.Logger
	trace   *telemetry.Trace
	metric  *telemetry.Metric
	rules   map[string]config.ThrottleRule
	counter ThrottleCounter
}

func NewThrottle(
	logger *zap.Logger,
	trace *telemetry.Trace,
	metric *telemetry.Metric,
	conf *config.Configuration,
	throttleRepository *redisRepo.ThrottleRepository,
) *Throttle {
	return newThrottle(logger, trace, metric, conf, throttleRepository)
}

func newThrottle(
	logger *zap.Logger,
	trace *telemetry.Trace,
	metric *telemetry.Metric,
	conf *config.Configuration,
	counter ThrottleCounter,
) *Throttle {
	rules := make(map[string]config.ThrottleRule, len(defaultThrottleRules))
	for bucket, rule := range defaultThrottleRules {
		rules[bucket] = rule
	}
	merge := func(bucket string, rule config.ThrottleRule) {
		merged := rules[bucket]
		if rule.Limit > 0 {
			merged.Limit = rule.Limit
		}
		if rule.WindowSec > 0 {
			merged.WindowSec = rule.WindowSec
		}
		rules[bucket] = merged
	}
	merge(ThrottleGeneral, conf.Throttle.General)
	merge(ThrottleAuth, conf.Throttle.Auth)
	merge(ThrottleAPIKey, conf.Throttle.APIKey)

	return &Throttle{
		logger:  logger,
		trace:   trace,
		metric:  metric,
		rules:   rules,
		counter: counter,
	}
}

// Guard Redis 出錯時放行
func (m *Throttle) Guard(bucket string) gin.HandlerFunc {
	rule, ok := m.rules[bucket]
	if !ok {
		rule = defaultThrottleRules[ThrottleGeneral]
	}
	return func(c *gin.Context) {
		ctx, _, end := m.trace.WithSpan(c.Request.Context(), string(core.SpanThrottleMiddleware))
		subject := c.ClientIP()

		remaining, ttlSec, err := m.counter.Consume(ctx, bucket, subject, rule.WindowSec, rule.Limit)
		if err != nil && !errors.Is(err, redisRepo.ErrThrottled) {
			m.logger.Warn("[Throttle] counter unavailable, allowing request",
				zap.String("bucket", bucket),
				zap.Error(err),
			)
			end(nil)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(rule.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if ttlSec > 0 {
			c.Header("X-RateLimit-Reset", strconv.FormatInt(ttlSec, 10))
		}

		if errors.Is(err, redisRepo.ErrThrottled) {
			c.Header("Retry-After", strconv.FormatInt(ttlSec, 10))
			m.metric.IncThrottled(bucket)
			blocked := cErr.RateLimitExceeded("Too many requests, please try again later")
			response.AbortWithError(c, blocked)
			end(nil)
			return
		}
		end(nil)
		c.Next()
	}
}
