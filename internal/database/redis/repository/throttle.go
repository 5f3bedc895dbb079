package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"qrious/internal/core"
	client "qrious/internal/database/client"
	"qrious/internal/telemetry"

	"github.com/redis/go-redis/v9"
)

type ThrottleRepository struct {
	trace  *telemetry.Trace
	client *redis.Client
	prefix string
}

func NewThrottleRepository(trace *telemetry.Trace, client *client.RedisClient) *ThrottleRepository {
	return &ThrottleRepository{trace: trace, client: client.Client(), prefix: client.Prefix()}
}

var ErrThrottled = errors.New("throttle limit exceeded")

// Consume 在固定視窗內消耗一次；第一次請求建立 key 並設定 TTL。
// 回傳：remaining（剩餘次數）、ttlSec（視窗剩餘秒數）、err（超限時為 ErrThrottled）
func (repository *ThrottleRepository) Consume(
	contextValue context.Context,
	bucket string,
	subject string,
	windowSeconds int64,
	limitCount int,
) (remainingCount int, timeToLiveSeconds int64, returnedError error) {

	contextValue, span, endSpan := repository.trace.WithSpan(contextValue)
	defer func() {
		if errors.Is(returnedError, ErrThrottled) {
			endSpan(nil)
			return
		}
		endSpan(returnedError)
	}()

	traceMetadata := core.TraceThrottleMeta{
		Bucket:    bucket,
		Subject:   subject,
		Limit:     limitCount,
		WindowSec: windowSeconds,
	}

	redisKey := repository.buildKey(bucket, subject)
	expirationDuration := time.Duration(windowSeconds) * time.Second

	// 嘗試初始化：SETNX key value EX expiration
	wasSet, setError := repository.client.SetNX(
		contextValue,
		redisKey,
		limitCount-1, // 本次消耗一次，所以初始值 = 總額-1
		expirationDuration,
	).Result()
	if setError != nil {
		returnedError = setError
		return 0, 0, returnedError
	}
	if wasSet {
		remainingCount = limitCount - 1
		if remainingCount < 0 {
			remainingCount = 0
			returnedError = ErrThrottled
		}
		timeToLiveSeconds = windowSeconds
		traceMetadata.Remaining, traceMetadata.TTL = remainingCount, timeToLiveSeconds
		traceMetadata.Blocked = returnedError != nil
		repository.trace.ApplyTraceAttributes(span, traceMetadata)
		return remainingCount, timeToLiveSeconds, returnedError
	}

	// Key 已存在 → DECR 扣一次並查 TTL
	pipeline := repository.client.TxPipeline()
	decrCommand := pipeline.Decr(contextValue, redisKey)
	ttlCommand := pipeline.TTL(contextValue, redisKey)
	if _, execError := pipeline.Exec(contextValue); execError != nil {
		returnedError = execError
		return 0, 0, returnedError
	}
	newValue := decrCommand.Val()
	ttlDuration := ttlCommand.Val()
	if ttlDuration > 0 {
		timeToLiveSeconds = int64(ttlDuration.Seconds())
	} else {
		// key 遺失 TTL（例如 SETNX 與 EXPIRE 之間被外部改寫），補回視窗避免永久封鎖
		_ = repository.client.Expire(contextValue, redisKey, expirationDuration).Err()
		timeToLiveSeconds = windowSeconds
	}

	if newValue < 0 {
		remainingCount = 0
		traceMetadata.Remaining, traceMetadata.TTL, traceMetadata.Blocked = remainingCount, timeToLiveSeconds, true
		repository.trace.ApplyTraceAttributes(span, traceMetadata)
		returnedError = ErrThrottled
		return remainingCount, timeToLiveSeconds, returnedError
	}

	remainingCount = int(newValue)
	traceMetadata.Remaining, traceMetadata.TTL = remainingCount, timeToLiveSeconds
	repository.trace.ApplyTraceAttributes(span, traceMetadata)
	return remainingCount, timeToLiveSeconds, nil
}

// Reset 清除某個來源在 bucket 的計數（管理用）
func (repository *ThrottleRepository) Reset(
	contextValue context.Context,
	bucket string,
	subject string,
) (returnedError error) {

	contextValue, _, endSpan := repository.trace.WithSpan(contextValue)
	defer func() { endSpan(returnedError) }()

	returnedError = repository.client.Del(contextValue, repository.buildKey(bucket, subject)).Err()
	return returnedError
}

// buildKey 建構限流用的 Redis key
func (repository *ThrottleRepository) buildKey(bucket string, subject string) string {
	return fmt.Sprintf("%s:%s:%s:%s", repository.prefix, core.RedisKeyThrottle, bucket, subject)
}
