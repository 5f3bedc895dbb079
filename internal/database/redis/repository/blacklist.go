package repository

import (
	"context"
	"fmt"
	"time"

	"qrious/internal/core"
	client "qrious/internal/database/client"
	"qrious/internal/telemetry"

	"github.com/redis/go-redis/v9"
)

// TokenBlacklistRepository 記錄已登出 token 的 jti，TTL 對齊 token 剩餘壽命
type TokenBlacklistRepository struct {
	trace  *telemetry.Trace
	client *redis.Client
	prefix string
}

func NewTokenBlacklistRepository(trace *telemetry.Trace, client *client.RedisClient) *TokenBlacklistRepository {
	return &TokenBlacklistRepository{trace: trace, client: client.Client(), prefix: client.Prefix()}
}

func (repository *TokenBlacklistRepository) Add(
	contextValue context.Context,
	tokenID string,
	ttl time.Duration,
) (returnedError error) {

	contextValue, _, endSpan := repository.trace.WithSpan(contextValue)
	defer func() { endSpan(returnedError) }()

	if ttl <= 0 {
		return nil
	}
	returnedError = repository.client.Set(contextValue, repository.buildKey(tokenID), 1, ttl).Err()
	return returnedError
}

func (repository *TokenBlacklistRepository) Exists(
	contextValue context.Context,
	tokenID string,
) (_ bool, returnedError error) {

	contextValue, _, endSpan := repository.trace.WithSpan(contextValue)
	defer func() { endSpan(returnedError) }()

	count, existsError := repository.client.Exists(contextValue, repository.buildKey(tokenID)).Result()
	if existsError != nil {
		returnedError = existsError
		return false, returnedError
	}
	return count > 0, nil
}

func (repository *TokenBlacklistRepository) buildKey(tokenID string) string {
	return fmt.Sprintf("%s:%s:%s", repository.prefix, core.RedisKeyBlacklist, tokenID)
}
