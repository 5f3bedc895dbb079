package database

import (
	client "qrious/internal/database/client"
	fluentdRepo "qrious/internal/database/fluentd/repository"
	mongoRepo "qrious/internal/database/mongodb/repository"
	redisRepo "qrious/internal/database/redis/repository"

	"github.com/google/wire"
)

// ProviderSet 定義所有 DB Client 的依賴
var ProviderSet = wire.NewSet(
	client.NewMongoClient,
	client.NewRedisClient,
	client.NewFluentdClient,
	mongoRepo.ProviderSet,
	redisRepo.ProviderSet,
	fluentdRepo.ProviderSet,
)
