package service

import (
	"context"
	"sync/atomic"
	"time"

	"qrious/internal/database/client"
)

const dependencyCheckTimeout = 2 * time.Second

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthService struct {
	live  atomic.Bool
	ready atomic.Bool
	deps  map[string]Pinger
}

func NewHealthService(mongoClient *client.MongoClient, redisClient *client.RedisClient) *HealthService {
	deps := map[string]Pinger{}
	if mongoClient != nil {
		deps["mongodb"] = mongoClient
	}
	if redisClient != nil {
		deps["redis"] = redisClient
	}
	return NewHealthServiceWith(deps)
}

func NewHealthServiceWith(deps map[string]Pinger) *HealthService {
	s := &HealthService{deps: deps}
	s.live.Store(true)
	s.ready.Store(false) // 啟動完成後再打開
	return s
}

func (s *HealthService) SetReady(v bool) {
	s.ready.Store(v)
}

func (s *HealthService) IsLive() bool {
	return s.live.Load()
}

func (s *HealthService) IsReady() bool {
	return s.ready.Load()
}

// CheckDependencies 回傳每個依賴的狀態，全部正常時 ok 為 true
func (s *HealthService) CheckDependencies(ctx context.Context) (map[string]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, dependencyCheckTimeout)
	defer cancel()

	result := make(map[string]string, len(s.deps))
	ok := true
	for name, dep := range s.deps {
		if dep == nil {
			continue
		}
		if err := dep.Ping(ctx); err != nil {
			result[name] = err.Error()
			ok = false
			continue
		}
		result[name] = "ok"
	}
	return result, ok
}
