package cron

import (
	"context"
	"time"

	"qrious/internal/service"

	"github.com/google/wire"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var ProviderSet = wire.NewSet(NewCron)

const (
	// 每 10 分鐘的第 0 秒
	sweepExpiredKeysSpec = "0 */10 * * * *"
	sweepTimeout         = 30 * time.Second
)

type Cron struct {
	logger        *zap.Logger
	server        *cron.Cron
	apiKeyService *service.APIKeyService
}

// NewCron .
func NewCron(logger *zap.Logger, apiKeyService *service.APIKeyService) *Cron {
	server := cron.New(
		cron.WithSeconds(),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	return &Cron{
		logger:        logger,
		server:        server,
		apiKeyService: apiKeyService,
	}
}

func (c *Cron) Run() error {
	if _, err := c.server.AddFunc(sweepExpiredKeysSpec, c.sweepExpiredKeys); err != nil {
		return err
	}

	c.server.Start()
	return nil
}

func (c *Cron) Stop(ctx context.Context) error {
	// 等待執行中的 job 結束或 ctx 逾時
	select {
	case <-c.server.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Cron) sweepExpiredKeys() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	affected, err := c.apiKeyService.SweepExpired(ctx)
	if err != nil {
		c.logger.Error("[Cron] sweep expired api keys failed", zap.Error(err))
		return
	}
	c.logger.Debug("[Cron] sweep expired api keys done", zap.Int64("affected", affected))
}
