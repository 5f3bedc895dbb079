package command

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type KeySweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

type SweepKeysHandler struct {
	logger  *zap.Logger
	sweeper KeySweeper
}

func NewSweepKeysHandler(logger *zap.Logger, sweeper KeySweeper) *SweepKeysHandler {
	return &SweepKeysHandler{
		logger:  logger,
		sweeper: sweeper,
	}
}

func (handler *SweepKeysHandler) Run(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	affected, err := handler.sweeper.SweepExpired(ctx)
	if err != nil {
		handler.logger.Error("[Command] sweep-keys failed", zap.Error(err))
		return err
	}
	cmd.Printf("%d api key(s) marked as expired\n", affected)
	return nil
}
