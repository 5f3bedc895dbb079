package command

import (
	commandHandler "qrious/internal/command/handler"
	"qrious/internal/service"

	"github.com/google/wire"
	"github.com/spf13/cobra"
)

var ProviderSet = wire.NewSet(
	NewCommand,
	commandHandler.NewSweepKeysHandler,
	wire.Bind(new(commandHandler.KeySweeper), new(*service.APIKeyService)),
)

type Command struct {
	sweepKeysHandler *commandHandler.SweepKeysHandler
}

// NewCommand .
func NewCommand(
	sweepKeysHandler *commandHandler.SweepKeysHandler,
) *Command {
	return &Command{
		sweepKeysHandler: sweepKeysHandler,
	}
}

func Register(rootCmd *cobra.Command, newCmd func() (*Command, func(), error)) {
	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "sweep-keys",
			Short: "mark every active API key past its expiry as expired",
			RunE: func(cmd *cobra.Command, args []string) error {
				command, cleanup, err := newCmd()
				if err != nil {
					return err
				}
				defer cleanup()

				return command.sweepKeysHandler.Run(cmd, args)
			},
		},
	)
}
