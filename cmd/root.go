package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/angeloszaimis/clientid-rotator/config"
	"github.com/angeloszaimis/clientid-rotator/pkg/logger"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "rotator",
		Short:         "SoundCloud client ID rotation",
		Long:          "rotator keeps a pool of SoundCloud client IDs, rotates between them and quarantines the ones the API rejects.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringP("config", "c", "", "path to config file")

	root.AddCommand(
		newServeCmd(),
		newResolveCmd(),
		newStatusCmd(),
	)

	return root
}

// loadConfig loads configuration and builds the logger it describes.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfgFile, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}

	log := logger.NewWithWriter(cmd.ErrOrStderr(), cfg.Logging.Level, true, cfg.Server.Environment)
	return cfg, log, nil
}
