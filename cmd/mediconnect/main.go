package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"mediconnect/internal/config"
	"mediconnect/internal/logger"
)

var (
	cfg config.Config
	log *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:           "mediconnect",
	Short:         "Medicine expiry, dosage and refill reminder service",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		logger.Init(cfg.LogLevel)
		log = logger.Get()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, checkCmd, migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger.Get().WithError(err).Error("Command failed")
		os.Exit(1)
	}
}
