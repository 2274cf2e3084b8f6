package main

import (
	"os"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"mediconnect/internal/container"
	"mediconnect/internal/scheduler"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var flagAt string

var checkCmd = &cobra.Command{
	Use:       "check {expiry|dosage|refill}",
	Short:     "Run one check now and print its report",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"expiry", "dosage", "refill"},
	RunE:      runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&flagAt, "at", "", "evaluate as of this RFC 3339 instant instead of now")
}

func runCheck(cmd *cobra.Command, args []string) error {
	now := time.Now()
	if flagAt != "" {
		at, err := time.Parse(time.RFC3339, flagAt)
		if err != nil {
			return err
		}
		now = at
	}

	c, err := container.New(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	var runner scheduler.Runner
	switch args[0] {
	case "expiry":
		runner = c.ExpiryService
	case "dosage":
		runner = c.ReminderService
	case "refill":
		runner = c.RefillService
	}

	report, err := runner.Run(cmd.Context(), now)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
