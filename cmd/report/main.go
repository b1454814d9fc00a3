package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/churnlens/internal/config"
	"github.com/okian/churnlens/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	cfg     *config.Config
	rootCmd = &cobra.Command{
		Use:   "report",
		Short: "Portfolio revenue-risk reports",
		Long: `report evaluates an accounts file with the same rules as the churnlens service.

It renders a markdown report offline, or checks that a running service
publishes the same portfolio as a local evaluation of the file.

Configuration follows the service: CHURNLENS_* variables, an optional .env file
and the YAML file named in CHURNLENS_CONFIG.`,
		SilenceUsage:      true,
		PersistentPreRunE: initConfig,
	}
)

func init() {
	rootCmd.PersistentFlags().String("data", "", "accounts file (default: data_path from configuration)")
	rootCmd.PersistentFlags().Int("top", 0, "number of at-risk accounts to list and compare (default 15)")
	rootCmd.PersistentFlags().Bool("lenient", false, "skip malformed rows instead of failing")

	rootCmd.AddCommand(fileCmd())
	rootCmd.AddCommand(verifyCmd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig(_ *cobra.Command, _ []string) error {
	loaded, err := config.Load()
	if err != nil {
		return err
	}
	if err := logger.Init(logger.WithFormat(loaded.LogFormat), logger.WithOutput(os.Stderr)); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if err := logger.SetLevelString(loaded.LogLevel); err != nil {
		return err
	}
	cfg = loaded
	return nil
}
