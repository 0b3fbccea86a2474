package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"homeplan/internal/app"
	"homeplan/internal/config"
	appLog "homeplan/internal/log"
)

var (
	configPath string
	listenFlag string
	rootCmd    = &cobra.Command{
		Use:           "homeplan",
		Short:         "Presence-aware household meal planner",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func main() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "/etc/homeplan/config.yaml", "Path to config file")

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadApp reads the config, applies the log level and opens the app.
func loadApp(ctx context.Context) (*app.App, error) {
	conf, err := config.Load(configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", configPath)
		return nil, err
	}
	// CLI --listen overrides config file listen if provided.
	if listenFlag != "" {
		conf.Listen = listenFlag
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"data_dir", conf.DataDir,
		"look_ahead_weeks", conf.LookAheadWeeks,
		"refresh", conf.RefreshCron,
		"caldav", conf.CalDAV.Enabled(),
		"ics_count", len(conf.ICS),
		"household", len(conf.Household),
	)
	return app.New(ctx, conf)
}
