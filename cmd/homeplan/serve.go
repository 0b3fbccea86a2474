package main

import (
	"github.com/spf13/cobra"

	appLog "homeplan/internal/log"
	"homeplan/internal/scheduler"
	"homeplan/internal/web"
)

func init() {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the scheduled presence refresh",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := loadApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.Config.RefreshCron != "" {
				sched, err := scheduler.New(a.Presence, scheduler.Options{
					Spec:  a.Config.RefreshCron,
					Weeks: a.Config.LookAheadWeeks,
				})
				if err != nil {
					return err
				}
				sched.Start(ctx)
			}

			appLog.Info("homeplan serving")
			if err := web.Serve(ctx, a); err != nil {
				appLog.Error("HTTP server failed", err)
				return err
			}
			appLog.Info("homeplan exiting")
			return nil
		},
	}
	serveCmd.Flags().StringVarP(&listenFlag, "listen", "l", "", "HTTP listen address (overrides config if set)")
	rootCmd.AddCommand(serveCmd)
}
