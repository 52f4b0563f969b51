package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func sweepCmd() *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run the timeout and escalation monitor",
		Long: `Run the timeout and escalation monitor.

Examples:
  adjudicator sweep --once
  adjudicator sweep            # run on the configured schedule until interrupted`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			cfg, log, flush, err := loadConfig()
			if err != nil {
				return err
			}
			defer flush()

			a, err := buildApp(ctx, cfg, log)
			if err != nil {
				return fmt.Errorf("wire service: %w", err)
			}
			defer a.Close()
			m := newMonitor(a)

			if once {
				report, err := m.SweepOnce(ctx)
				if err != nil {
					return err
				}
				if a.relay != nil {
					a.relay.Flush(ctx)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "scanned %d requests, %d failed\n", report.Scanned, report.Failed)
				for action, n := range report.Actions {
					fmt.Fprintf(cmd.OutOrStdout(), "  %-24s %d\n", action, n)
				}
				return nil
			}

			if err := m.Start(cfg.Monitor.Schedule); err != nil {
				return err
			}
			defer m.Stop()
			if a.relay != nil {
				return ignoreCanceled(a.relay.Run(ctx))
			}
			<-ctx.Done()
			return nil
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "run a single sweep and exit")
	return cmd
}
