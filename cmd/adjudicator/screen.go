package main

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"adjudicator/internal/platform/metrics"
	platformredis "adjudicator/internal/platform/redis"
	"adjudicator/internal/screening"
	id "adjudicator/pkg/domain"
)

func screenCmd() *cobra.Command {
	var (
		amount string
		payout string
		source string
	)
	cmd := &cobra.Command{
		Use:   "screen <stakeholder-id>",
		Short: "Screen a stakeholder against the registry and sanctions list",
		Long: `Screen a stakeholder against the configured registry and sanctions list
and print the verdict. Intended for compliance operators; the output includes
confidential indicators.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			stakeholderID, err := id.ParseStakeholderID(args[0])
			if err != nil {
				return err
			}
			amt, err := decimal.NewFromString(amount)
			if err != nil {
				return fmt.Errorf("--amount: %w", err)
			}
			in := screening.Input{StakeholderID: stakeholderID, Amount: amt}
			if payout != "" {
				if in.PayoutAccount, err = id.ParseAccountID(payout); err != nil {
					return err
				}
			}
			if source != "" {
				if in.SourceAccount, err = id.ParseAccountID(source); err != nil {
					return err
				}
			}

			cfg, log, flush, err := loadConfig()
			if err != nil {
				return err
			}
			defer flush()

			a := &app{cfg: cfg, logger: log, metrics: metrics.New()}
			redisClient, err := platformredis.New(ctx, cfg.Redis)
			if err != nil {
				return err
			}
			if redisClient != nil {
				defer redisClient.Close()
			}
			if err := buildScreener(ctx, a, redisClient); err != nil {
				return err
			}

			verdict, err := a.screener.ScreenRequest(ctx, in)
			if err != nil {
				return fmt.Errorf("screen: %w", err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(verdict)
		},
	}
	cmd.Flags().StringVar(&amount, "amount", "0", "refund amount to screen for")
	cmd.Flags().StringVar(&payout, "payout-account", "", "intended payout account")
	cmd.Flags().StringVar(&source, "source-account", "", "account the original payment came from")
	return cmd
}
