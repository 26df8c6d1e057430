package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/arbbot/chain"
	"github.com/michaelpento.lv/arbbot/config"
	"github.com/michaelpento.lv/arbbot/strategy"
	"github.com/michaelpento.lv/arbbot/utils"
	"github.com/michaelpento.lv/arbbot/utils/metrics"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one discovery pass and print ranked opportunities",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := utils.GetLogger()
		ctx := cmd.Context()

		cfg, err := config.LoadConfig(cfgFile)
		if err != nil {
			return err
		}

		client, err := chain.Dial(cfg.RPCEndpoint, cfg.RPCRateLimit, cfg.RPCRateBurst, log)
		if err != nil {
			return err
		}
		defer client.Close()

		metrics.Initialize(log)
		engine, err := strategy.NewEngine(cfg, client, metrics.NewStrategyMetrics("arbbot"), log)
		if err != nil {
			return err
		}

		if err := engine.Bootstrap(ctx); err != nil {
			return err
		}

		opps, err := engine.FindOpportunities(ctx)
		if err != nil {
			return err
		}

		log.Info("discovery pass complete", zap.Int("opportunities", len(opps)))
		for _, opp := range opps {
			log.Info("opportunity",
				zap.String("id", opp.ID),
				zap.Strings("dexes", opp.DexNames),
				zap.Int("hops", opp.PathLength),
				zap.String("amount_in", opp.AmountIn.String()),
				zap.String("expect_profit", opp.ExpectProfit.String()),
				zap.Float64("profit_rate", opp.ProfitRate),
				zap.Float64("confidence", opp.Confidence),
				zap.Time("valid_until", opp.ValidUntil),
			)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
}
