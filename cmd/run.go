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

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Continuously scan for opportunities until interrupted",
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
		if err := engine.Start(); err != nil {
			return err
		}
		defer engine.Stop()

		go func() {
			for batch := range engine.Opportunities() {
				for _, opp := range batch {
					log.Info("opportunity",
						zap.String("id", opp.ID),
						zap.Strings("dexes", opp.DexNames),
						zap.String("expect_profit", opp.ExpectProfit.String()),
						zap.Float64("profit_rate", opp.ProfitRate),
						zap.Float64("confidence", opp.Confidence),
					)
				}
			}
		}()

		err = engine.Run(ctx)
		if err != nil && ctx.Err() != nil {
			// Interrupted; a clean shutdown, not a failure.
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
