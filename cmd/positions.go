package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkarpov/opinion-mm/internal/strategy"
	"github.com/mkarpov/opinion-mm/pkg/config"
)

//nolint:gochecknoglobals // Cobra boilerplate
var positionsCmd = &cobra.Command{
	Use:   "positions",
	Short: "List sellable positions",
	Long: `List the account's positions, filtered the way the sell
strategy filters them: available shares above dust with a last-price
value of at least one USDT.

Examples:
  # List all sellable positions
  opinion-mm positions

  # Only one market
  opinion-mm positions --topic 4120`,
	Args: cobra.NoArgs,
	RunE: runPositions,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(positionsCmd)
	positionsCmd.Flags().Int64("topic", 0, "Restrict to one topic id (0 = all)")
}

func runPositions(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	gateway, err := newGateway(cfg, logger)
	if err != nil {
		return err
	}

	topicID, _ := cmd.Flags().GetInt64("topic")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	positions, err := gateway.ListPositions(ctx, topicID)
	if err != nil {
		return fmt.Errorf("fetch positions: %w", err)
	}

	targets := strategy.SellablePositions(positions)
	if len(targets) == 0 {
		fmt.Println("No sellable positions found.")
		return nil
	}

	fmt.Printf("%-10s %-5s %-30s %-12s %-12s\n", "TOPIC", "SIDE", "MARKET", "TOKEN", "SHARES")
	for _, target := range targets {
		fmt.Printf("%-10d %-5s %-30s %-12s %-12s\n",
			target.TopicID, target.SideLabel, truncate(target.Title, 30),
			target.TokenID, target.Shares.String())
	}
	fmt.Printf("\n%d sellable position(s)\n", len(targets))
	return nil
}
