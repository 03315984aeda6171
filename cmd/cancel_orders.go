package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mkarpov/opinion-mm/pkg/config"
)

//nolint:gochecknoglobals // Cobra boilerplate
var cancelOrdersCmd = &cobra.Command{
	Use:   "cancel-orders",
	Short: "Cancel open orders on the venue",
	Long: `Cancel open orders for the authenticated account, all of them
or a single market's.

Examples:
  # Show what would be cancelled
  opinion-mm cancel-orders --dry-run

  # Cancel everything
  opinion-mm cancel-orders

  # Cancel one market's orders
  opinion-mm cancel-orders --topic 4120`,
	Args: cobra.NoArgs,
	RunE: runCancelOrders,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(cancelOrdersCmd)
	cancelOrdersCmd.Flags().Int64("topic", 0, "Restrict to one topic id (0 = all)")
	cancelOrdersCmd.Flags().Bool("dry-run", false, "List orders without cancelling")
}

func runCancelOrders(cmd *cobra.Command, args []string) error {
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
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	orders, err := gateway.ListOpenOrders(ctx, topicID)
	if err != nil {
		return fmt.Errorf("fetch open orders: %w", err)
	}

	if len(orders) == 0 {
		fmt.Println("No open orders found.")
		return nil
	}

	displayOrdersTable(orders)

	if dryRun {
		fmt.Println("Dry run: no orders cancelled.")
		return nil
	}

	cancelled := 0
	for _, order := range orders {
		err := gateway.CancelOrder(ctx, order.TransNo)
		if err != nil {
			logger.Warn("cancel-failed",
				zap.String("trans-no", order.TransNo), zap.Error(err))
			continue
		}
		cancelled++
	}

	fmt.Printf("Cancelled %d/%d order(s)\n", cancelled, len(orders))
	return nil
}
