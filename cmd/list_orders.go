package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkarpov/opinion-mm/pkg/config"
	"github.com/mkarpov/opinion-mm/pkg/types"
)

//nolint:gochecknoglobals // Cobra boilerplate
var listOrdersCmd = &cobra.Command{
	Use:   "list-orders",
	Short: "List all open orders on the venue",
	Long: `List all open orders for the authenticated account.

Shows the tracking number, market, side, price and notional of every
resting order.

Examples:
  # List all open orders
  opinion-mm list-orders

  # Only one market
  opinion-mm list-orders --topic 4120`,
	Args: cobra.NoArgs,
	RunE: runListOrders,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(listOrdersCmd)
	listOrdersCmd.Flags().Int64("topic", 0, "Restrict to one topic id (0 = all)")
}

func runListOrders(cmd *cobra.Command, args []string) error {
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

	orders, err := gateway.ListOpenOrders(ctx, topicID)
	if err != nil {
		return fmt.Errorf("fetch open orders: %w", err)
	}

	if len(orders) == 0 {
		fmt.Println("No open orders found.")
		return nil
	}

	displayOrdersTable(orders)
	return nil
}

func displayOrdersTable(orders []types.OpenOrder) {
	fmt.Printf("%-14s %-10s %-30s %-5s %-8s %-10s\n",
		"TRACKING", "TOPIC", "MARKET", "SIDE", "PRICE", "AMOUNT")
	for _, order := range orders {
		fmt.Printf("%-14s %-10d %-30s %-5s %-8s %-10s\n",
			order.TransNo, order.TopicID, truncate(order.TopicTitle, 30),
			order.Side, order.Price, order.Amount)
	}
	fmt.Printf("\n%d open order(s)\n", len(orders))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
