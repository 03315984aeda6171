package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/mkarpov/opinion-mm/pkg/config"
	"github.com/mkarpov/opinion-mm/pkg/wallet"
)

//nolint:gochecknoglobals // Cobra boilerplate
var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show the wallet's BNB and USDT balances",
	Long: `Fetch the configured wallet's BNB and USDT balances from the
BSC RPC endpoint.

Examples:
  # Balances of WALLET_ADDRESS
  opinion-mm balance

  # Any address
  opinion-mm balance --address 0x742d35Cc6634C0532925a3b844Bc454e4438f44e`,
	Args: cobra.NoArgs,
	RunE: runBalance,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(balanceCmd)
	balanceCmd.Flags().String("address", "", "Wallet address (default WALLET_ADDRESS)")
}

func runBalance(cmd *cobra.Command, args []string) error {
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

	addr, _ := cmd.Flags().GetString("address")
	if addr == "" {
		addr = cfg.WalletAddr
	}
	if addr == "" {
		return errors.New("no address: set WALLET_ADDRESS or pass --address")
	}
	if !common.IsHexAddress(addr) {
		return fmt.Errorf("invalid address %q", addr)
	}

	client, err := wallet.NewClient(cfg.BSCRPCURL, logger)
	if err != nil {
		return fmt.Errorf("create wallet client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	balances, err := client.GetBalances(ctx, common.HexToAddress(addr))
	if err != nil {
		return fmt.Errorf("fetch balances: %w", err)
	}

	fmt.Printf("Address: %s\n", common.HexToAddress(addr).Hex())
	fmt.Printf("BNB:     %s\n", balances.BNBAmount().String())
	fmt.Printf("USDT:    %s\n", balances.USDTAmount().String())
	return nil
}
