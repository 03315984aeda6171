// Package wallet reads the trading account's on-chain collateral on
// BSC. The venue settles in USDT, so the dashboard surfaces the USDT
// balance next to BNB held for gas.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// bscUSDT is the collateral token. BSC USDT uses 18 decimals, unlike
// the 6-decimal mainnet contract.
const bscUSDT = "0x55d398326f99059fF775485246999027B3197955"

const usdtDecimals = 18

// BalanceReader fetches on-chain balances for one address.
type BalanceReader interface {
	GetBalances(ctx context.Context, address common.Address) (*Balances, error)
}

// Client reads balances over a BSC JSON-RPC endpoint.
type Client struct {
	rpcURL string
	logger *zap.Logger
}

// Balances holds on-chain token balances in raw contract units.
type Balances struct {
	BNB  *big.Int // in wei
	USDT *big.Int // in 18-decimal units
}

// BNBAmount returns the BNB balance in native units.
func (b *Balances) BNBAmount() decimal.Decimal {
	return decimal.NewFromBigInt(b.BNB, -18)
}

// USDTAmount returns the USDT balance in collateral units.
func (b *Balances) USDTAmount() decimal.Decimal {
	return decimal.NewFromBigInt(b.USDT, -usdtDecimals)
}

// NewClient creates a balance client.
func NewClient(rpcURL string, logger *zap.Logger) (*Client, error) {
	if rpcURL == "" {
		return nil, errors.New("rpcURL cannot be empty")
	}

	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	return &Client{rpcURL: rpcURL, logger: logger}, nil
}

// GetBalances fetches the BNB and USDT balances of address.
func (c *Client) GetBalances(ctx context.Context, address common.Address) (*Balances, error) {
	client, err := ethclient.DialContext(ctx, c.rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial RPC: %w", err)
	}
	defer client.Close()

	bnbBalance, err := client.BalanceAt(ctx, address, nil)
	if err != nil {
		return nil, fmt.Errorf("get BNB balance: %w", err)
	}

	usdtBalance, err := c.getERC20Balance(ctx, client, address, bscUSDT)
	if err != nil {
		return nil, fmt.Errorf("get USDT balance: %w", err)
	}

	return &Balances{BNB: bnbBalance, USDT: usdtBalance}, nil
}

// getERC20Balance fetches an ERC20 token balance for an address.
func (c *Client) getERC20Balance(
	ctx context.Context,
	client *ethclient.Client,
	owner common.Address,
	tokenAddr string,
) (balance *big.Int, err error) {
	balanceOfABI := `[{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"}]`

	parsedABI, err := abi.JSON(strings.NewReader(balanceOfABI))
	if err != nil {
		return nil, fmt.Errorf("parse ABI: %w", err)
	}

	data, err := parsedABI.Pack("balanceOf", owner)
	if err != nil {
		return nil, fmt.Errorf("pack ABI: %w", err)
	}

	tokenAddress := common.HexToAddress(tokenAddr)
	msg := ethereum.CallMsg{
		To:   &tokenAddress,
		Data: data,
	}

	result, err := client.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call contract: %w", err)
	}

	return new(big.Int).SetBytes(result), nil
}
