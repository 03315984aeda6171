package venue

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mkarpov/opinion-mm/internal/signing"
	"github.com/mkarpov/opinion-mm/pkg/numeric"
	"github.com/mkarpov/opinion-mm/pkg/types"
)

const (
	// usdtBSC is the collateral token the venue settles in.
	usdtBSC = "0x55d398326f99059fF775485246999027B3197955"

	zeroAddress = "0x0000000000000000000000000000000000000000"

	defaultTimeout = 30 * time.Second
)

// Client implements Gateway over the venue's HTTP API.
type Client struct {
	baseURL    string
	creds      Credentials
	signer     *signing.Signer
	httpClient *http.Client
	logger     *zap.Logger
	nowMillis  func() int64
}

// ClientConfig holds configuration for the venue client.
type ClientConfig struct {
	BaseURL     string
	Credentials Credentials
	Logger      *zap.Logger
}

// NewClient creates a venue client. Missing credentials or a malformed
// private key fail here, fatal for the calling task.
func NewClient(cfg *ClientConfig) (*Client, error) {
	if missing := cfg.Credentials.Missing(); len(missing) > 0 {
		return nil, &types.ErrCredentials{Missing: missing}
	}

	signer, err := signing.New(cfg.Credentials.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("create signer: %w", err)
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		creds:      cfg.Credentials,
		signer:     signer,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     cfg.Logger,
		nowMillis:  func() int64 { return time.Now().UnixMilli() },
	}, nil
}

// envelope is the venue's uniform response wrapper.
type envelope struct {
	Errno  int             `json:"errno"`
	Errmsg string          `json:"errmsg"`
	Result json.RawMessage `json:"result"`
}

// GetOrderBook fetches depth for one outcome token.
func (c *Client) GetOrderBook(ctx context.Context, questionID, tokenID string, yes bool) (*types.OrderBook, error) {
	symbolType := "0"
	if !yes {
		symbolType = "1"
	}

	params := url.Values{}
	params.Set("question_id", questionID)
	params.Set("symbol", tokenID)
	params.Set("chainId", strconv.Itoa(signing.ChainID))
	params.Set("symbol_types", symbolType)

	var book types.OrderBook
	err := c.doGet(ctx, "get-order-book", "/v2/order/market/depth", params, &book)
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// PlaceOrder places a signed limit BUY sized by collateral notional.
// makerAmount is the collateral offered, takerAmount the shares bought
// at the quantized price.
func (c *Client) PlaceOrder(ctx context.Context, topicID int64, tokenID string, price, notional decimal.Decimal) (*types.OrderData, error) {
	quantized := numeric.QuantizePrice(price)
	if quantized.IsZero() {
		return nil, fmt.Errorf("buy price quantized to zero")
	}

	makerAmount := numeric.ToBaseUnits(notional)
	takerAmount := numeric.ToBaseUnits(notional.Div(quantized))

	return c.submitOrder(ctx, topicID, tokenID, quantized, makerAmount, takerAmount, types.Buy)
}

// PlaceSellShares places a signed limit SELL sized by share count.
// makerAmount is the shares offered, takerAmount the collateral asked.
func (c *Client) PlaceSellShares(ctx context.Context, topicID int64, tokenID string, price, shares decimal.Decimal) (*types.OrderData, error) {
	quantized := numeric.QuantizePrice(price)
	if quantized.IsZero() {
		return nil, fmt.Errorf("sell price quantized to zero")
	}

	makerAmount := numeric.ToBaseUnits(shares)
	takerAmount := numeric.ToBaseUnits(shares.Mul(quantized))

	return c.submitOrder(ctx, topicID, tokenID, quantized, makerAmount, takerAmount, types.Sell)
}

func (c *Client) submitOrder(ctx context.Context, topicID int64, tokenID string, price decimal.Decimal, makerAmount, takerAmount *big.Int, side types.OrderSide) (*types.OrderData, error) {
	if makerAmount.Sign() <= 0 || takerAmount.Sign() <= 0 {
		return nil, fmt.Errorf("order amounts must be positive (maker=%s taker=%s)", makerAmount, takerAmount)
	}

	salt := c.nowMillis()

	signature, err := c.signer.Sign(&signing.OrderIntent{
		Maker:       c.creds.MultisigAddr,
		Signer:      c.creds.WalletAddr,
		TokenID:     tokenID,
		MakerAmount: makerAmount,
		TakerAmount: takerAmount,
		Salt:        salt,
		Side:        int(side),
	})
	if err != nil {
		return nil, fmt.Errorf("sign order: %w", err)
	}

	payload := &types.SignedOrderPayload{
		TopicID:         topicID,
		ContractAddress: signing.ExchangeContract,
		Price:           price.StringFixed(numeric.PriceDecimals),
		TradingMethod:   2,
		Salt:            strconv.FormatInt(salt, 10),
		Maker:           strings.ToLower(c.creds.MultisigAddr),
		Signer:          c.creds.WalletAddr,
		Taker:           zeroAddress,
		TokenID:         tokenID,
		MakerAmount:     makerAmount.String(),
		TakerAmount:     takerAmount.String(),
		Expiration:      "0",
		Nonce:           "0",
		FeeRateBps:      "0",
		Side:            strconv.Itoa(int(side)),
		SignatureType:   "2",
		Signature:       signature,
		Timestamp:       salt / 1000,
		Sign:            signature,
		SafeRate:        "0.05",
		OrderExpTime:    "0",
		CurrencyAddress: usdtBSC,
		ChainID:         signing.ChainID,
	}

	var result types.PlaceOrderResult
	err = c.doPost(ctx, "place-order", "/v2/order", payload, &result)
	if err != nil {
		return nil, err
	}

	OrdersPlacedTotal.WithLabelValues(side.String()).Inc()
	c.logger.Debug("order-placed",
		zap.Int64("topic-id", topicID),
		zap.String("side", side.String()),
		zap.String("price", payload.Price),
		zap.String("order-id", result.OrderData.OrderID))

	return &result.OrderData, nil
}

// CancelOrder cancels a resting order by its tracking number.
func (c *Client) CancelOrder(ctx context.Context, transNo string) error {
	body := map[string]interface{}{
		"trans_no": transNo,
		"chainId":  signing.ChainID,
	}
	return c.doPost(ctx, "cancel-order", "/v1/order/cancel/order", body, nil)
}

// listResult wraps the venue's paginated list payloads.
type listResult struct {
	List json.RawMessage `json:"list"`
}

// ListOpenOrders returns currently resting orders.
func (c *Client) ListOpenOrders(ctx context.Context, parentTopicID int64) ([]types.OpenOrder, error) {
	params := url.Values{}
	params.Set("page", "1")
	params.Set("limit", "50")
	params.Set("walletAddress", c.creds.WalletAddr)
	params.Set("queryType", "1")
	if parentTopicID != 0 {
		params.Set("parentTopicId", strconv.FormatInt(parentTopicID, 10))
	}

	var wrapped listResult
	err := c.doGet(ctx, "list-open-orders", "/v2/order", params, &wrapped)
	if err != nil {
		return nil, err
	}

	var orders []types.OpenOrder
	if len(wrapped.List) > 0 && string(wrapped.List) != "null" {
		if err := json.Unmarshal(wrapped.List, &orders); err != nil {
			return nil, fmt.Errorf("decode open orders: %w", err)
		}
	}
	return orders, nil
}

// ListPositions returns held share positions.
func (c *Client) ListPositions(ctx context.Context, parentTopicID int64) ([]types.Position, error) {
	params := url.Values{}
	params.Set("page", "1")
	params.Set("limit", "100")
	params.Set("walletAddress", c.creds.WalletAddr)
	if parentTopicID != 0 {
		params.Set("parentTopicId", strconv.FormatInt(parentTopicID, 10))
	}

	var wrapped listResult
	err := c.doGet(ctx, "list-positions", "/v2/portfolio", params, &wrapped)
	if err != nil {
		return nil, err
	}

	var positions []types.Position
	if len(wrapped.List) > 0 && string(wrapped.List) != "null" {
		if err := json.Unmarshal(wrapped.List, &positions); err != nil {
			return nil, fmt.Errorf("decode positions: %w", err)
		}
	}
	return positions, nil
}

// SplitCollateral converts collateral into a YES/NO share pair.
func (c *Client) SplitCollateral(ctx context.Context, topicID int64, amount decimal.Decimal, conditionID string) error {
	if amount.Sign() <= 0 {
		return fmt.Errorf("split amount must be positive, got %s", amount)
	}

	body := map[string]interface{}{
		"topicId":     topicID,
		"amount":      numeric.ToBaseUnitsString(amount),
		"conditionId": conditionID,
		"chainId":     signing.ChainID,
	}
	return c.doPost(ctx, "split-collateral", "/v1/position/split", body, nil)
}

// topicResult wraps GET /v2/topic/mutil/{id}.
type topicResult struct {
	Data types.Topic `json:"data"`
}

// GetTopic fetches a parent topic with its outcome children.
func (c *Client) GetTopic(ctx context.Context, topicID int64) (*types.Topic, error) {
	var wrapped topicResult
	err := c.doGet(ctx, "get-topic", fmt.Sprintf("/v2/topic/mutil/%d", topicID), nil, &wrapped)
	if err != nil {
		return nil, err
	}
	return &wrapped.Data, nil
}

func (c *Client) doGet(ctx context.Context, op, path string, params url.Values, out interface{}) error {
	requestURL := c.baseURL + path
	if len(params) > 0 {
		requestURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	return c.do(op, req, out)
}

func (c *Client) doPost(ctx context.Context, op, path string, body interface{}, out interface{}) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	return c.do(op, req, out)
}

func (c *Client) do(op string, req *http.Request, out interface{}) error {
	c.setHeaders(req)

	timer := prometheus.NewTimer(RequestDurationSeconds.WithLabelValues(op))
	resp, err := c.httpClient.Do(req)
	timer.ObserveDuration()
	if err != nil {
		RequestsTotal.WithLabelValues(op, "transport_error").Inc()
		return fmt.Errorf("%s: send request: %w", op, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		RequestsTotal.WithLabelValues(op, "read_error").Inc()
		return fmt.Errorf("%s: read response: %w", op, err)
	}

	if resp.StatusCode != http.StatusOK {
		RequestsTotal.WithLabelValues(op, "http_error").Inc()
		return fmt.Errorf("%s: HTTP %d: %s", op, resp.StatusCode, truncate(bodyBytes, 256))
	}

	var env envelope
	if err := json.Unmarshal(bodyBytes, &env); err != nil {
		RequestsTotal.WithLabelValues(op, "decode_error").Inc()
		return fmt.Errorf("%s: decode envelope: %w", op, err)
	}

	if env.Errno != 0 {
		RequestsTotal.WithLabelValues(op, "venue_error").Inc()
		return &types.VenueError{Errno: env.Errno, Errmsg: env.Errmsg, Op: op}
	}

	RequestsTotal.WithLabelValues(op, "ok").Inc()

	if out != nil && len(env.Result) > 0 && string(env.Result) != "null" {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return fmt.Errorf("%s: decode result: %w", op, err)
		}
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "https://app.opinion.trade")
	req.Header.Set("Referer", "https://app.opinion.trade/")
	req.Header.Set("X-Device-Kind", "web")
	req.Header.Set("Authorization", "Bearer "+c.creds.AuthToken)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
