package types

// OrderSide distinguishes buy and sell orders on the wire.
// The venue encodes side as "0" (buy) / "1" (sell) in signed payloads.
type OrderSide int

const (
	Buy  OrderSide = 0
	Sell OrderSide = 1
)

// String returns the human-readable side name.
func (s OrderSide) String() string {
	if s == Sell {
		return "SELL"
	}
	return "BUY"
}

// OpenOrder is one entry from the venue's open-order listing.
type OpenOrder struct {
	OrderID    string `json:"orderId"`
	TransNo    string `json:"transNo"`
	TopicID    int64  `json:"topicId"`
	TopicTitle string `json:"topicTitle"`
	Side       string `json:"side"`
	Price      string `json:"price"`
	Amount     string `json:"amount"`
}

// OrderData identifies a freshly placed order. OrderID is used for
// fill-presence checks; TransNo (the tracking number) for cancellation.
type OrderData struct {
	OrderID string `json:"orderId"`
	TransNo string `json:"transNo"`
}

// PlaceOrderResult wraps the venue's order placement response.
type PlaceOrderResult struct {
	OrderData OrderData `json:"orderData"`
}

// SignedOrderPayload is the full order submission body. Amounts are
// 18-decimal base-unit integers rendered as strings; Price is the exact
// 3-decimal quantized string that was used to derive the amounts.
type SignedOrderPayload struct {
	TopicID         int64  `json:"topicId"`
	ContractAddress string `json:"contractAddress"`
	Price           string `json:"price"`
	TradingMethod   int    `json:"tradingMethod"`
	Salt            string `json:"salt"`
	Maker           string `json:"maker"`
	Signer          string `json:"signer"`
	Taker           string `json:"taker"`
	TokenID         string `json:"tokenId"`
	MakerAmount     string `json:"makerAmount"`
	TakerAmount     string `json:"takerAmount"`
	Expiration      string `json:"expiration"`
	Nonce           string `json:"nonce"`
	FeeRateBps      string `json:"feeRateBps"`
	Side            string `json:"side"`
	SignatureType   string `json:"signatureType"`
	Signature       string `json:"signature"`
	Timestamp       int64  `json:"timestamp"`
	Sign            string `json:"sign"`
	SafeRate        string `json:"safeRate"`
	OrderExpTime    string `json:"orderExpTime"`
	CurrencyAddress string `json:"currencyAddress"`
	ChainID         int64  `json:"chainId"`
}
