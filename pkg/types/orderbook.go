package types

import (
	"fmt"
	"strconv"

	json "github.com/goccy/go-json"
)

// PriceLevel is a single order book level. The venue encodes levels as
// two-element JSON arrays of decimal strings: ["0.545", "120.5"].
type PriceLevel struct {
	Price    float64
	Quantity float64
}

// UnmarshalJSON decodes the venue's [price, quantity] array form.
func (l *PriceLevel) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) < 2 {
		return fmt.Errorf("price level needs 2 elements, got %d", len(raw))
	}

	price, err := parseLevelNumber(raw[0])
	if err != nil {
		return fmt.Errorf("parse level price: %w", err)
	}
	qty, err := parseLevelNumber(raw[1])
	if err != nil {
		return fmt.Errorf("parse level quantity: %w", err)
	}

	l.Price = price
	l.Quantity = qty
	return nil
}

// MarshalJSON re-encodes a level in the venue's array form.
func (l PriceLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{
		strconv.FormatFloat(l.Price, 'f', -1, 64),
		strconv.FormatFloat(l.Quantity, 'f', -1, 64),
	})
}

// parseLevelNumber accepts both quoted decimal strings and bare numbers;
// the venue mixes the two across endpoints.
func parseLevelNumber(raw json.RawMessage) (float64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strconv.ParseFloat(s, 64)
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, err
	}
	return f, nil
}

// Notional is the level's value in collateral currency.
func (l PriceLevel) Notional() float64 {
	return l.Price * l.Quantity
}

// OrderBook is the depth snapshot for one outcome token.
type OrderBook struct {
	Bids      []PriceLevel `json:"bids"`
	Asks      []PriceLevel `json:"asks"`
	LastPrice string       `json:"last_price,omitempty"`
}
