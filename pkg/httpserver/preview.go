package httpserver

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/mkarpov/opinion-mm/internal/book"
	"github.com/mkarpov/opinion-mm/internal/markets"
	"github.com/mkarpov/opinion-mm/pkg/numeric"
	"github.com/mkarpov/opinion-mm/pkg/types"
)

// priceTick is the one-tick improvement used for spread-mode preview
// prices.
var priceTick = decimal.RequireFromString("0.001")

const previewDepth = 5

type previewRequest struct {
	URL       string  `json:"url"`
	Outcome   string  `json:"outcome"`
	Amount    float64 `json:"amount"`
	MinVolume float64 `json:"min_volume"`
	AuthToken string  `json:"auth_token"`
}

// sidePreview is one side's executable prices plus display depth.
type sidePreview struct {
	Bid       float64            `json:"bid"`
	Ask       *float64           `json:"ask"`
	SpreadBuy *float64           `json:"spread_buy"`
	HasSpread bool               `json:"has_spread"`
	Bids      []types.PriceLevel `json:"bids"`
	Asks      []types.PriceLevel `json:"asks"`
}

type previewResponse struct {
	Outcome            string      `json:"outcome"`
	TopicID            int64       `json:"topic_id"`
	ChildTopicID       int64       `json:"child_topic_id"`
	Yes                sidePreview `json:"yes"`
	No                 sidePreview `json:"no"`
	Amount             float64     `json:"amount"`
	EstimatedSharesYes float64     `json:"estimated_shares_yes"`
	EstimatedSharesNo  float64     `json:"estimated_shares_no"`
}

// handlePreview shows both books of an outcome before any order is
// placed: best executable bid and ask per side, the would-be spread
// improvement and whether it fits inside the spread, and the top
// display levels.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	req := previewRequest{Amount: 15, MinVolume: 5}
	if !s.decode(w, r, &req) {
		return
	}

	topicID, err := markets.ParseTopicID(req.URL)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	gw, err := s.newGateway(req.AuthToken)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	topic, err := gw.GetTopic(r.Context(), topicID)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	outcome, err := markets.FindOutcome(topic, req.Outcome)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	yesBook, err := gw.GetOrderBook(r.Context(), outcome.QuestionID, outcome.YesTokenID, true)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	noBook, err := gw.GetOrderBook(r.Context(), outcome.QuestionID, outcome.NoTokenID, false)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	yes, yesOK := buildSidePreview(yesBook, req.MinVolume)
	no, noOK := buildSidePreview(noBook, req.MinVolume)
	if !yesOK || !noOK {
		s.writeError(w, http.StatusBadRequest, "No valid prices with sufficient volume")
		return
	}

	s.writeJSON(w, http.StatusOK, previewResponse{
		Outcome:            outcome.Title,
		TopicID:            topicID,
		ChildTopicID:       outcome.TopicID,
		Yes:                yes,
		No:                 no,
		Amount:             req.Amount,
		EstimatedSharesYes: round2(req.Amount / yes.Bid),
		EstimatedSharesNo:  round2(req.Amount / no.Bid),
	})
}

func buildSidePreview(orderBook *types.OrderBook, minVolume float64) (sidePreview, bool) {
	bestBid, bidOK := book.BestBid(orderBook.Bids, minVolume)
	if !bidOK {
		return sidePreview{}, false
	}

	preview := sidePreview{
		Bid:  bestBid.Price,
		Bids: book.TopLevels(orderBook.Bids, previewDepth, true),
		Asks: book.TopLevels(orderBook.Asks, previewDepth, false),
	}

	bestAsk, askOK := book.BestAsk(orderBook.Asks, minVolume)
	if !askOK {
		return preview, true
	}
	preview.Ask = &bestAsk.Price

	spreadBuy := numeric.QuantizePriceFloat(bestBid.Price).Add(priceTick)
	if spreadBuy.LessThan(numeric.QuantizePriceFloat(bestAsk.Price)) {
		preview.HasSpread = true
		buy, _ := spreadBuy.Float64()
		preview.SpreadBuy = &buy
	}
	return preview, true
}
