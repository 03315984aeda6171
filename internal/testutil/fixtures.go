package testutil

import (
	"strconv"

	"github.com/mkarpov/opinion-mm/pkg/types"
)

// CreateTestTopic creates a parent topic with one binary outcome per
// name, with deterministic token and question ids.
func CreateTestTopic(topicID int64, title string, outcomes ...string) *types.Topic {
	topic := &types.Topic{
		TopicID: topicID,
		Title:   title,
	}
	for i, name := range outcomes {
		childID := topicID*100 + int64(i) + 1
		topic.ChildList = append(topic.ChildList, types.Outcome{
			TopicID:     childID,
			Title:       name,
			YesTokenID:  itoa(childID) + "1",
			NoTokenID:   itoa(childID) + "2",
			QuestionID:  "q-" + itoa(childID),
			ConditionID: "0xcond-" + itoa(childID),
		})
	}
	return topic
}

// CreateTestBook creates an order book from (price, quantity) pairs,
// bids then asks.
func CreateTestBook(bids, asks [][2]float64) *types.OrderBook {
	book := &types.OrderBook{}
	for _, level := range bids {
		book.Bids = append(book.Bids, types.PriceLevel{Price: level[0], Quantity: level[1]})
	}
	for _, level := range asks {
		book.Asks = append(book.Asks, types.PriceLevel{Price: level[0], Quantity: level[1]})
	}
	return book
}

// CreateTestPosition creates a held YES position with the given share
// amounts and last trade price.
func CreateTestPosition(topicID, parentID int64, tokenID string, total, frozen, lastPrice string) types.Position {
	return types.Position{
		TopicID:        topicID,
		ParentTopicID:  parentID,
		TopicTitle:     "Test outcome",
		OutcomeSide:    1,
		TokenID:        tokenID,
		Quantity:       total,
		FrozenQuantity: frozen,
		LastPrice:      lastPrice,
	}
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
